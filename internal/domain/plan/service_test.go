package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

type fakeRepo struct {
	plans    map[uuid.UUID]*TreatmentPlan
	comments map[uuid.UUID]*Comment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:    make(map[uuid.UUID]*TreatmentPlan),
		comments: make(map[uuid.UUID]*Comment),
	}
}

func (f *fakeRepo) Create(_ context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	cp := *p
	f.plans[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	p, ok := f.plans[id]
	if !ok || p.DeletedAt != nil {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, p *TreatmentPlan) error {
	stored, ok := f.plans[p.ID]
	if !ok {
		return errors.New("not found")
	}
	stored.Title = p.Title
	stored.Goals = p.Goals
	stored.Behaviors = p.Behaviors
	stored.Interventions = p.Interventions
	stored.DataCollection = p.DataCollection
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := f.plans[id]
	if !ok {
		return errors.New("not found")
	}
	now := p.CreatedAt
	p.DeletedAt = &now
	return nil
}

func (f *fakeRepo) List(_ context.Context, caller authz.Caller, _, _ int) ([]*TreatmentPlan, int, error) {
	if !authz.Satisfiable(authz.TreatmentPlanScope(caller)) {
		return nil, 0, nil
	}
	var items []*TreatmentPlan
	for _, p := range f.plans {
		if p.DeletedAt == nil && p.OrganizationID == caller.OrgID {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

func (f *fakeRepo) TransitionStatus(_ context.Context, id uuid.UUID, expected, next Status) error {
	p, ok := f.plans[id]
	if !ok || p.DeletedAt != nil {
		return errors.New("not found")
	}
	if p.Status != expected {
		return ErrStatusConflict
	}
	p.Status = next
	return nil
}

func (f *fakeRepo) CreateComment(_ context.Context, c *Comment) error {
	c.ID = uuid.New()
	cp := *c
	f.comments[c.ID] = &cp
	return nil
}

func (f *fakeRepo) GetCommentByID(_ context.Context, id uuid.UUID) (*Comment, error) {
	c, ok := f.comments[id]
	if !ok || c.DeletedAt != nil {
		return nil, errors.New("not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) ListComments(_ context.Context, caller authz.Caller, planID uuid.UUID, _, _ int) ([]*Comment, int, error) {
	if !authz.Satisfiable(authz.CommentScope(caller)) {
		return nil, 0, nil
	}
	var items []*Comment
	for _, c := range f.comments {
		if c.DeletedAt == nil && c.PlanID == planID {
			items = append(items, c)
		}
	}
	return items, len(items), nil
}

func (f *fakeRepo) SoftDeleteComment(_ context.Context, id uuid.UUID) error {
	c, ok := f.comments[id]
	if !ok {
		return errors.New("not found")
	}
	now := c.CreatedAt
	c.DeletedAt = &now
	return nil
}

type fakePatients struct {
	refs map[uuid.UUID]authz.PatientRef
}

func (f *fakePatients) Ref(_ context.Context, id uuid.UUID) (authz.PatientRef, error) {
	ref, ok := f.refs[id]
	if !ok {
		return authz.PatientRef{}, errors.New("patient not found")
	}
	return ref, nil
}

type fakeAudit struct {
	entries []audit.Entry
}

func (f *fakeAudit) Record(_ context.Context, e audit.Entry) (uuid.UUID, bool) {
	f.entries = append(f.entries, e)
	return uuid.New(), true
}

func (f *fakeAudit) lastAction() string {
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[len(f.entries)-1].Action
}

func newTestService() (*Service, *fakeRepo, *fakePatients, *fakeAudit) {
	repo := newFakeRepo()
	patients := &fakePatients{refs: make(map[uuid.UUID]authz.PatientRef)}
	sink := &fakeAudit{}
	return NewService(repo, patients, sink), repo, patients, sink
}

func seedPatient(patients *fakePatients, orgID, bcbaID uuid.UUID) uuid.UUID {
	id := uuid.New()
	patients.refs[id] = authz.PatientRef{OrgID: orgID, AssignedBCBAID: bcbaID}
	return id
}

func TestService_CreateForcesDraft(t *testing.T) {
	svc, repo, patients, sink := newTestService()
	creator := asCaller(authz.RoleBCBA, testCreator)
	patientID := seedPatient(patients, testOrg, testCreator)

	p := &TreatmentPlan{
		PatientID: patientID,
		Title:     "Initial plan",
		Status:    StatusApproved, // must be ignored
		Goals:     []Goal{{Title: "Requesting items vocally"}},
	}
	if err := svc.Create(context.Background(), creator, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored := repo.plans[p.ID]
	if stored.Status != StatusDraft {
		t.Errorf("status = %s, want DRAFT", stored.Status)
	}
	if stored.CreatedByID != testCreator || stored.OrganizationID != testOrg {
		t.Errorf("ownership not stamped: %+v", stored)
	}
	if stored.Goals[0].ID == "" {
		t.Error("goal was not assigned a generated id")
	}
	if sink.lastAction() != "create_treatment_plan" {
		t.Errorf("audit action = %s", sink.lastAction())
	}
}

func TestService_CreateDeniedForTechnicians(t *testing.T) {
	svc, _, patients, _ := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)

	for _, role := range []authz.Role{authz.RoleRBT, authz.RoleBT, authz.RoleHRManager} {
		err := svc.Create(context.Background(), asCaller(role, uuid.New()), &TreatmentPlan{PatientID: patientID, Title: "x"})
		if !errors.Is(err, authz.ErrUnauthorized) {
			t.Errorf("%s create: err = %v, want ErrUnauthorized", role, err)
		}
	}
}

func TestService_CreateRequiresVisiblePatient(t *testing.T) {
	svc, _, patients, _ := newTestService()
	// Patient assigned to someone else: the creating BCBA cannot see them.
	patientID := seedPatient(patients, testOrg, uuid.New())

	err := svc.Create(context.Background(), asCaller(authz.RoleBCBA, testCreator), &TreatmentPlan{PatientID: patientID, Title: "x"})
	if !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func seedPlan(repo *fakeRepo, patientID uuid.UUID, status Status) *TreatmentPlan {
	p := &TreatmentPlan{
		ID:             uuid.New(),
		OrganizationID: testOrg,
		PatientID:      patientID,
		CreatedByID:    testCreator,
		Title:          "Seeded plan",
		Status:         status,
	}
	repo.plans[p.ID] = p
	return p
}

func TestService_SubmitAndFullChain(t *testing.T) {
	svc, repo, patients, sink := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)
	p := seedPlan(repo, patientID, StatusDraft)

	creator := asCaller(authz.RoleBCBA, testCreator)
	reviewer := asCaller(authz.RoleBCBA, uuid.New())
	manager := asCaller(authz.RoleClinicalManager, uuid.New())
	admin := asCaller(authz.RoleOrgAdmin, uuid.New())

	if _, err := svc.Submit(context.Background(), creator, p.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if repo.plans[p.ID].Status != StatusPendingBCBA {
		t.Fatalf("after submit: %s", repo.plans[p.ID].Status)
	}
	if _, err := svc.Approve(context.Background(), reviewer, p.ID); err != nil {
		t.Fatalf("BCBA approve: %v", err)
	}
	if _, err := svc.Approve(context.Background(), manager, p.ID); err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if _, err := svc.Activate(context.Background(), admin, p.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := svc.Archive(context.Background(), admin, p.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if repo.plans[p.ID].Status != StatusArchived {
		t.Errorf("final status = %s", repo.plans[p.ID].Status)
	}
	if sink.lastAction() != "archive_treatment_plan" {
		t.Errorf("audit action = %s", sink.lastAction())
	}
}

// A guard failure must leave the stored status untouched.
func TestService_RejectedTransitionLeavesStatus(t *testing.T) {
	svc, repo, patients, _ := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)
	p := seedPlan(repo, patientID, StatusPendingBCBA)

	_, err := svc.Approve(context.Background(), asCaller(authz.RoleClinicalManager, uuid.New()), p.ID)
	if !errors.Is(err, authz.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if repo.plans[p.ID].Status != StatusPendingBCBA {
		t.Errorf("status changed to %s", repo.plans[p.ID].Status)
	}
}

// Two racing transitions: the compare-and-set lets only the first apply.
func TestService_ConcurrentTransitionConflict(t *testing.T) {
	svc, repo, patients, _ := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)
	p := seedPlan(repo, patientID, StatusPendingBCBA)
	reviewer := asCaller(authz.RoleBCBA, uuid.New())

	loaded, ref, err := svc.load(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	next, err := Transition(reviewer, ref, ActionReject)
	if err != nil {
		t.Fatal(err)
	}

	// Another reviewer approves first.
	if _, err := svc.Approve(context.Background(), reviewer, p.ID); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	// The stale reject must hit the CAS and fail, not double-apply.
	if err := repo.TransitionStatus(context.Background(), loaded.ID, loaded.Status, next); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("stale transition err = %v, want ErrStatusConflict", err)
	}
	if repo.plans[p.ID].Status != StatusPendingManager {
		t.Errorf("status = %s, want PENDING_MANAGER_REVIEW", repo.plans[p.ID].Status)
	}
}

func TestService_UpdateFrozenAfterSubmit(t *testing.T) {
	svc, repo, patients, _ := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)
	p := seedPlan(repo, patientID, StatusPendingBCBA)

	_, err := svc.Update(context.Background(), asCaller(authz.RoleBCBA, testCreator), &TreatmentPlan{ID: p.ID, Title: "Edited"})
	if !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("creator edit after submit: err = %v, want ErrUnauthorized", err)
	}

	// Admin tier can still edit content.
	updated, err := svc.Update(context.Background(), asCaller(authz.RoleOrgAdmin, uuid.New()),
		&TreatmentPlan{ID: p.ID, Title: "Edited", PatientID: patientID})
	if err != nil {
		t.Fatalf("admin edit: %v", err)
	}
	if updated.Title != "Edited" || updated.Status != StatusPendingBCBA {
		t.Errorf("update result: %+v", updated)
	}
}

func TestService_DeleteRules(t *testing.T) {
	svc, repo, patients, _ := newTestService()
	patientID := seedPatient(patients, testOrg, testCreator)

	draft := seedPlan(repo, patientID, StatusDraft)
	if err := svc.Delete(context.Background(), asCaller(authz.RoleBCBA, testCreator), draft.ID); err != nil {
		t.Errorf("creator delete draft: %v", err)
	}

	submitted := seedPlan(repo, patientID, StatusPendingBCBA)
	if err := svc.Delete(context.Background(), asCaller(authz.RoleBCBA, testCreator), submitted.ID); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("creator delete submitted: err = %v", err)
	}
	if err := svc.Delete(context.Background(), asCaller(authz.RoleOrgAdmin, uuid.New()), submitted.ID); err != nil {
		t.Errorf("org admin delete: %v", err)
	}
}

func TestService_Comments(t *testing.T) {
	svc, repo, patients, _ := newTestService()
	rbtID := uuid.New()
	patientID := uuid.New()
	patients.refs[patientID] = authz.PatientRef{OrgID: testOrg, AssignedRBTID: rbtID}
	p := seedPlan(repo, patientID, StatusActive)

	// An assigned RBT can view the plan, so they can comment.
	rbt := asCaller(authz.RoleRBT, rbtID)
	c, err := svc.AddComment(context.Background(), rbt, p.ID, "Great session today")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	// HR cannot view the plan, so they cannot comment.
	if _, err := svc.AddComment(context.Background(), asCaller(authz.RoleHRManager, uuid.New()), p.ID, "hi"); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("HR comment: err = %v", err)
	}

	// Another clinician cannot delete the RBT's comment; the org admin can.
	if err := svc.DeleteComment(context.Background(), asCaller(authz.RoleBCBA, testCreator), c.ID); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("non-owner delete: err = %v", err)
	}
	if err := svc.DeleteComment(context.Background(), asCaller(authz.RoleOrgAdmin, uuid.New()), c.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
}
