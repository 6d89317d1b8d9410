package sessionnote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

var testOrg = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")

type fakeRepo struct {
	notes map[uuid.UUID]*SessionNote
}

func (f *fakeRepo) Create(_ context.Context, n *SessionNote) error {
	n.ID = uuid.New()
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*SessionNote, error) {
	n, ok := f.notes[id]
	if !ok || n.DeletedAt != nil {
		return nil, errors.New("not found")
	}
	cp := *n
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, n *SessionNote) error {
	stored, ok := f.notes[n.ID]
	if !ok {
		return errors.New("not found")
	}
	*stored = *n
	return nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	n, ok := f.notes[id]
	if !ok {
		return errors.New("not found")
	}
	now := n.CreatedAt
	n.DeletedAt = &now
	return nil
}

func (f *fakeRepo) List(_ context.Context, caller authz.Caller, _, _ int) ([]*SessionNote, int, error) {
	if !authz.Satisfiable(authz.SessionNoteScope(caller)) {
		return nil, 0, nil
	}
	var items []*SessionNote
	for _, n := range f.notes {
		if n.DeletedAt == nil && n.OrganizationID == caller.OrgID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func (f *fakeRepo) ListByPatient(ctx context.Context, caller authz.Caller, patientID uuid.UUID, limit, offset int) ([]*SessionNote, int, error) {
	all, _, err := f.List(ctx, caller, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	var items []*SessionNote
	for _, n := range all {
		if n.PatientID == patientID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
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

func asCaller(role authz.Role, userID uuid.UUID) authz.Caller {
	return authz.Caller{UserID: userID, Role: role, OrgID: testOrg}
}

func newTestService() (*Service, *fakeRepo, *fakePatients) {
	repo := &fakeRepo{notes: make(map[uuid.UUID]*SessionNote)}
	patients := &fakePatients{refs: make(map[uuid.UUID]authz.PatientRef)}
	return NewService(repo, patients, &fakeAudit{}), repo, patients
}

func TestService_CreateByAssignedRBT(t *testing.T) {
	svc, repo, patients := newTestService()
	rbtID := uuid.New()
	patientID := uuid.New()
	patients.refs[patientID] = authz.PatientRef{OrgID: testOrg, AssignedRBTID: rbtID}

	n := &SessionNote{
		PatientID:       patientID,
		SessionDate:     time.Now().UTC(),
		DurationMinutes: 60,
		Content:         "Worked on manding, 80% independent.",
	}
	if err := svc.Create(context.Background(), asCaller(authz.RoleRBT, rbtID), n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.notes[n.ID].CreatedByID != rbtID || repo.notes[n.ID].OrganizationID != testOrg {
		t.Errorf("ownership not stamped: %+v", repo.notes[n.ID])
	}
}

func TestService_CreateRequiresPatientVisibility(t *testing.T) {
	svc, _, patients := newTestService()
	patientID := uuid.New()
	patients.refs[patientID] = authz.PatientRef{OrgID: testOrg, AssignedRBTID: uuid.New()}

	n := &SessionNote{PatientID: patientID, SessionDate: time.Now(), Content: "x"}
	if err := svc.Create(context.Background(), asCaller(authz.RoleRBT, uuid.New()), n); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("unassigned RBT create: err = %v, want ErrUnauthorized", err)
	}
}

func TestService_UpdateOwnerOrAdminOnly(t *testing.T) {
	svc, repo, patients := newTestService()
	ownerID := uuid.New()
	patientID := uuid.New()
	patients.refs[patientID] = authz.PatientRef{OrgID: testOrg, AssignedRBTID: ownerID}

	n := &SessionNote{
		ID:             uuid.New(),
		OrganizationID: testOrg,
		PatientID:      patientID,
		CreatedByID:    ownerID,
		SessionDate:    time.Now().UTC(),
		Content:        "original",
	}
	repo.notes[n.ID] = n

	edit := *n
	edit.Content = "edited"
	if _, err := svc.Update(context.Background(), asCaller(authz.RoleRBT, ownerID), &edit); err != nil {
		t.Errorf("owner update: %v", err)
	}
	if _, err := svc.Update(context.Background(), asCaller(authz.RoleBCBA, uuid.New()), &edit); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("non-owner update: err = %v", err)
	}
	if _, err := svc.Update(context.Background(), asCaller(authz.RoleClinicalManager, uuid.New()), &edit); err != nil {
		t.Errorf("admin-tier update: %v", err)
	}
}
