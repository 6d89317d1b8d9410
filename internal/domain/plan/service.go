package plan

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

// PatientDirectory supplies the patient authorization snapshot a plan
// decision needs. Implemented by the patient domain.
type PatientDirectory interface {
	Ref(ctx context.Context, id uuid.UUID) (authz.PatientRef, error)
}

// AuditSink is the swallowing audit logger. Satisfied by *audit.Logger.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (uuid.UUID, bool)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	audit    AuditSink
}

func NewService(repo Repository, patients PatientDirectory, sink AuditSink) *Service {
	return &Service{repo: repo, patients: patients, audit: sink}
}

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, planID, patientID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	resourceID := planID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   "treatment_plan",
		ResourceID:     &resourceID,
		PHIAccessed:    true,
		Changes: audit.Changes{
			Consent: audit.ConsentClassification{PatientID: &patientID},
		},
	})
}

// load fetches a plan together with the authorization snapshot of its
// patient.
func (s *Service) load(ctx context.Context, id uuid.UUID) (*TreatmentPlan, authz.PlanRef, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, authz.PlanRef{}, err
	}
	patient, err := s.patients.Ref(ctx, p.PatientID)
	if err != nil {
		return nil, authz.PlanRef{}, fmt.Errorf("load patient for plan %s: %w", id, err)
	}
	return p, p.Ref(patient), nil
}

// Ref exposes the authorization snapshot of one plan to dependent domains.
// It performs no permission check itself: the caller's predicate does.
func (s *Service) Ref(ctx context.Context, id uuid.UUID) (authz.PlanRef, error) {
	_, ref, err := s.load(ctx, id)
	return ref, err
}

func (s *Service) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*TreatmentPlan, int, error) {
	items, total, err := s.repo.List(ctx, caller, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &caller.OrgID,
		UserID:         &caller.UserID,
		Action:         "list_treatment_plans",
		ResourceType:   "treatment_plan",
		PHIAccessed:    len(items) > 0,
	})
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	p, ref, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewTreatmentPlan(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	s.record(ctx, caller, "view_treatment_plan", p.ID, p.PatientID)
	return p, nil
}

func (s *Service) Create(ctx context.Context, caller authz.Caller, p *TreatmentPlan) error {
	if !authz.CanCreateTreatmentPlan(caller) {
		return authz.ErrUnauthorized
	}
	if err := p.ValidateContent(); err != nil {
		return err
	}
	patient, err := s.patients.Ref(ctx, p.PatientID)
	if err != nil {
		return err
	}
	if !authz.CanViewPatient(caller, patient) {
		return authz.ErrUnauthorized
	}
	p.OrganizationID = caller.OrgID
	p.CreatedByID = caller.UserID
	p.Status = StatusDraft
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.record(ctx, caller, "create_treatment_plan", p.ID, p.PatientID)
	return nil
}

// Update changes plan content only; the status field is owned by the
// transition operations.
func (s *Service) Update(ctx context.Context, caller authz.Caller, p *TreatmentPlan) (*TreatmentPlan, error) {
	existing, ref, err := s.load(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditTreatmentPlan(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	existing.Title = p.Title
	existing.Goals = p.Goals
	existing.Behaviors = p.Behaviors
	existing.Interventions = p.Interventions
	existing.DataCollection = p.DataCollection
	if err := existing.ValidateContent(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "update_treatment_plan", existing.ID, existing.PatientID)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	p, ref, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteTreatmentPlan(caller, ref) {
		return authz.ErrUnauthorized
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, "delete_treatment_plan", p.ID, p.PatientID)
	return nil
}

func (s *Service) transition(ctx context.Context, caller authz.Caller, id uuid.UUID, action Action) (*TreatmentPlan, error) {
	p, ref, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(caller, ref, action)
	if err != nil {
		return nil, err
	}
	if err := s.repo.TransitionStatus(ctx, p.ID, p.Status, next); err != nil {
		return nil, err
	}
	p.Status = next
	s.record(ctx, caller, string(action)+"_treatment_plan", p.ID, p.PatientID)
	return p, nil
}

func (s *Service) Submit(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	return s.transition(ctx, caller, id, ActionSubmit)
}

func (s *Service) Approve(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	return s.transition(ctx, caller, id, ActionApprove)
}

func (s *Service) Reject(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	return s.transition(ctx, caller, id, ActionReject)
}

func (s *Service) Activate(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	return s.transition(ctx, caller, id, ActionActivate)
}

func (s *Service) Archive(ctx context.Context, caller authz.Caller, id uuid.UUID) (*TreatmentPlan, error) {
	return s.transition(ctx, caller, id, ActionArchive)
}

func (s *Service) AddComment(ctx context.Context, caller authz.Caller, planID uuid.UUID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("body is required")
	}
	p, ref, err := s.load(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !authz.CanCommentOnPlan(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	c := &Comment{
		PlanID:         p.ID,
		OrganizationID: caller.OrgID,
		CreatedByID:    caller.UserID,
		Body:           body,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "comment_treatment_plan", p.ID, p.PatientID)
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Comment, int, error) {
	return s.repo.ListComments(ctx, caller, planID, limit, offset)
}

func (s *Service) DeleteComment(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	c, err := s.repo.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	_, ref, err := s.load(ctx, c.PlanID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteComment(caller, c.Ref(ref)) {
		return authz.ErrUnauthorized
	}
	return s.repo.SoftDeleteComment(ctx, id)
}
