package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

// AuditSink is the swallowing audit logger. Satisfied by *audit.Logger.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (uuid.UUID, bool)
}

// BreachChecker observes PHI access volume. Satisfied by *audit.Detector.
// It never fails the triggering operation.
type BreachChecker interface {
	CheckRecordAccess(ctx context.Context, orgID, userID uuid.UUID) *audit.Breach
}

type Service struct {
	repo   Repository
	audit  AuditSink
	breach BreachChecker
}

func NewService(repo Repository, sink AuditSink, breach BreachChecker) *Service {
	return &Service{repo: repo, audit: sink, breach: breach}
}

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, patientID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	resourceID := patientID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   "patient",
		ResourceID:     &resourceID,
		PHIAccessed:    true,
		Changes: audit.Changes{
			Consent: audit.ConsentClassification{
				PatientID:      &resourceID,
				FieldsAccessed: PHIFieldNames(),
			},
		},
	})
	if s.breach != nil {
		s.breach.CheckRecordAccess(ctx, caller.OrgID, caller.UserID)
	}
}

// Ref loads the authorization snapshot other domains need to make decisions
// about a patient. It performs no permission check itself: the caller's
// predicate does.
func (s *Service) Ref(ctx context.Context, id uuid.UUID) (authz.PatientRef, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return authz.PatientRef{}, err
	}
	return p.Ref(), nil
}

func (s *Service) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, caller, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &caller.OrgID,
		UserID:         &caller.UserID,
		Action:         "list_patients",
		ResourceType:   "patient",
		PHIAccessed:    len(items) > 0,
	})
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewPatient(caller, p.Ref()) {
		return nil, authz.ErrUnauthorized
	}
	s.record(ctx, caller, "view_patient", p.ID)
	return p, nil
}

func (s *Service) Create(ctx context.Context, caller authz.Caller, p *Patient) error {
	if !authz.CanCreatePatient(caller) {
		return authz.ErrUnauthorized
	}
	if err := p.Validate(); err != nil {
		return err
	}
	p.OrganizationID = caller.OrgID
	// A BCBA creating a patient starts as their assigned BCBA.
	if caller.Role == authz.RoleBCBA && p.AssignedBCBAID == nil {
		userID := caller.UserID
		p.AssignedBCBAID = &userID
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.record(ctx, caller, "create_patient", p.ID)
	return nil
}

func (s *Service) Update(ctx context.Context, caller authz.Caller, p *Patient) (*Patient, error) {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditPatient(caller, existing.Ref()) {
		return nil, authz.ErrUnauthorized
	}
	existing.PHI = p.PHI
	existing.Diagnosis = p.Diagnosis
	existing.Notes = p.Notes
	existing.AssignedBCBAID = p.AssignedBCBAID
	existing.AssignedRBTID = p.AssignedRBTID
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "update_patient", existing.ID)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeletePatient(caller, p.Ref()) {
		return authz.ErrUnauthorized
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, "delete_patient", id)
	return nil
}
