package aireview

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

// PlanDirectory supplies plan authorization snapshots. Implemented by the
// plan domain.
type PlanDirectory interface {
	Ref(ctx context.Context, id uuid.UUID) (authz.PlanRef, error)
}

// AuditSink is the swallowing audit logger. Satisfied by *audit.Logger.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (uuid.UUID, bool)
}

type Service struct {
	repo  Repository
	plans PlanDirectory
	audit AuditSink
}

func NewService(repo Repository, plans PlanDirectory, sink AuditSink) *Service {
	return &Service{repo: repo, plans: plans, audit: sink}
}

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, reviewID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	resourceID := reviewID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   "ai_review",
		ResourceID:     &resourceID,
		PHIAccessed:    true,
	})
}

// Create stores a review result. The caller must be able to view the plan
// under review; reviews inherit plan visibility, never widen it.
func (s *Service) Create(ctx context.Context, caller authz.Caller, rv *Review) error {
	if err := rv.Validate(); err != nil {
		return err
	}
	ref, err := s.plans.Ref(ctx, rv.PlanID)
	if err != nil {
		return err
	}
	if !authz.CanViewTreatmentPlan(caller, ref) {
		return authz.ErrUnauthorized
	}
	rv.OrganizationID = caller.OrgID
	rv.RequestedByID = caller.UserID
	if err := s.repo.Create(ctx, rv); err != nil {
		return err
	}
	s.record(ctx, caller, "create_ai_review", rv.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Review, error) {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.OrganizationID != caller.OrgID {
		return nil, authz.ErrUnauthorized
	}
	ref, err := s.plans.Ref(ctx, rv.PlanID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewTreatmentPlan(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	s.record(ctx, caller, "view_ai_review", rv.ID)
	return rv, nil
}

func (s *Service) ListByPlan(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	return s.repo.ListByPlan(ctx, caller, planID, limit, offset)
}
