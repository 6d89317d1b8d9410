package training

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Module, int, error) {
	return s.repo.List(ctx, caller, limit, offset)
}

// Get is not role-gated beyond the organization match: every staff member
// can open a module in their org or a platform-published one.
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Module, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.HasOrg() {
		return nil, authz.ErrUnauthorized
	}
	if m.OrganizationID != nil && *m.OrganizationID != caller.OrgID {
		return nil, authz.ErrUnauthorized
	}
	return m, nil
}

// Create publishes a module into the caller's organization. Admin tier only.
func (s *Service) Create(ctx context.Context, caller authz.Caller, m *Module) error {
	if !caller.HasOrg() || !authz.IsAdminTier(caller.Role) {
		return authz.ErrUnauthorized
	}
	if err := m.Validate(); err != nil {
		return err
	}
	orgID := caller.OrgID
	m.OrganizationID = &orgID
	m.CreatedByID = caller.UserID
	return s.repo.Create(ctx, m)
}
