package template

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

type Service struct {
	repo  Repository
	audit AuditSink
}

func NewService(repo Repository, sink AuditSink) *Service {
	return &Service{repo: repo, audit: sink}
}

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, templateID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	resourceID := templateID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   "template",
		ResourceID:     &resourceID,
	})
}

// visible mirrors TemplateScope for a single loaded row: public, same
// organization, or own.
func visible(caller authz.Caller, ref authz.TemplateRef) bool {
	if !caller.HasOrg() {
		return false
	}
	return ref.IsPublic || ref.OrgID == caller.OrgID || ref.CreatedByID == caller.UserID
}

func (s *Service) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Template, int, error) {
	return s.repo.List(ctx, caller, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(caller, t.Ref()) {
		return nil, authz.ErrUnauthorized
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, caller authz.Caller, t *Template) error {
	if !authz.CanCreateTemplate(caller) {
		return authz.ErrUnauthorized
	}
	if err := t.Validate(); err != nil {
		return err
	}
	orgID := caller.OrgID
	t.OrganizationID = &orgID
	t.CreatedByID = caller.UserID
	if err := s.repo.Create(ctx, t); err != nil {
		return err
	}
	s.record(ctx, caller, "create_template", t.ID)
	return nil
}

func (s *Service) Update(ctx context.Context, caller authz.Caller, t *Template) (*Template, error) {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditTemplate(caller, existing.Ref()) {
		return nil, authz.ErrUnauthorized
	}
	existing.Name = t.Name
	existing.Description = t.Description
	existing.Category = t.Category
	existing.IsPublic = t.IsPublic
	existing.Content = t.Content
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "update_template", existing.ID)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteTemplate(caller, existing.Ref()) {
		return authz.ErrUnauthorized
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, "delete_template", id)
	return nil
}
