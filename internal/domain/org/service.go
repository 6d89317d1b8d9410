package org

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/auth"
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

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, resourceType string, resourceID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	rid := resourceID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     &rid,
	})
}

// Organization returns the caller's own organization. Any authenticated
// member may read it; only admin tier may change it.
func (s *Service) Organization(ctx context.Context, caller authz.Caller) (*Organization, error) {
	if !caller.HasOrg() {
		return nil, authz.ErrUnauthorized
	}
	return s.repo.GetOrganization(ctx, caller.OrgID)
}

func (s *Service) UpdateOrganization(ctx context.Context, caller authz.Caller, o *Organization) (*Organization, error) {
	if !authz.CanUpdateOrganization(caller) {
		return nil, authz.ErrUnauthorized
	}
	existing, err := s.repo.GetOrganization(ctx, caller.OrgID)
	if err != nil {
		return nil, err
	}
	existing.Name = o.Name
	existing.Address = o.Address
	existing.Phone = o.Phone
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateOrganization(ctx, existing); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "update_organization", "organization", existing.ID)
	return existing, nil
}

func (s *Service) ListTeam(ctx context.Context, caller authz.Caller, limit, offset int) ([]*User, int, error) {
	return s.repo.ListUsers(ctx, caller, limit, offset)
}

// Invite creates a staff account in the caller's organization with an
// initial password.
func (s *Service) Invite(ctx context.Context, caller authz.Caller, u *User, password string) error {
	if !authz.CanManageUsers(caller) {
		return authz.ErrUnauthorized
	}
	u.OrganizationID = caller.OrgID
	if err := u.Validate(); err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.IsActive = true
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return err
	}
	s.record(ctx, caller, "invite_user", "user", u.ID)
	return nil
}

func (s *Service) ChangeRole(ctx context.Context, caller authz.Caller, userID uuid.UUID, role authz.Role) (*User, error) {
	if !authz.CanManageUsers(caller) {
		return nil, authz.ErrUnauthorized
	}
	if !validRole(role) {
		return nil, errors.New("unknown role")
	}
	target, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.OrganizationID != caller.OrgID {
		return nil, authz.ErrUnauthorized
	}
	if err := s.repo.UpdateUserRole(ctx, userID, role); err != nil {
		return nil, err
	}
	target.Role = role
	s.record(ctx, caller, "change_user_role", "user", userID)
	return target, nil
}

func (s *Service) SetActive(ctx context.Context, caller authz.Caller, userID uuid.UUID, active bool) error {
	if !authz.CanManageUsers(caller) {
		return authz.ErrUnauthorized
	}
	if !active && userID == caller.UserID {
		return errors.New("cannot deactivate your own account")
	}
	target, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.OrganizationID != caller.OrgID {
		return authz.ErrUnauthorized
	}
	if err := s.repo.SetUserActive(ctx, userID, active); err != nil {
		return err
	}
	action := "deactivate_user"
	if active {
		action = "reactivate_user"
	}
	s.record(ctx, caller, action, "user", userID)
	return nil
}

// VerifyPassword implements auth.CredentialStore. On a wrong password for a
// known account the identity is still returned alongside the error so the
// failed attempt can be attributed.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (auth.Identity, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	id := auth.Identity{UserID: u.ID, OrgID: u.OrganizationID, Role: u.Role, Email: u.Email}
	if !u.IsActive {
		return id, auth.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return id, auth.ErrInvalidCredentials
	}
	return id, nil
}

// AdminUserIDs implements audit.AdminDirectory for breach fan-out.
func (s *Service) AdminUserIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.AdminUserIDs(ctx, orgID)
}
