package org

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	UpdateOrganization(ctx context.Context, o *Organization) error

	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, caller authz.Caller, limit, offset int) ([]*User, int, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role authz.Role) error
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) error
	AdminUserIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
}
