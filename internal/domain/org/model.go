package org

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// Organization is one clinic tenant. Every scoped resource in the system
// carries its id.
type Organization struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Address   *string    `json:"address,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
}

func (o *Organization) Validate() error {
	if o.Name == "" {
		return errors.New("organization name is required")
	}
	return nil
}

// User is a staff member of one organization. PasswordHash never serializes.
type User struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Role           authz.Role `json:"role"`
	PasswordHash   string     `json:"-"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"-"`
}

func (u *User) Validate() error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return errors.New("valid email is required")
	}
	if u.FirstName == "" || u.LastName == "" {
		return errors.New("first and last name are required")
	}
	if !validRole(u.Role) {
		return errors.New("unknown role")
	}
	return nil
}

func validRole(r authz.Role) bool {
	switch r {
	case authz.RoleOrgAdmin, authz.RoleClinicalManager, authz.RoleBCBA,
		authz.RoleRBT, authz.RoleBT, authz.RoleHRManager:
		return true
	}
	return false
}
