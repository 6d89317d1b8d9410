package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// ErrInvalidCredentials covers every login failure: unknown account, wrong
// password, deactivated account. The login handler never tells which.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Identity is a verified account as the credential store reports it.
type Identity struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   authz.Role
	Email  string
}

// CredentialStore verifies a password login. Implemented by the org domain.
// On a wrong password for a known account the identity is returned alongside
// ErrInvalidCredentials so the failed attempt can be attributed.
type CredentialStore interface {
	VerifyPassword(ctx context.Context, email, password string) (Identity, error)
}
