package sessionnote

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, n *SessionNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*SessionNote, error)
	Update(ctx context.Context, n *SessionNote) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*SessionNote, int, error)
	ListByPatient(ctx context.Context, caller authz.Caller, patientID uuid.UUID, limit, offset int) ([]*SessionNote, int, error)
}
