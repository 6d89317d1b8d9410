package training

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, m *Module) error
	GetByID(ctx context.Context, id uuid.UUID) (*Module, error)
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Module, int, error)
}
