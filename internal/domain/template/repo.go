package template

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	Update(ctx context.Context, t *Template) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Template, int, error)
}
