package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Patient, int, error)
}
