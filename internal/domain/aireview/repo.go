package aireview

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByPlan(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Review, int, error)
}
