package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, caller authz.Caller, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, caller authz.Caller) error
}
