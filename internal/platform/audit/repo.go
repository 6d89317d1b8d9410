package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// Repository persists audit entries and breach records. The entry store is
// append-only: there is deliberately no update or delete.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Entry, int, error)
	CountFailedLogins(ctx context.Context, orgID, userID uuid.UUID, since time.Time) (int, error)
	CountRecordAccess(ctx context.Context, orgID, userID uuid.UUID, since time.Time) (int, error)
	InsertBreach(ctx context.Context, b *Breach) error
}
