package plan

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// ErrStatusConflict is returned by TransitionStatus when the plan's status no
// longer matches the expected value: a concurrent transition won the race.
var ErrStatusConflict = errors.New("plan status changed concurrently")

type Repository interface {
	Create(ctx context.Context, p *TreatmentPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	Update(ctx context.Context, p *TreatmentPlan) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*TreatmentPlan, int, error)

	// TransitionStatus is the compare-and-set status write. It affects zero
	// rows and returns ErrStatusConflict unless the stored status still
	// equals expected (accepting the legacy manager-review label).
	TransitionStatus(ctx context.Context, id uuid.UUID, expected, next Status) error

	CreateComment(ctx context.Context, c *Comment) error
	GetCommentByID(ctx context.Context, id uuid.UUID) (*Comment, error)
	ListComments(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Comment, int, error)
	SoftDeleteComment(ctx context.Context, id uuid.UUID) error
}
