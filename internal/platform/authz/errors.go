package authz

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated means no valid caller could be resolved for the request.
var ErrUnauthenticated = errors.New("unauthenticated: no valid caller")

// ErrUnauthorized means a valid caller lacks the role, ownership, or
// organization match for the attempted action. Distinct from
// ErrUnauthenticated so audit entries can tell the two apart.
var ErrUnauthorized = errors.New("unauthorized: insufficient permissions")

// InvalidTransitionError is returned when a treatment-plan transition is
// attempted outside the approval state machine's table.
type InvalidTransitionError struct {
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a plan in status %s", e.Action, e.From)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
