package plan

import "github.com/abaworks/aba/internal/platform/authz"

// Action is one approval-workflow operation on a plan.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionActivate Action = "activate"
	ActionArchive  Action = "archive"
)

type transitionKey struct {
	from   Status
	action Action
}

// The approval chain: draft → BCBA review → manager review → approved, with
// rejection possible at either review stage. Activation and archival sit
// outside the review chain and are guarded by edit rights, not reviewer role.
var transitions = map[transitionKey]Status{
	{StatusDraft, ActionSubmit}:           StatusPendingBCBA,
	{StatusPendingBCBA, ActionApprove}:    StatusPendingManager,
	{StatusPendingBCBA, ActionReject}:     StatusRejected,
	{StatusPendingManager, ActionApprove}: StatusApproved,
	{StatusPendingManager, ActionReject}:  StatusRejected,
	{StatusApproved, ActionActivate}:      StatusActive,
	{StatusApproved, ActionArchive}:       StatusArchived,
	{StatusActive, ActionArchive}:         StatusArchived,
}

// NextStatus reports the target status for an action, or false when the
// action is not defined from the given status.
func NextStatus(from Status, action Action) (Status, bool) {
	next, ok := transitions[transitionKey{from, action}]
	return next, ok
}

// Transition validates an action against the table and the caller's rights
// and returns the target status. Actions outside the table are an
// InvalidTransitionError; actions inside the table by the wrong caller are
// ErrUnauthorized. The status write itself is the repository's CAS.
func Transition(caller authz.Caller, ref authz.PlanRef, action Action) (Status, error) {
	from, err := ParseStatus(ref.Status)
	if err != nil {
		return "", err
	}
	ref.Status = string(from)

	next, ok := NextStatus(from, action)
	if !ok {
		return "", &authz.InvalidTransitionError{From: string(from), Action: string(action)}
	}

	switch action {
	case ActionSubmit:
		if !authz.CanSubmitForReview(caller, ref) {
			return "", authz.ErrUnauthorized
		}
	case ActionApprove, ActionReject:
		if !authz.CanReviewTreatmentPlan(caller, ref) {
			return "", authz.ErrUnauthorized
		}
	case ActionActivate, ActionArchive:
		if !authz.CanEditTreatmentPlan(caller, ref) {
			return "", authz.ErrUnauthorized
		}
	}
	return next, nil
}
