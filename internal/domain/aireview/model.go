package aireview

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Review is one automated quality review of a treatment plan. Findings is an
// opaque JSON document produced by the reviewing model.
type Review struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organizationId"`
	PlanID         uuid.UUID       `json:"planId"`
	RequestedByID  uuid.UUID       `json:"requestedById"`
	Model          string          `json:"model"`
	Summary        string          `json:"summary"`
	Findings       json.RawMessage `json:"findings,omitempty"`
	Score          *float64        `json:"score,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (r *Review) Validate() error {
	if r.PlanID == uuid.Nil {
		return errors.New("plan id is required")
	}
	if r.Model == "" {
		return errors.New("model name is required")
	}
	if len(r.Findings) > 0 && !json.Valid(r.Findings) {
		return errors.New("findings must be valid JSON")
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 1) {
		return errors.New("score must be between 0 and 1")
	}
	return nil
}
