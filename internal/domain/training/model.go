package training

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Module is one training unit. OrganizationID is nil for platform-published
// modules visible to every organization.
type Module struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  *uuid.UUID `json:"organizationId,omitempty"`
	CreatedByID     uuid.UUID  `json:"createdById"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	ContentURL      *string    `json:"contentUrl,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (m *Module) Validate() error {
	if m.Title == "" {
		return errors.New("module title is required")
	}
	if m.DurationMinutes < 0 {
		return errors.New("duration cannot be negative")
	}
	return nil
}
