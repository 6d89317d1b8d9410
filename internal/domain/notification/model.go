package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one in-app message for one user. OrganizationID is nil for
// system-wide announcements.
type Notification struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	UserID         uuid.UUID  `json:"userId"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (n *Notification) Read() bool {
	return n.ReadAt != nil
}
