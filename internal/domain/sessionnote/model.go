package sessionnote

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// SessionNote documents one therapy session. Notes belong to an organization
// and a patient, optionally reference the treatment plan in effect, and are
// mutable only by their owner or an admin-tier role.
type SessionNote struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	OrganizationID  uuid.UUID  `db:"organization_id" json:"organization_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PlanID          *uuid.UUID `db:"plan_id" json:"plan_id,omitempty"`
	CreatedByID     uuid.UUID  `db:"created_by_id" json:"created_by_id"`
	SessionDate     time.Time  `db:"session_date" json:"session_date"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Content         string     `db:"content" json:"content"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (n *SessionNote) Ref(patient authz.PatientRef) authz.NoteRef {
	return authz.NoteRef{
		OrgID:       n.OrganizationID,
		CreatedByID: n.CreatedByID,
		Patient:     patient,
		Deleted:     n.DeletedAt != nil,
	}
}

func (n *SessionNote) Validate() error {
	if n.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n.Content == "" {
		return fmt.Errorf("content is required")
	}
	if n.SessionDate.IsZero() {
		return fmt.Errorf("session_date is required")
	}
	if n.DurationMinutes < 0 {
		return fmt.Errorf("duration_minutes must not be negative")
	}
	return nil
}
