package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// Status is a treatment plan's position in the approval lifecycle.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusPendingBCBA    Status = "PENDING_BCBA_REVIEW"
	StatusPendingManager Status = "PENDING_MANAGER_REVIEW"
	StatusApproved       Status = "APPROVED"
	StatusActive         Status = "ACTIVE"
	StatusArchived       Status = "ARCHIVED"
	StatusRejected       Status = "REJECTED"
)

// legacyPendingManager is the pre-rename label for the manager review stage.
// It is accepted on input and rewritten to the canonical label on write.
const legacyPendingManager = "PENDING_CLINICAL_DIRECTOR"

var validStatuses = map[Status]bool{
	StatusDraft: true, StatusPendingBCBA: true, StatusPendingManager: true,
	StatusApproved: true, StatusActive: true, StatusArchived: true,
	StatusRejected: true,
}

// ParseStatus normalizes a stored or submitted status label. The legacy
// manager-review label maps to the canonical one; they are a single state.
func ParseStatus(s string) (Status, error) {
	if s == legacyPendingManager {
		return StatusPendingManager, nil
	}
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("invalid plan status: %s", s)
	}
	return st, nil
}

// Goal is one treatment target on a plan.
type Goal struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	MasteryCriteria *string `json:"mastery_criteria,omitempty"`
	TargetDate      *string `json:"target_date,omitempty"`
}

// Behavior is one target behavior with its operational definition.
type Behavior struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Definition  *string `json:"definition,omitempty"`
	Function    *string `json:"function,omitempty"`
	Measurement *string `json:"measurement,omitempty"`
}

// Intervention is one intervention strategy on a plan.
type Intervention struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Procedure   *string `json:"procedure,omitempty"`
}

// DataCollection describes how data is gathered for a plan.
type DataCollection struct {
	ID        string  `json:"id"`
	Method    string  `json:"method"`
	Frequency *string `json:"frequency,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// TreatmentPlan is the aggregate under the approval workflow. Sub-record
// arrays are stored as typed JSONB; sub-record IDs are generated strings and
// uniqueness is the caller's concern.
type TreatmentPlan struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	OrganizationID uuid.UUID        `db:"organization_id" json:"organization_id"`
	PatientID      uuid.UUID        `db:"patient_id" json:"patient_id"`
	CreatedByID    uuid.UUID        `db:"created_by_id" json:"created_by_id"`
	Title          string           `db:"title" json:"title"`
	Status         Status           `db:"status" json:"status"`
	Goals          []Goal           `db:"goals" json:"goals"`
	Behaviors      []Behavior       `db:"behaviors" json:"behaviors"`
	Interventions  []Intervention   `db:"interventions" json:"interventions"`
	DataCollection []DataCollection `db:"data_collection" json:"data_collection"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Ref builds the authorization snapshot for this plan. The patient snapshot
// comes from the patient domain because assignment fields live there.
func (p *TreatmentPlan) Ref(patient authz.PatientRef) authz.PlanRef {
	return authz.PlanRef{
		OrgID:       p.OrganizationID,
		CreatedByID: p.CreatedByID,
		Status:      string(p.Status),
		Patient:     patient,
		Deleted:     p.DeletedAt != nil,
	}
}

// ValidateContent checks boundary input and assigns generated IDs to new
// sub-records.
func (p *TreatmentPlan) ValidateContent() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	for i := range p.Goals {
		if p.Goals[i].Title == "" {
			return fmt.Errorf("goal %d: title is required", i)
		}
		if p.Goals[i].ID == "" {
			p.Goals[i].ID = uuid.New().String()
		}
	}
	for i := range p.Behaviors {
		if p.Behaviors[i].Name == "" {
			return fmt.Errorf("behavior %d: name is required", i)
		}
		if p.Behaviors[i].ID == "" {
			p.Behaviors[i].ID = uuid.New().String()
		}
	}
	for i := range p.Interventions {
		if p.Interventions[i].Name == "" {
			return fmt.Errorf("intervention %d: name is required", i)
		}
		if p.Interventions[i].ID == "" {
			p.Interventions[i].ID = uuid.New().String()
		}
	}
	for i := range p.DataCollection {
		if p.DataCollection[i].Method == "" {
			return fmt.Errorf("data collection %d: method is required", i)
		}
		if p.DataCollection[i].ID == "" {
			p.DataCollection[i].ID = uuid.New().String()
		}
	}
	return nil
}

// Comment is attached to one treatment plan and soft-deleted, never removed.
type Comment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PlanID         uuid.UUID  `db:"plan_id" json:"plan_id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	CreatedByID    uuid.UUID  `db:"created_by_id" json:"created_by_id"`
	Body           string     `db:"body" json:"body"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (c *Comment) Ref(plan authz.PlanRef) authz.CommentRef {
	return authz.CommentRef{
		OrgID:       c.OrganizationID,
		CreatedByID: c.CreatedByID,
		Plan:        plan,
		Deleted:     c.DeletedAt != nil,
	}
}
