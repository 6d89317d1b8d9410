package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
	"github.com/abaworks/aba/internal/platform/hipaa"
)

// Patient is one client record. The PHI block is plaintext in memory and
// encrypted per-column at the repository edge; everything outside PHI is
// stored as-is. Patients are soft-deleted only, for audit continuity.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	AssignedBCBAID *uuid.UUID `db:"assigned_bcba_id" json:"assigned_bcba_id,omitempty"`
	AssignedRBTID  *uuid.UUID `db:"assigned_rbt_id" json:"assigned_rbt_id,omitempty"`

	PHI hipaa.PHIRecord `json:"phi"`

	Diagnosis *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Ref builds the authorization snapshot for this patient.
func (p *Patient) Ref() authz.PatientRef {
	ref := authz.PatientRef{
		OrgID:   p.OrganizationID,
		Deleted: p.DeletedAt != nil,
	}
	if p.AssignedBCBAID != nil {
		ref.AssignedBCBAID = *p.AssignedBCBAID
	}
	if p.AssignedRBTID != nil {
		ref.AssignedRBTID = *p.AssignedRBTID
	}
	return ref
}

// Validate checks boundary input.
func (p *Patient) Validate() error {
	if p.PHI.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.PHI.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.PHI.DateOfBirth == "" {
		return fmt.Errorf("date_of_birth is required")
	}
	return nil
}

// PHIFieldNames lists the PHI columns for audit fields-accessed annotation.
func PHIFieldNames() []string {
	return []string{
		"first_name", "last_name", "date_of_birth", "ssn",
		"address", "emergency_contact", "insurance",
	}
}
