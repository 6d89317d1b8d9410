package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConsentStatus classifies the consent basis of a logged operation. It is
// annotation on the log entry only and is never consulted when granting or
// denying access.
type ConsentStatus string

const (
	ConsentNotRequired    ConsentStatus = "NOT_REQUIRED"
	ConsentEmergency      ConsentStatus = "EMERGENCY"
	ConsentAudit          ConsentStatus = "AUDIT"
	ConsentTreatment      ConsentStatus = "TREATMENT"
	ConsentAdministrative ConsentStatus = "ADMINISTRATIVE"
)

// ConsentClassification is embedded in an entry's changes payload.
type ConsentClassification struct {
	Status         ConsentStatus `json:"status"`
	Reason         string        `json:"reason,omitempty"`
	PatientID      *uuid.UUID    `json:"patient_id,omitempty"`
	FieldsAccessed []string      `json:"fields_accessed,omitempty"`
}

// Changes is the structured payload stored with every entry.
type Changes struct {
	Consent ConsentClassification  `json:"consent"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Entry is one immutable audit log row. Entries are only ever inserted.
type Entry struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Action         string     `db:"action" json:"action"`
	ResourceType   string     `db:"resource_type" json:"resource_type"`
	ResourceID     *uuid.UUID `db:"resource_id" json:"resource_id,omitempty"`
	PHIAccessed    bool       `db:"phi_accessed" json:"phi_accessed"`
	Changes        Changes    `db:"changes" json:"changes"`
	IPAddress      string     `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent      string     `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Classify derives a consent status from the action tag and the PHI flag.
// Best-effort metadata only.
func Classify(action string, phiAccessed bool) ConsentStatus {
	if !phiAccessed {
		return ConsentNotRequired
	}
	a := strings.ToLower(action)
	switch {
	case strings.Contains(a, "emergency"):
		return ConsentEmergency
	case strings.Contains(a, "audit"), strings.Contains(a, "list"):
		return ConsentAudit
	case strings.Contains(a, "create"), strings.Contains(a, "update"), strings.Contains(a, "view"):
		return ConsentTreatment
	default:
		return ConsentAdministrative
	}
}

// Severity grades a detected breach.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Breach kinds.
const (
	BreachFailedLogins = "FAILED_LOGINS"
	BreachRecordAccess = "EXCESSIVE_RECORD_ACCESS"
)

// Breach is a recorded threshold violation.
type Breach struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Kind           string    `db:"kind" json:"kind"`
	Severity       Severity  `db:"severity" json:"severity"`
	Count          int       `db:"event_count" json:"event_count"`
	Threshold      int       `db:"threshold" json:"threshold"`
	WindowStart    time.Time `db:"window_start" json:"window_start"`
	DetectedAt     time.Time `db:"detected_at" json:"detected_at"`
	Details        string    `db:"details" json:"details,omitempty"`
}
