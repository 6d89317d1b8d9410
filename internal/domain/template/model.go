package template

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

// Template is a reusable treatment-plan scaffold. OrganizationID is nil for
// platform-published templates visible to every organization.
type Template struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	CreatedByID    uuid.UUID       `json:"createdById"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Category       *string         `json:"category,omitempty"`
	IsPublic       bool            `json:"isPublic"`
	Content        json.RawMessage `json:"content"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      *time.Time      `json:"-"`
}

func (t *Template) Ref() authz.TemplateRef {
	ref := authz.TemplateRef{CreatedByID: t.CreatedByID, IsPublic: t.IsPublic}
	if t.OrganizationID != nil {
		ref.OrgID = *t.OrganizationID
	}
	return ref
}

func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if len(t.Content) > 0 && !json.Valid(t.Content) {
		return errors.New("template content must be valid JSON")
	}
	return nil
}
