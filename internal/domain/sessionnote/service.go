package sessionnote

import (
	"context"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/audit"
	"github.com/abaworks/aba/internal/platform/authz"
)

// PatientDirectory supplies patient authorization snapshots. Implemented by
// the patient domain.
type PatientDirectory interface {
	Ref(ctx context.Context, id uuid.UUID) (authz.PatientRef, error)
}

// AuditSink is the swallowing audit logger. Satisfied by *audit.Logger.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry) (uuid.UUID, bool)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	audit    AuditSink
}

func NewService(repo Repository, patients PatientDirectory, sink AuditSink) *Service {
	return &Service{repo: repo, patients: patients, audit: sink}
}

func (s *Service) record(ctx context.Context, caller authz.Caller, action string, noteID, patientID uuid.UUID) {
	orgID := caller.OrgID
	userID := caller.UserID
	resourceID := noteID
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: &orgID,
		UserID:         &userID,
		Action:         action,
		ResourceType:   "session_note",
		ResourceID:     &resourceID,
		PHIAccessed:    true,
		Changes: audit.Changes{
			Consent: audit.ConsentClassification{PatientID: &patientID},
		},
	})
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*SessionNote, authz.NoteRef, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, authz.NoteRef{}, err
	}
	patient, err := s.patients.Ref(ctx, n.PatientID)
	if err != nil {
		return nil, authz.NoteRef{}, err
	}
	return n, n.Ref(patient), nil
}

func (s *Service) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*SessionNote, int, error) {
	return s.repo.List(ctx, caller, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, caller authz.Caller, patientID uuid.UUID, limit, offset int) ([]*SessionNote, int, error) {
	return s.repo.ListByPatient(ctx, caller, patientID, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*SessionNote, error) {
	n, ref, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewSessionNote(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	s.record(ctx, caller, "view_session_note", n.ID, n.PatientID)
	return n, nil
}

func (s *Service) Create(ctx context.Context, caller authz.Caller, n *SessionNote) error {
	if !authz.CanCreateSessionNote(caller) {
		return authz.ErrUnauthorized
	}
	if err := n.Validate(); err != nil {
		return err
	}
	patient, err := s.patients.Ref(ctx, n.PatientID)
	if err != nil {
		return err
	}
	if !authz.CanViewPatient(caller, patient) {
		return authz.ErrUnauthorized
	}
	n.OrganizationID = caller.OrgID
	n.CreatedByID = caller.UserID
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.record(ctx, caller, "create_session_note", n.ID, n.PatientID)
	return nil
}

func (s *Service) Update(ctx context.Context, caller authz.Caller, n *SessionNote) (*SessionNote, error) {
	existing, ref, err := s.load(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditSessionNote(caller, ref) {
		return nil, authz.ErrUnauthorized
	}
	existing.SessionDate = n.SessionDate
	existing.DurationMinutes = n.DurationMinutes
	existing.Content = n.Content
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.record(ctx, caller, "update_session_note", existing.ID, existing.PatientID)
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	n, ref, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	// Deletion follows the same owner-or-admin rule as editing.
	if !authz.CanEditSessionNote(caller, ref) {
		return authz.ErrUnauthorized
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, caller, "delete_session_note", n.ID, n.PatientID)
	return nil
}
