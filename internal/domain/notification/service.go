package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/abaworks/aba/internal/platform/authz"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify implements audit.Notifier: it delivers one in-app notification. A
// nil-org delivery is a system-wide message.
func (s *Service) Notify(ctx context.Context, orgID, userID uuid.UUID, title, body string) error {
	if title == "" {
		return errors.New("notification title is required")
	}
	n := &Notification{UserID: userID, Title: title, Body: body}
	if orgID != uuid.Nil {
		n.OrganizationID = &orgID
	}
	return s.repo.Create(ctx, n)
}

func (s *Service) List(ctx context.Context, caller authz.Caller, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.List(ctx, caller, unreadOnly, limit, offset)
}

// MarkRead marks one of the caller's own notifications as read. Another
// user's notification is invisible, not forbidden.
func (s *Service) MarkRead(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != caller.UserID {
		return authz.ErrUnauthorized
	}
	if n.OrganizationID != nil && *n.OrganizationID != caller.OrgID {
		return authz.ErrUnauthorized
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, caller authz.Caller) error {
	return s.repo.MarkAllRead(ctx, caller)
}
