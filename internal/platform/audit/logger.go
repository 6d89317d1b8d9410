package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger appends audit entries. Record never returns an error: the primary
// operation being observed must not fail because the log write did.
type Logger struct {
	repo Repository
	log  zerolog.Logger
}

func NewLogger(repo Repository, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, log: log}
}

// Record appends one entry, deriving the consent classification when the
// caller did not set one. It returns the entry ID and whether the write
// succeeded; failures are logged and swallowed.
func (l *Logger) Record(ctx context.Context, e Entry) (uuid.UUID, bool) {
	if e.Changes.Consent.Status == "" {
		e.Changes.Consent.Status = Classify(e.Action, e.PHIAccessed)
	}
	if err := l.repo.Insert(ctx, &e); err != nil {
		l.log.Error().Err(err).
			Str("action", e.Action).
			Str("resource_type", e.ResourceType).
			Msg("audit write failed")
		return uuid.Nil, false
	}
	return e.ID, true
}
