package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminDirectory lists the admin-tier users of an organization for breach
// notification fan-out.
type AdminDirectory interface {
	AdminUserIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier delivers an in-app notification to one user.
type Notifier interface {
	Notify(ctx context.Context, orgID, userID uuid.UUID, title, body string) error
}

// Thresholds configures the breach detector.
type Thresholds struct {
	FailedLogins       int
	FailedLoginWindow  time.Duration
	RecordAccess       int
	RecordAccessWindow time.Duration
}

// DefaultThresholds mirrors the regulatory guidance the product ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailedLogins:       5,
		FailedLoginWindow:  15 * time.Minute,
		RecordAccess:       100,
		RecordAccessWindow: time.Hour,
	}
}

// Detector runs threshold checks against the audit log. It is an observer:
// it records breaches and notifies admins, but never fails or rejects the
// operation that triggered the check. All errors are logged and swallowed.
type Detector struct {
	repo     Repository
	admins   AdminDirectory
	notifier Notifier
	cfg      Thresholds
	log      zerolog.Logger
	now      func() time.Time
}

func NewDetector(repo Repository, admins AdminDirectory, notifier Notifier, cfg Thresholds, log zerolog.Logger) *Detector {
	if cfg.FailedLogins <= 0 {
		cfg = DefaultThresholds()
	}
	return &Detector{
		repo:     repo,
		admins:   admins,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckFailedLogins records a breach when the user's failed-login count in
// the window meets the threshold. Returns the breach, or nil when the count
// is below threshold or the check itself failed.
func (d *Detector) CheckFailedLogins(ctx context.Context, orgID, userID uuid.UUID) *Breach {
	since := d.now().Add(-d.cfg.FailedLoginWindow)
	count, err := d.repo.CountFailedLogins(ctx, orgID, userID, since)
	if err != nil {
		d.log.Error().Err(err).Msg("breach check: count failed logins")
		return nil
	}
	if count < d.cfg.FailedLogins {
		return nil
	}
	b := &Breach{
		OrganizationID: orgID,
		UserID:         userID,
		Kind:           BreachFailedLogins,
		Severity:       failedLoginSeverity(count, d.cfg.FailedLogins),
		Count:          count,
		Threshold:      d.cfg.FailedLogins,
		WindowStart:    since,
		DetectedAt:     d.now(),
		Details:        fmt.Sprintf("%d failed login attempts in %s", count, d.cfg.FailedLoginWindow),
	}
	d.record(ctx, b)
	return b
}

// CheckRecordAccess records a breach when the user's PHI record accesses in
// the window meet the threshold.
func (d *Detector) CheckRecordAccess(ctx context.Context, orgID, userID uuid.UUID) *Breach {
	since := d.now().Add(-d.cfg.RecordAccessWindow)
	count, err := d.repo.CountRecordAccess(ctx, orgID, userID, since)
	if err != nil {
		d.log.Error().Err(err).Msg("breach check: count record access")
		return nil
	}
	if count < d.cfg.RecordAccess {
		return nil
	}
	b := &Breach{
		OrganizationID: orgID,
		UserID:         userID,
		Kind:           BreachRecordAccess,
		Severity:       recordAccessSeverity(count, d.cfg.RecordAccess),
		Count:          count,
		Threshold:      d.cfg.RecordAccess,
		WindowStart:    since,
		DetectedAt:     d.now(),
		Details:        fmt.Sprintf("%d patient records accessed in %s", count, d.cfg.RecordAccessWindow),
	}
	d.record(ctx, b)
	return b
}

func (d *Detector) record(ctx context.Context, b *Breach) {
	if err := d.repo.InsertBreach(ctx, b); err != nil {
		d.log.Error().Err(err).Str("kind", b.Kind).Msg("breach record write failed")
	}
	if b.Severity != SeverityHigh && b.Severity != SeverityCritical {
		return
	}
	admins, err := d.admins.AdminUserIDs(ctx, b.OrganizationID)
	if err != nil {
		d.log.Error().Err(err).Msg("breach fan-out: list admins")
		return
	}
	title := fmt.Sprintf("%s security alert", b.Severity)
	for _, adminID := range admins {
		if err := d.notifier.Notify(ctx, b.OrganizationID, adminID, title, b.Details); err != nil {
			d.log.Error().Err(err).Str("user_id", adminID.String()).Msg("breach fan-out: notify")
		}
	}
}

// Failed logins escalate with multiples of the threshold. At exactly the
// threshold the breach is MEDIUM.
func failedLoginSeverity(count, threshold int) Severity {
	switch {
	case count >= threshold*4:
		return SeverityCritical
	case count >= threshold*2:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Bulk PHI access is graded more harshly: meeting the threshold is already
// HIGH, doubling it is CRITICAL.
func recordAccessSeverity(count, threshold int) Severity {
	if count >= threshold*2 {
		return SeverityCritical
	}
	return SeverityHigh
}
