package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaworks/aba/internal/platform/authz"
	"github.com/abaworks/aba/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, organization_id, user_id, action, resource_type, resource_id,
	phi_accessed, changes, ip_address, user_agent, created_at`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var changes []byte
	err := row.Scan(&e.ID, &e.OrganizationID, &e.UserID, &e.Action, &e.ResourceType,
		&e.ResourceID, &e.PHIAccessed, &changes, &e.IPAddress, &e.UserAgent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return nil, fmt.Errorf("audit: decode changes: %w", err)
		}
	}
	return &e, nil
}

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("audit: encode changes: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (id, organization_id, user_id, action, resource_type,
			resource_id, phi_accessed, changes, ip_address, user_agent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.OrganizationID, e.UserID, e.Action, e.ResourceType,
		e.ResourceID, e.PHIAccessed, changes, e.IPAddress, e.UserAgent, e.CreatedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Entry, int, error) {
	scope := authz.AuditLogScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, authz.ErrUnauthorized
	}
	where, args := authz.ToSQL(scope, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_log WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		entryCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountFailedLogins(ctx context.Context, orgID, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_log
		WHERE organization_id = $1 AND user_id = $2
		  AND action = 'login_failed' AND created_at >= $3`,
		orgID, userID, since).Scan(&count)
	return count, err
}

func (r *repoPG) CountRecordAccess(ctx context.Context, orgID, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_log
		WHERE organization_id = $1 AND user_id = $2
		  AND phi_accessed AND created_at >= $3`,
		orgID, userID, since).Scan(&count)
	return count, err
}

func (r *repoPG) InsertBreach(ctx context.Context, b *Breach) error {
	b.ID = uuid.New()
	if b.DetectedAt.IsZero() {
		b.DetectedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO breach_record (id, organization_id, user_id, kind, severity,
			event_count, threshold, window_start, detected_at, details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		b.ID, b.OrganizationID, b.UserID, b.Kind, b.Severity,
		b.Count, b.Threshold, b.WindowStart, b.DetectedAt, b.Details)
	return err
}
