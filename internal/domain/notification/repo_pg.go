package notification

import (
	"context"
	"fmt"

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

const notificationCols = `id, organization_id, user_id, title, body, read_at, created_at`

func (r *repoPG) scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.OrganizationID, &n.UserID, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification (id, organization_id, user_id, title, body)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.OrganizationID, n.UserID, n.Title, n.Body)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return r.scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notification WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	scope := authz.NotificationScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)
	if unreadOnly {
		where += " AND read_at IS NULL"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM notification WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, id)
	return err
}

func (r *repoPG) MarkAllRead(ctx context.Context, caller authz.Caller) error {
	scope := authz.NotificationScope(caller)
	if !authz.Satisfiable(scope) {
		return authz.ErrUnauthorized
	}
	where, args := authz.ToSQL(scope, 1)
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read_at = NOW() WHERE `+where+` AND read_at IS NULL`, args...)
	return err
}
