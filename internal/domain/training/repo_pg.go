package training

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

const moduleCols = `id, organization_id, created_by_id, title, description, content_url,
	duration_minutes, created_at, updated_at`

func (r *repoPG) scanModule(row pgx.Row) (*Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.OrganizationID, &m.CreatedByID, &m.Title, &m.Description, &m.ContentURL,
		&m.DurationMinutes, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Module) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO training_module (id, organization_id, created_by_id, title, description, content_url, duration_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.OrganizationID, m.CreatedByID, m.Title, m.Description, m.ContentURL, m.DurationMinutes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Module, error) {
	return r.scanModule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+moduleCols+` FROM training_module WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Module, int, error) {
	scope := authz.TrainingModuleScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM training_module WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM training_module WHERE %s ORDER BY title LIMIT $%d OFFSET $%d`,
		moduleCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Module
	for rows.Next() {
		m, err := r.scanModule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
