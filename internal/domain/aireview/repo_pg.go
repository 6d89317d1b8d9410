package aireview

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

const reviewCols = `ar.id, ar.organization_id, ar.plan_id, ar.requested_by_id,
	ar.model, ar.summary, ar.findings, ar.score, ar.created_at`

func (r *repoPG) scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.OrganizationID, &rv.PlanID, &rv.RequestedByID,
		&rv.Model, &rv.Summary, &rv.Findings, &rv.Score, &rv.CreatedAt)
	return &rv, err
}

func (r *repoPG) Create(ctx context.Context, rv *Review) error {
	rv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ai_review (id, organization_id, plan_id, requested_by_id, model, summary, findings, score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rv.ID, rv.OrganizationID, rv.PlanID, rv.RequestedByID, rv.Model, rv.Summary, rv.Findings, rv.Score)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	return r.scanReview(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reviewCols+` FROM ai_review ar WHERE ar.id = $1`, id))
}

func (r *repoPG) ListByPlan(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	scope := authz.AIReviewScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)
	from := `FROM ai_review ar
		JOIN treatment_plan tp ON tp.id = ar.plan_id
		JOIN patient p ON p.id = tp.patient_id`
	where = fmt.Sprintf("%s AND ar.plan_id = $%d", where, len(args)+1)
	args = append(args, planID)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY ar.created_at DESC LIMIT $%d OFFSET $%d`,
		reviewCols, from, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Review
	for rows.Next() {
		rv, err := r.scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rv)
	}
	return items, total, rows.Err()
}
