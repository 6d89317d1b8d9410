package sessionnote

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

const noteCols = `sn.id, sn.organization_id, sn.patient_id, sn.plan_id, sn.created_by_id,
	sn.session_date, sn.duration_minutes, sn.content, sn.created_at, sn.updated_at, sn.deleted_at`

func (r *repoPG) scanNote(row pgx.Row) (*SessionNote, error) {
	var n SessionNote
	err := row.Scan(&n.ID, &n.OrganizationID, &n.PatientID, &n.PlanID, &n.CreatedByID,
		&n.SessionDate, &n.DurationMinutes, &n.Content, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *SessionNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO session_note (id, organization_id, patient_id, plan_id,
			created_by_id, session_date, duration_minutes, content)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.OrganizationID, n.PatientID, n.PlanID,
		n.CreatedByID, n.SessionDate, n.DurationMinutes, n.Content)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*SessionNote, error) {
	return r.scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM session_note sn WHERE sn.id = $1 AND sn.deleted_at IS NULL`, id))
}

func (r *repoPG) Update(ctx context.Context, n *SessionNote) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE session_note SET session_date=$2, duration_minutes=$3, content=$4, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		n.ID, n.SessionDate, n.DurationMinutes, n.Content)
	return err
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE session_note SET deleted_at=NOW(), updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) list(ctx context.Context, caller authz.Caller, patientID *uuid.UUID, limit, offset int) ([]*SessionNote, int, error) {
	scope := authz.SessionNoteScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)
	from := `FROM session_note sn JOIN patient p ON p.id = sn.patient_id`
	if patientID != nil {
		where = fmt.Sprintf("%s AND sn.patient_id = $%d", where, len(args)+1)
		args = append(args, *patientID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY sn.session_date DESC LIMIT $%d OFFSET $%d`,
		noteCols, from, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*SessionNote
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*SessionNote, int, error) {
	return r.list(ctx, caller, nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, caller authz.Caller, patientID uuid.UUID, limit, offset int) ([]*SessionNote, int, error) {
	return r.list(ctx, caller, &patientID, limit, offset)
}
