package plan

import (
	"context"
	"encoding/json"
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

const planCols = `tp.id, tp.organization_id, tp.patient_id, tp.created_by_id, tp.title,
	tp.status, tp.goals, tp.behaviors, tp.interventions, tp.data_collection,
	tp.created_at, tp.updated_at, tp.deleted_at`

func (r *repoPG) scanPlan(row pgx.Row) (*TreatmentPlan, error) {
	var p TreatmentPlan
	var status string
	var goals, behaviors, interventions, dataCollection []byte
	err := row.Scan(&p.ID, &p.OrganizationID, &p.PatientID, &p.CreatedByID, &p.Title,
		&status, &goals, &behaviors, &interventions, &dataCollection,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	p.Status, err = ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	for _, col := range []struct {
		raw []byte
		dst interface{}
	}{
		{goals, &p.Goals},
		{behaviors, &p.Behaviors},
		{interventions, &p.Interventions},
		{dataCollection, &p.DataCollection},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("plan %s: decode sub-records: %w", p.ID, err)
		}
	}
	return &p, nil
}

func marshalSubRecords(p *TreatmentPlan) (goals, behaviors, interventions, dataCollection []byte, err error) {
	if goals, err = json.Marshal(p.Goals); err != nil {
		return
	}
	if behaviors, err = json.Marshal(p.Behaviors); err != nil {
		return
	}
	if interventions, err = json.Marshal(p.Interventions); err != nil {
		return
	}
	dataCollection, err = json.Marshal(p.DataCollection)
	return
}

func (r *repoPG) Create(ctx context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	goals, behaviors, interventions, dataCollection, err := marshalSubRecords(p)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_plan (id, organization_id, patient_id, created_by_id,
			title, status, goals, behaviors, interventions, data_collection)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.OrganizationID, p.PatientID, p.CreatedByID,
		p.Title, string(p.Status), goals, behaviors, interventions, dataCollection)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return r.scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM treatment_plan tp WHERE tp.id = $1 AND tp.deleted_at IS NULL`, id))
}

// Update writes content fields only. Status changes go through
// TransitionStatus so the approval chain cannot be bypassed by an edit.
func (r *repoPG) Update(ctx context.Context, p *TreatmentPlan) error {
	goals, behaviors, interventions, dataCollection, err := marshalSubRecords(p)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE treatment_plan SET title=$2, goals=$3, behaviors=$4, interventions=$5,
			data_collection=$6, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.Title, goals, behaviors, interventions, dataCollection)
	return err
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE treatment_plan SET deleted_at=NOW(), updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*TreatmentPlan, int, error) {
	scope := authz.TreatmentPlanScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)
	from := `FROM treatment_plan tp JOIN patient p ON p.id = tp.patient_id`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+from+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY tp.created_at DESC LIMIT $%d OFFSET $%d`,
		planCols, from, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*TreatmentPlan
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	// The stored row may still carry the legacy manager-review label.
	accepted := []string{string(expected)}
	if expected == StatusPendingManager {
		accepted = append(accepted, legacyPendingManager)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_plan SET status=$2, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status = ANY($3)`,
		id, string(next), accepted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

const commentCols = `c.id, c.plan_id, c.organization_id, c.created_by_id, c.body,
	c.created_at, c.deleted_at`

func (r *repoPG) scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PlanID, &c.OrganizationID, &c.CreatedByID, &c.Body,
		&c.CreatedAt, &c.DeletedAt)
	return &c, err
}

func (r *repoPG) CreateComment(ctx context.Context, c *Comment) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO plan_comment (id, plan_id, organization_id, created_by_id, body)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.PlanID, c.OrganizationID, c.CreatedByID, c.Body)
	return err
}

func (r *repoPG) GetCommentByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return r.scanComment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+commentCols+` FROM plan_comment c WHERE c.id = $1 AND c.deleted_at IS NULL`, id))
}

func (r *repoPG) ListComments(ctx context.Context, caller authz.Caller, planID uuid.UUID, limit, offset int) ([]*Comment, int, error) {
	scope := authz.CommentScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)
	from := `FROM plan_comment c
		JOIN treatment_plan tp ON tp.id = c.plan_id
		JOIN patient p ON p.id = tp.patient_id`

	planArg := len(args) + 1
	args = append(args, planID)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) %s WHERE %s AND c.plan_id = $%d`, from, where, planArg)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s AND c.plan_id = $%d ORDER BY c.created_at ASC LIMIT $%d OFFSET $%d`,
		commentCols, from, where, planArg, planArg+1, planArg+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Comment
	for rows.Next() {
		c, err := r.scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SoftDeleteComment(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE plan_comment SET deleted_at=NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}
