package org

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

const orgCols = `id, name, address, phone, created_at, updated_at, deleted_at`

func (r *repoPG) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var o Organization
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&o.ID, &o.Name, &o.Address, &o.Phone, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	return &o, err
}

func (r *repoPG) UpdateOrganization(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET name=$2, address=$3, phone=$4, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Name, o.Address, o.Phone)
	return err
}

const userCols = `id, organization_id, email, first_name, last_name, role,
	password_hash, is_active, created_at, updated_at, deleted_at`

func (r *repoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.FirstName, &u.LastName, &role,
		&u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	u.Role = authz.ParseRole(role)
	return &u, err
}

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, organization_id, email, first_name, last_name, role, password_hash, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.OrganizationID, u.Email, u.FirstName, u.LastName, string(u.Role), u.PasswordHash, u.IsActive)
	return err
}

func (r *repoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`, email))
}

func (r *repoPG) ListUsers(ctx context.Context, caller authz.Caller, limit, offset int) ([]*User, int, error) {
	scope := authz.UserScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, authz.ErrUnauthorized
	}
	where, args := authz.ToSQL(scope, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM app_user WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM app_user WHERE %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		userCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateUserRole(ctx context.Context, id uuid.UUID, role authz.Role) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET role=$2, updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, string(role))
	return err
}

func (r *repoPG) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET is_active=$2, updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, active)
	return err
}

// AdminUserIDs matches both the canonical and the legacy manager role label,
// since rows written before the rename still carry it.
func (r *repoPG) AdminUserIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id FROM app_user
		WHERE organization_id = $1 AND deleted_at IS NULL AND is_active
		  AND role IN ('ORG_ADMIN', 'CLINICAL_MANAGER', 'CLINICAL_DIRECTOR')`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
