package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaworks/aba/internal/platform/authz"
	"github.com/abaworks/aba/internal/platform/db"
	"github.com/abaworks/aba/internal/platform/hipaa"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// repoPG stores patients with PHI encrypted per column. Encryption and
// decryption happen here, at the read/write edge, so the rest of the
// application only ever sees plaintext PHI in memory.
type repoPG struct {
	pool *pgxpool.Pool
	phi  *hipaa.Service
}

func NewRepoPG(pool *pgxpool.Pool, phi *hipaa.Service) Repository {
	return &repoPG{pool: pool, phi: phi}
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

const patientCols = `id, organization_id, assigned_bcba_id, assigned_rbt_id,
	first_name, last_name, date_of_birth, ssn, address, emergency_contact, insurance,
	diagnosis, notes, created_at, updated_at, deleted_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var enc hipaa.EncryptedPHIRecord
	err := row.Scan(&p.ID, &p.OrganizationID, &p.AssignedBCBAID, &p.AssignedRBTID,
		&enc.FirstName, &enc.LastName, &enc.DateOfBirth, &enc.SSN,
		&enc.Address, &enc.EmergencyContact, &enc.Insurance,
		&p.Diagnosis, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	p.PHI, err = hipaa.DecryptRecord(r.phi, enc)
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", p.ID, err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	enc, err := hipaa.EncryptRecord(r.phi, p.PHI)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, organization_id, assigned_bcba_id, assigned_rbt_id,
			first_name, last_name, date_of_birth, ssn, address, emergency_contact,
			insurance, diagnosis, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrganizationID, p.AssignedBCBAID, p.AssignedRBTID,
		enc.FirstName, enc.LastName, enc.DateOfBirth, enc.SSN, enc.Address,
		enc.EmergencyContact, enc.Insurance, p.Diagnosis, p.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	enc, err := hipaa.EncryptRecord(r.phi, p.PHI)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE patient SET assigned_bcba_id=$2, assigned_rbt_id=$3,
			first_name=$4, last_name=$5, date_of_birth=$6, ssn=$7, address=$8,
			emergency_contact=$9, insurance=$10, diagnosis=$11, notes=$12,
			updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.AssignedBCBAID, p.AssignedRBTID,
		enc.FirstName, enc.LastName, enc.DateOfBirth, enc.SSN, enc.Address,
		enc.EmergencyContact, enc.Insurance, p.Diagnosis, p.Notes)
	return err
}

// SoftDelete marks the row; patient rows are never physically removed.
func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET deleted_at=NOW(), updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, caller authz.Caller, limit, offset int) ([]*Patient, int, error) {
	scope := authz.PatientScope(caller)
	if !authz.Satisfiable(scope) {
		return nil, 0, nil
	}
	where, args := authz.ToSQL(scope, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patient WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
