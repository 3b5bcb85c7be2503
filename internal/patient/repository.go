package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebioscore/platform/internal/shared/codes"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the patient master
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new patient repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `pat_id, uhid, first_name, last_name, date_of_birth, gender, phone, email, payment_source, active, created_at, updated_at`

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	var gender, phone, email, paymentSource *string
	err := row.Scan(&p.PatID, &p.UHID, &p.FirstName, &p.LastName, &p.DateOfBirth,
		&gender, &phone, &email, &paymentSource, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if gender != nil {
		p.Gender = *gender
	}
	if phone != nil {
		p.Phone = *phone
	}
	if email != nil {
		p.Email = *email
	}
	if paymentSource != nil {
		p.PaymentSource = *paymentSource
	}
	return p, err
}

// List lists patients with optional name/UHID search
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Patient, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(uhid ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d)",
			argNum, argNum, argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM masters.patients
		%s
		ORDER BY last_name, first_name`, patientColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var list []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan patient")
		}
		list = append(list, p)
	}

	return list, nil
}

// Get retrieves a patient by ID
func (r *Repository) Get(ctx context.Context, id int64) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM masters.patients WHERE pat_id = $1`, patientColumns)

	p, err := scanPatient(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	return &p, nil
}

// GetByUHID retrieves a patient by hospital identifier
func (r *Repository) GetByUHID(ctx context.Context, uhid string) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM masters.patients WHERE uhid = $1`, patientColumns)

	p, err := scanPatient(r.pool.QueryRow(ctx, query, uhid))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", uhid)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get patient")
	}

	return &p, nil
}

// Save registers a new patient or updates an existing one. A new
// patient without a UHID gets the next one in sequence; the UHID of
// an already registered patient is never changed.
func (r *Repository) Save(ctx context.Context, p *Patient, uhidPrefix string, uhidWidth int) (*Patient, error) {
	if p.Active == "" {
		p.Active = types.Yes
	}

	if p.IsNew() {
		if p.UHID == "" {
			uhid, err := r.NextUHID(ctx, uhidPrefix, uhidWidth)
			if err != nil {
				return nil, err
			}
			p.UHID = uhid
		}

		query := fmt.Sprintf(`
			INSERT INTO masters.patients (uhid, first_name, last_name, date_of_birth, gender, phone, email, payment_source, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING %s`, patientColumns)

		saved, err := scanPatient(r.pool.QueryRow(ctx, query,
			p.UHID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.PaymentSource, p.Active))
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, errors.Conflict("patient with this UHID already exists")
			}
			return nil, errors.Wrap(err, "failed to register patient")
		}
		return &saved, nil
	}

	query := fmt.Sprintf(`
		UPDATE masters.patients SET
			first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
			phone = $6, email = $7, payment_source = $8, active = $9, updated_at = NOW()
		WHERE pat_id = $1
		RETURNING %s`, patientColumns)

	saved, err := scanPatient(r.pool.QueryRow(ctx, query,
		p.PatID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.PaymentSource, p.Active))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("patient", fmt.Sprint(p.PatID))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update patient")
	}

	return &saved, nil
}

// UpdateActiveStatus flips the soft-delete flag
func (r *Repository) UpdateActiveStatus(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE masters.patients SET active = $2, updated_at = NOW() WHERE pat_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update patient status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("patient", fmt.Sprint(id))
	}
	return nil
}

// NextUHID suggests the next hospital identifier. The suggestion is
// not reserved; the unique index on uhid is the final authority.
func (r *Repository) NextUHID(ctx context.Context, prefix string, padWidth int) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(uhid FROM $2) AS BIGINT)), 0)
		FROM masters.patients
		WHERE uhid ~ $1`

	var max int64
	err := r.pool.QueryRow(ctx, query, codes.SuffixPattern(prefix), len(prefix)+1).Scan(&max)
	if err != nil {
		return "", errors.Wrap(err, "failed to compute next UHID")
	}

	return codes.Format(prefix, padWidth, max+1), nil
}
