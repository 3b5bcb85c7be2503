package diagnosis

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

// Repository provides database operations for the diagnosis master
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new diagnosis repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const diagnosisColumns = `icd_id, icd_code, icd_name, icd_version, active, created_at, updated_at`

func scanDiagnosis(row pgx.Row) (Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(&d.ICDID, &d.Code, &d.Name, &d.Version, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// List lists diagnoses with optional filters. Inactive records are
// excluded unless the filter asks for them.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Diagnosis, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.Version != "" {
		conditions = append(conditions, fmt.Sprintf("icd_version = $%d", argNum))
		args = append(args, filter.Version)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(icd_code ILIKE $%d OR icd_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM masters.diagnoses
		%s
		ORDER BY icd_code`, diagnosisColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list diagnoses")
	}
	defer rows.Close()

	var list []Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan diagnosis")
		}
		list = append(list, d)
	}

	return list, nil
}

// Get retrieves a diagnosis by ID
func (r *Repository) Get(ctx context.Context, id int64) (*Diagnosis, error) {
	query := fmt.Sprintf(`SELECT %s FROM masters.diagnoses WHERE icd_id = $1`, diagnosisColumns)

	d, err := scanDiagnosis(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("diagnosis", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get diagnosis")
	}

	return &d, nil
}

// Save creates or updates a diagnosis depending on its identifier and
// returns the stored form.
func (r *Repository) Save(ctx context.Context, d *Diagnosis) (*Diagnosis, error) {
	if d.Version == "" {
		d.Version = "ICD-10"
	}
	if d.Active == "" {
		d.Active = types.Yes
	}

	if d.IsNew() {
		query := fmt.Sprintf(`
			INSERT INTO masters.diagnoses (icd_code, icd_name, icd_version, active)
			VALUES ($1, $2, $3, $4)
			RETURNING %s`, diagnosisColumns)

		saved, err := scanDiagnosis(r.pool.QueryRow(ctx, query, d.Code, d.Name, d.Version, d.Active))
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, errors.Conflict("diagnosis with this code already exists")
			}
			return nil, errors.Wrap(err, "failed to create diagnosis")
		}
		return &saved, nil
	}

	query := fmt.Sprintf(`
		UPDATE masters.diagnoses SET
			icd_code = $2, icd_name = $3, icd_version = $4, active = $5, updated_at = NOW()
		WHERE icd_id = $1
		RETURNING %s`, diagnosisColumns)

	saved, err := scanDiagnosis(r.pool.QueryRow(ctx, query, d.ICDID, d.Code, d.Name, d.Version, d.Active))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("diagnosis", fmt.Sprint(d.ICDID))
	}
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, errors.Conflict("diagnosis with this code already exists")
		}
		return nil, errors.Wrap(err, "failed to update diagnosis")
	}

	return &saved, nil
}

// UpdateActiveStatus flips the soft-delete flag
func (r *Repository) UpdateActiveStatus(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE masters.diagnoses SET active = $2, updated_at = NOW() WHERE icd_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update diagnosis status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("diagnosis", fmt.Sprint(id))
	}
	return nil
}

// NextCode suggests the next free code for the given prefix. The
// suggestion is not reserved; the unique index on icd_code is the
// final authority.
func (r *Repository) NextCode(ctx context.Context, prefix string, padWidth int) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(icd_code FROM $2) AS BIGINT)), 0)
		FROM masters.diagnoses
		WHERE icd_code ~ $1`

	var max int64
	err := r.pool.QueryRow(ctx, query, codes.SuffixPattern(prefix), len(prefix)+1).Scan(&max)
	if err != nil {
		return "", errors.Wrap(err, "failed to compute next diagnosis code")
	}

	return codes.Format(prefix, padWidth, max+1), nil
}
