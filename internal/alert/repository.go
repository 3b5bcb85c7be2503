package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for patient alerts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new alert repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const alertColumns = `alert_id, patient_id, category, severity, title, message, active, created_at, updated_at`

func scanAlert(row pgx.Row) (PatientAlert, error) {
	var a PatientAlert
	err := row.Scan(&a.AlertID, &a.PatientID, &a.Category, &a.Severity, &a.Title,
		&a.Message, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// List lists alerts, most severe first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]PatientAlert, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.PatientID != 0 {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argNum))
		args = append(args, filter.PatientID)
		argNum++
	}

	if filter.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", argNum))
		args = append(args, filter.Severity)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts.patient_alerts
		%s
		ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END, created_at DESC`,
		alertColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts")
	}
	defer rows.Close()

	var list []PatientAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan alert")
		}
		list = append(list, a)
	}

	return list, nil
}

// Get retrieves an alert by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*PatientAlert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts.patient_alerts WHERE alert_id = $1`, alertColumns)

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("alert", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get alert")
	}

	return &a, nil
}

// Save creates or updates a patient alert
func (r *Repository) Save(ctx context.Context, a *PatientAlert) (*PatientAlert, error) {
	if a.Active == "" {
		a.Active = types.Yes
	}

	if a.IsNew() {
		a.AlertID = types.NewID()

		query := fmt.Sprintf(`
			INSERT INTO alerts.patient_alerts (alert_id, patient_id, category, severity, title, message, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING %s`, alertColumns)

		saved, err := scanAlert(r.pool.QueryRow(ctx, query,
			a.AlertID, a.PatientID, a.Category, a.Severity, a.Title, a.Message, a.Active))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create alert")
		}
		return &saved, nil
	}

	query := fmt.Sprintf(`
		UPDATE alerts.patient_alerts SET
			category = $2, severity = $3, title = $4, message = $5, active = $6, updated_at = NOW()
		WHERE alert_id = $1
		RETURNING %s`, alertColumns)

	saved, err := scanAlert(r.pool.QueryRow(ctx, query,
		a.AlertID, a.Category, a.Severity, a.Title, a.Message, a.Active))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("alert", a.AlertID.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update alert")
	}

	return &saved, nil
}

// UpdateActiveStatus flips the soft-delete flag
func (r *Repository) UpdateActiveStatus(ctx context.Context, id types.ID, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE alerts.patient_alerts SET active = $2, updated_at = NOW() WHERE alert_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update alert status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("alert", id.String())
	}
	return nil
}
