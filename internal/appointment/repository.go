package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for appointments
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new appointment repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `appt_id, patient_id, provider_name, start_time, end_time, reason, status, active, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	var reason *string
	err := row.Scan(&a.ApptID, &a.PatientID, &a.ProviderName, &a.StartTime, &a.EndTime,
		&reason, &a.Status, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if reason != nil {
		a.Reason = *reason
	}
	return a, err
}

// List lists appointments in chronological order
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
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

	if filter.Provider != "" {
		conditions = append(conditions, fmt.Sprintf("provider_name = $%d", argNum))
		args = append(args, filter.Provider)
		argNum++
	}

	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", argNum))
		args = append(args, filter.From)
		argNum++
	}

	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", argNum))
		args = append(args, filter.To)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduling.appointments
		%s
		ORDER BY start_time`, appointmentColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}
	defer rows.Close()

	var list []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment")
		}
		list = append(list, a)
	}

	return list, nil
}

// Get retrieves an appointment by ID
func (r *Repository) Get(ctx context.Context, id int64) (*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduling.appointments WHERE appt_id = $1`, appointmentColumns)

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("appointment", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get appointment")
	}

	return &a, nil
}

// Save books or reschedules an appointment. The slot check and the
// write run in one transaction so a concurrent booking for the same
// provider cannot slip between them.
func (r *Repository) Save(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.Status == "" {
		a.Status = StatusBooked
	}
	if a.Active == "" {
		a.Active = types.Yes
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if a.Status == StatusBooked {
		var clash string
		err := tx.QueryRow(ctx, `
			SELECT to_char(start_time, 'YYYY-MM-DD HH24:MI')
			FROM scheduling.appointments
			WHERE provider_name = $1 AND status = 'booked' AND active = 'Y'
			  AND appt_id != $2
			  AND start_time < $4 AND end_time > $3
			LIMIT 1`,
			a.ProviderName, a.ApptID, a.StartTime, a.EndTime).Scan(&clash)
		if err != nil && err != pgx.ErrNoRows {
			return nil, errors.Wrap(err, "failed to check provider schedule")
		}
		if err == nil {
			return nil, errors.Conflict(fmt.Sprintf("%s already has an appointment at %s", a.ProviderName, clash))
		}
	}

	var saved Appointment
	if a.IsNew() {
		query := fmt.Sprintf(`
			INSERT INTO scheduling.appointments (patient_id, provider_name, start_time, end_time, reason, status, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING %s`, appointmentColumns)

		saved, err = scanAppointment(tx.QueryRow(ctx, query,
			a.PatientID, a.ProviderName, a.StartTime, a.EndTime, a.Reason, a.Status, a.Active))
		if err != nil {
			return nil, errors.Wrap(err, "failed to book appointment")
		}
	} else {
		query := fmt.Sprintf(`
			UPDATE scheduling.appointments SET
				patient_id = $2, provider_name = $3, start_time = $4, end_time = $5,
				reason = $6, status = $7, active = $8, updated_at = NOW()
			WHERE appt_id = $1
			RETURNING %s`, appointmentColumns)

		saved, err = scanAppointment(tx.QueryRow(ctx, query,
			a.ApptID, a.PatientID, a.ProviderName, a.StartTime, a.EndTime, a.Reason, a.Status, a.Active))
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("appointment", fmt.Sprint(a.ApptID))
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to update appointment")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit appointment save")
	}

	return &saved, nil
}

// UpdateStatus moves an appointment through its lifecycle
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, errors.BadRequest("unknown appointment status")
	}

	query := fmt.Sprintf(`
		UPDATE scheduling.appointments SET status = $2, updated_at = NOW()
		WHERE appt_id = $1
		RETURNING %s`, appointmentColumns)

	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id, status))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("appointment", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update appointment status")
	}

	return &a, nil
}

// UpdateActiveStatus flips the soft-delete flag
func (r *Repository) UpdateActiveStatus(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE scheduling.appointments SET active = $2, updated_at = NOW() WHERE appt_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update appointment status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("appointment", fmt.Sprint(id))
	}
	return nil
}
