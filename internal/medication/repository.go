package medication

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

// Repository provides database operations for the medication masters
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new medication repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const routeColumns = `route_id, route_code, route_name, is_default, active, created_at, updated_at`

const frequencyColumns = `freq_id, freq_code, freq_name, times_per_day, active, created_at, updated_at`

func scanRoute(row pgx.Row) (Route, error) {
	var rt Route
	err := row.Scan(&rt.RouteID, &rt.Code, &rt.Name, &rt.IsDefault, &rt.Active, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

func scanFrequency(row pgx.Row) (Frequency, error) {
	var f Frequency
	err := row.Scan(&f.FreqID, &f.Code, &f.Name, &f.TimesPerDay, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// --- Route Operations ---

// ListRoutes lists medication routes, default route first
func (r *Repository) ListRoutes(ctx context.Context, filter ListFilter) ([]Route, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(route_code ILIKE $%d OR route_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM masters.med_routes
		%s
		ORDER BY is_default DESC, route_code`, routeColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list routes")
	}
	defer rows.Close()

	var list []Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan route")
		}
		list = append(list, rt)
	}

	return list, nil
}

// GetRoute retrieves a medication route by ID
func (r *Repository) GetRoute(ctx context.Context, id int64) (*Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM masters.med_routes WHERE route_id = $1`, routeColumns)

	rt, err := scanRoute(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("route", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get route")
	}

	return &rt, nil
}

// SaveRoute creates or updates a medication route. Saving a route with
// the default flag set clears the flag on the previous default inside
// the same transaction, so at most one default survives either way.
// The displaced route, if any, is returned alongside the saved one.
func (r *Repository) SaveRoute(ctx context.Context, rt *Route) (*Route, *Route, error) {
	if rt.IsDefault == "" {
		rt.IsDefault = types.No
	}
	if rt.Active == "" {
		rt.Active = types.Yes
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var displaced *Route
	if rt.IsDefault == types.Yes {
		query := fmt.Sprintf(`
			UPDATE masters.med_routes SET is_default = 'N', updated_at = NOW()
			WHERE is_default = 'Y' AND route_id != $1
			RETURNING %s`, routeColumns)

		prev, err := scanRoute(tx.QueryRow(ctx, query, rt.RouteID))
		if err != nil && err != pgx.ErrNoRows {
			return nil, nil, errors.Wrap(err, "failed to clear previous default route")
		}
		if err == nil {
			displaced = &prev
		}
	}

	var saved Route
	if rt.IsNew() {
		query := fmt.Sprintf(`
			INSERT INTO masters.med_routes (route_code, route_name, is_default, active)
			VALUES ($1, $2, $3, $4)
			RETURNING %s`, routeColumns)

		saved, err = scanRoute(tx.QueryRow(ctx, query, rt.Code, rt.Name, rt.IsDefault, rt.Active))
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, nil, errors.Conflict("route with this code already exists")
			}
			return nil, nil, errors.Wrap(err, "failed to create route")
		}
	} else {
		query := fmt.Sprintf(`
			UPDATE masters.med_routes SET
				route_code = $2, route_name = $3, is_default = $4, active = $5, updated_at = NOW()
			WHERE route_id = $1
			RETURNING %s`, routeColumns)

		saved, err = scanRoute(tx.QueryRow(ctx, query, rt.RouteID, rt.Code, rt.Name, rt.IsDefault, rt.Active))
		if err == pgx.ErrNoRows {
			return nil, nil, errors.NotFound("route", fmt.Sprint(rt.RouteID))
		}
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, nil, errors.Conflict("route with this code already exists")
			}
			return nil, nil, errors.Wrap(err, "failed to update route")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "failed to commit route save")
	}

	return &saved, displaced, nil
}

// UpdateRouteStatus flips the soft-delete flag on a route
func (r *Repository) UpdateRouteStatus(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE masters.med_routes SET active = $2, updated_at = NOW() WHERE route_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update route status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("route", fmt.Sprint(id))
	}
	return nil
}

// NextRouteCode suggests the next free route code for the given prefix
func (r *Repository) NextRouteCode(ctx context.Context, prefix string, padWidth int) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(route_code FROM $2) AS BIGINT)), 0)
		FROM masters.med_routes
		WHERE route_code ~ $1`

	var max int64
	err := r.pool.QueryRow(ctx, query, codes.SuffixPattern(prefix), len(prefix)+1).Scan(&max)
	if err != nil {
		return "", errors.Wrap(err, "failed to compute next route code")
	}

	return codes.Format(prefix, padWidth, max+1), nil
}

// --- Frequency Operations ---

// ListFrequencies lists medication frequencies
func (r *Repository) ListFrequencies(ctx context.Context, filter ListFilter) ([]Frequency, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(freq_code ILIKE $%d OR freq_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM masters.med_frequencies
		%s
		ORDER BY freq_code`, frequencyColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list frequencies")
	}
	defer rows.Close()

	var list []Frequency
	for rows.Next() {
		f, err := scanFrequency(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan frequency")
		}
		list = append(list, f)
	}

	return list, nil
}

// GetFrequency retrieves a medication frequency by ID
func (r *Repository) GetFrequency(ctx context.Context, id int64) (*Frequency, error) {
	query := fmt.Sprintf(`SELECT %s FROM masters.med_frequencies WHERE freq_id = $1`, frequencyColumns)

	f, err := scanFrequency(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("frequency", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get frequency")
	}

	return &f, nil
}

// SaveFrequency creates or updates a medication frequency
func (r *Repository) SaveFrequency(ctx context.Context, f *Frequency) (*Frequency, error) {
	if f.Active == "" {
		f.Active = types.Yes
	}
	if f.TimesPerDay == 0 {
		f.TimesPerDay = 1
	}

	if f.IsNew() {
		query := fmt.Sprintf(`
			INSERT INTO masters.med_frequencies (freq_code, freq_name, times_per_day, active)
			VALUES ($1, $2, $3, $4)
			RETURNING %s`, frequencyColumns)

		saved, err := scanFrequency(r.pool.QueryRow(ctx, query, f.Code, f.Name, f.TimesPerDay, f.Active))
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, errors.Conflict("frequency with this code already exists")
			}
			return nil, errors.Wrap(err, "failed to create frequency")
		}
		return &saved, nil
	}

	query := fmt.Sprintf(`
		UPDATE masters.med_frequencies SET
			freq_code = $2, freq_name = $3, times_per_day = $4, active = $5, updated_at = NOW()
		WHERE freq_id = $1
		RETURNING %s`, frequencyColumns)

	saved, err := scanFrequency(r.pool.QueryRow(ctx, query, f.FreqID, f.Code, f.Name, f.TimesPerDay, f.Active))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("frequency", fmt.Sprint(f.FreqID))
	}
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, errors.Conflict("frequency with this code already exists")
		}
		return nil, errors.Wrap(err, "failed to update frequency")
	}

	return &saved, nil
}

// UpdateFrequencyStatus flips the soft-delete flag on a frequency
func (r *Repository) UpdateFrequencyStatus(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE masters.med_frequencies SET active = $2, updated_at = NOW() WHERE freq_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update frequency status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("frequency", fmt.Sprint(id))
	}
	return nil
}
