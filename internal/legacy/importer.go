package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Importer copies master data out of the legacy SQL Server HIS into
// the platform database. It is a one-way sync: rows are upserted by
// code, and records deleted on the legacy side are left untouched.
type Importer struct {
	cfg  config.LegacyConfig
	pool *pgxpool.Pool
	log  *zap.Logger

	db *sql.DB
}

// Summary reports how many rows an import run touched
type Summary struct {
	Diagnoses int `json:"diagnoses"`
	Routes    int `json:"routes"`
	Elapsed   time.Duration
}

// NewImporter creates a new legacy importer
func NewImporter(cfg config.LegacyConfig, pool *pgxpool.Pool, log *zap.Logger) *Importer {
	return &Importer{cfg: cfg, pool: pool, log: log}
}

func connString(cfg config.LegacyConfig) string {
	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password)
	if cfg.Encrypt {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}
	return connStr
}

// Connect opens and verifies the legacy database connection
func (i *Importer) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlserver", connString(i.cfg))
	if err != nil {
		return fmt.Errorf("failed to open legacy database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping legacy database: %w", err)
	}

	i.db = db
	return nil
}

// Close closes the legacy database connection
func (i *Importer) Close() {
	if i.db != nil {
		i.db.Close()
	}
}

// Run imports all configured master tables
func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	if i.db == nil {
		return nil, fmt.Errorf("importer not connected")
	}

	start := time.Now()
	summary := &Summary{}

	n, err := i.importDiagnoses(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagnosis import failed: %w", err)
	}
	summary.Diagnoses = n

	n, err = i.importRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("route import failed: %w", err)
	}
	summary.Routes = n

	summary.Elapsed = time.Since(start)
	i.log.Info("legacy import complete",
		zap.Int("diagnoses", summary.Diagnoses),
		zap.Int("routes", summary.Routes),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

func (i *Importer) importDiagnoses(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		SELECT IcdCode, IcdName, IcdVersion, ActiveYN
		FROM %s
		WHERE IcdCode IS NOT NULL`, i.cfg.DiagnosisTable)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var code, name string
		var version, active sql.NullString
		if err := rows.Scan(&code, &name, &version, &active); err != nil {
			return count, err
		}

		ver := version.String
		if ver == "" {
			ver = "ICD-10"
		}
		act := active.String
		if act != "N" {
			act = "Y"
		}

		_, err := i.pool.Exec(ctx, `
			INSERT INTO masters.diagnoses (icd_code, icd_name, icd_version, active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (icd_code) DO UPDATE SET
				icd_name = EXCLUDED.icd_name,
				icd_version = EXCLUDED.icd_version,
				active = EXCLUDED.active,
				updated_at = NOW()`,
			code, name, ver, act)
		if err != nil {
			return count, err
		}
		count++
	}

	return count, rows.Err()
}

func (i *Importer) importRoutes(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		SELECT RouteCode, RouteName, DefaultYN, ActiveYN
		FROM %s
		WHERE RouteCode IS NOT NULL`, i.cfg.RouteTable)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var code, name string
		var isDefault, active sql.NullString
		if err := rows.Scan(&code, &name, &isDefault, &active); err != nil {
			return count, err
		}

		def := isDefault.String
		if def != "Y" {
			def = "N"
		}
		act := active.String
		if act != "N" {
			act = "Y"
		}

		// The default flag is only taken over for new rows; a local
		// default reassignment must not be undone by the next import.
		_, err := i.pool.Exec(ctx, `
			INSERT INTO masters.med_routes (route_code, route_name, is_default, active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (route_code) DO UPDATE SET
				route_name = EXCLUDED.route_name,
				active = EXCLUDED.active,
				updated_at = NOW()`,
			code, name, def, act)
		if err != nil {
			return count, err
		}
		count++
	}

	return count, rows.Err()
}
