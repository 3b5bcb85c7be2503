package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	KurrentDB KurrentDBConfig
	Auth      AuthConfig
	Legacy    LegacyConfig
	Codes     CodesConfig
	Alerts    AlertsConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB),
// the stream store behind the domain event bus.
type KurrentDBConfig struct {
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC/HTTP port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// LegacyConfig holds connection settings for the legacy SQL Server HIS
// that master data is imported from.
type LegacyConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Encrypt  bool

	// Source table names, overridable per installation
	DiagnosisTable string
	RouteTable     string
}

// CodesConfig controls advisory code generation for master records.
type CodesConfig struct {
	// PatientPrefix is the UHID prefix for new patient codes
	PatientPrefix string
	// PatientWidth is the zero-pad width of the UHID numeric suffix
	PatientWidth int
}

// AlertsConfig controls the alert delivery service.
type AlertsConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "hims"),
			Password: getEnv("DB_PASSWORD", "hims"),
			Database: getEnv("DB_NAME", "hims"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		KurrentDB: KurrentDBConfig{
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "hims"),
		},
		Legacy: LegacyConfig{
			Enabled:        getEnvBool("LEGACY_IMPORT_ENABLED", false),
			Host:           getEnv("LEGACY_DB_HOST", "localhost"),
			Port:           getEnvInt("LEGACY_DB_PORT", 1433),
			User:           getEnv("LEGACY_DB_USER", "sa"),
			Password:       getEnv("LEGACY_DB_PASSWORD", ""),
			Database:       getEnv("LEGACY_DB_NAME", "HIS"),
			Encrypt:        getEnvBool("LEGACY_DB_ENCRYPT", false),
			DiagnosisTable: getEnv("LEGACY_DIAGNOSIS_TABLE", "dbo.IcdMaster"),
			RouteTable:     getEnv("LEGACY_ROUTE_TABLE", "dbo.MedicationRoutes"),
		},
		Codes: CodesConfig{
			PatientPrefix: getEnv("UHID_PREFIX", "UHID"),
			PatientWidth:  getEnvInt("UHID_WIDTH", 6),
		},
		Alerts: AlertsConfig{
			Workers:       getEnvInt("ALERT_WORKERS", 4),
			BufferSize:    getEnvInt("ALERT_BUFFER_SIZE", 1000),
			RetryAttempts: getEnvInt("ALERT_RETRY_ATTEMPTS", 3),
			RetryDelay:    getEnvDuration("ALERT_RETRY_DELAY", 30*time.Second),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
