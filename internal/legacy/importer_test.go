package legacy

import (
	"testing"

	"github.com/ebioscore/platform/internal/shared/config"
)

func TestConnString(t *testing.T) {
	cfg := config.LegacyConfig{
		Host:     "his.hospital.local",
		Port:     1433,
		User:     "reader",
		Password: "s3cret",
		Database: "HIS",
	}

	got := connString(cfg)
	want := "server=his.hospital.local;port=1433;database=HIS;user id=reader;password=s3cret"
	if got != want {
		t.Errorf("connString() = %q, want %q", got, want)
	}

	cfg.Encrypt = true
	got = connString(cfg)
	want += ";encrypt=true;TrustServerCertificate=true"
	if got != want {
		t.Errorf("connString() with encrypt = %q, want %q", got, want)
	}
}
