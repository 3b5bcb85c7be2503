package alert

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/ebioscore/platform/internal/shared/logging"
	"github.com/ebioscore/platform/internal/shared/types"
)

func TestPatientAlertValidate(t *testing.T) {
	tests := []struct {
		name      string
		alert     PatientAlert
		wantField string
	}{
		{
			name: "valid alert",
			alert: PatientAlert{
				PatientID: 1, Category: CategoryAllergy, Severity: SeverityCritical,
				Title: "Penicillin allergy", Message: "Anaphylaxis documented in 2024",
			},
			wantField: "",
		},
		{
			name: "missing patient",
			alert: PatientAlert{
				Category: CategoryAllergy, Severity: SeverityInfo,
				Title: "t", Message: "m",
			},
			wantField: "patientId",
		},
		{
			name: "bad severity",
			alert: PatientAlert{
				PatientID: 1, Category: CategoryAllergy, Severity: "fatal",
				Title: "t", Message: "m",
			},
			wantField: "severity",
		},
		{
			name: "bad category",
			alert: PatientAlert{
				PatientID: 1, Category: "misc", Severity: SeverityInfo,
				Title: "t", Message: "m",
			},
			wantField: "category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.alert.Validate()
			if tt.wantField == "" {
				if details != nil {
					t.Errorf("Validate() = %v, want nil", details)
				}
				return
			}
			if _, ok := details[tt.wantField]; !ok {
				t.Errorf("Validate() = %v, want error for field %q", details, tt.wantField)
			}
		})
	}
}

type captureProvider struct {
	mu        sync.Mutex
	delivered []string
	failFirst bool
	calls     int
}

func (p *captureProvider) Name() string { return "capture" }

func (p *captureProvider) Deliver(_ context.Context, d *Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failFirst && p.calls == 1 {
		return fmt.Errorf("gateway unavailable")
	}
	p.delivered = append(p.delivered, d.Alert.Title)
	return nil
}

func (p *captureProvider) deliveredTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.delivered...)
}

func testConfig() config.AlertsConfig {
	return config.AlertsConfig{
		Workers:       2,
		BufferSize:    16,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDeliveryServiceDelivers(t *testing.T) {
	svc := NewDeliveryService(testConfig(), logging.NewNop())
	provider := &captureProvider{}
	svc.Register("capture", provider)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	a := PatientAlert{AlertID: types.NewID(), PatientID: 1, Severity: SeverityCritical, Title: "MRSA positive"}
	if err := svc.Submit(a); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, func() bool { return len(provider.deliveredTitles()) == 1 })

	stats := svc.Stats()
	if stats.Sent != 1 {
		t.Errorf("stats.Sent = %d, want 1", stats.Sent)
	}
	if stats.BySeverity[SeverityCritical] != 1 {
		t.Errorf("stats.BySeverity[critical] = %d, want 1", stats.BySeverity[SeverityCritical])
	}
}

func TestDeliveryServiceRetriesFailedAttempts(t *testing.T) {
	svc := NewDeliveryService(testConfig(), logging.NewNop())
	provider := &captureProvider{failFirst: true}
	svc.Register("capture", provider)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()

	a := PatientAlert{AlertID: types.NewID(), PatientID: 1, Severity: SeverityWarning, Title: "Fall risk"}
	if err := svc.Submit(a); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, func() bool { return len(provider.deliveredTitles()) == 1 })

	stats := svc.Stats()
	if stats.Sent != 1 {
		t.Errorf("stats.Sent = %d, want 1", stats.Sent)
	}
	if stats.Failed != 0 {
		t.Errorf("stats.Failed = %d, want 0", stats.Failed)
	}
}

func TestSubmitWithoutProviders(t *testing.T) {
	svc := NewDeliveryService(testConfig(), logging.NewNop())

	err := svc.Submit(PatientAlert{AlertID: types.NewID(), Severity: SeverityInfo})
	if err == nil {
		t.Fatal("expected error when no providers are registered")
	}
}
