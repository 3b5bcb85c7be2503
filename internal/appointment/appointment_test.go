package appointment

import (
	"testing"
	"time"
)

func TestAppointmentValidate(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	tests := []struct {
		name        string
		appointment Appointment
		wantField   string
	}{
		{
			name:        "valid appointment",
			appointment: Appointment{PatientID: 1, ProviderName: "Dr. Mehta", StartTime: start, EndTime: end},
			wantField:   "",
		},
		{
			name:        "missing patient",
			appointment: Appointment{ProviderName: "Dr. Mehta", StartTime: start, EndTime: end},
			wantField:   "patientId",
		},
		{
			name:        "missing provider",
			appointment: Appointment{PatientID: 1, StartTime: start, EndTime: end},
			wantField:   "providerName",
		},
		{
			name:        "end before start",
			appointment: Appointment{PatientID: 1, ProviderName: "Dr. Mehta", StartTime: end, EndTime: start},
			wantField:   "endTime",
		},
		{
			name:        "end equals start",
			appointment: Appointment{PatientID: 1, ProviderName: "Dr. Mehta", StartTime: start, EndTime: start},
			wantField:   "endTime",
		},
		{
			name:        "unknown status",
			appointment: Appointment{PatientID: 1, ProviderName: "Dr. Mehta", StartTime: start, EndTime: end, Status: "pending"},
			wantField:   "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.appointment.Validate()
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

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusBooked, StatusCompleted, StatusCancelled, StatusNoShow} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}

	for _, s := range []string{"", "pending", "BOOKED"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true, want false", s)
		}
	}
}
