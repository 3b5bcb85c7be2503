package appointment

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Appointment statuses
const (
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Appointment is a booked consultation slot with a provider. Two
// booked appointments for the same provider must not overlap in time.
type Appointment struct {
	ApptID       int64       `json:"apptId"`
	PatientID    int64       `json:"patientId"`
	ProviderName string      `json:"providerName"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      time.Time   `json:"endTime"`
	Reason       string      `json:"reason,omitempty"`
	Status       string      `json:"status"`
	Active       types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row
func (a Appointment) IsNew() bool {
	return a.ApptID == 0
}

// Validate checks required fields before a save
func (a Appointment) Validate() map[string]string {
	details := map[string]string{}
	if a.PatientID == 0 {
		details["patientId"] = "patient is required"
	}
	if a.ProviderName == "" {
		details["providerName"] = "provider is required"
	}
	if a.StartTime.IsZero() {
		details["startTime"] = "start time is required"
	}
	if a.EndTime.IsZero() {
		details["endTime"] = "end time is required"
	} else if !a.StartTime.IsZero() && !a.EndTime.After(a.StartTime) {
		details["endTime"] = "end time must be after start time"
	}
	if a.Status != "" && !ValidStatus(a.Status) {
		details["status"] = "status must be booked, completed, cancelled or no-show"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ValidStatus reports whether s is a known appointment status
func ValidStatus(s string) bool {
	switch s {
	case StatusBooked, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ListFilter defines filters for listing appointments
type ListFilter struct {
	PatientID       int64
	Provider        string
	From            time.Time
	To              time.Time
	IncludeInactive bool
}
