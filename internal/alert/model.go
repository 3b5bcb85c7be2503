package alert

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert categories
const (
	CategoryAllergy          = "allergy"
	CategoryInfectionControl = "infection-control"
	CategoryBilling          = "billing"
	CategorySafety           = "safety"
)

// PatientAlert is a clinical or administrative flag on a patient
// record, shown to staff whenever the patient's chart is opened.
type PatientAlert struct {
	AlertID   types.ID    `json:"alertId"`
	PatientID int64       `json:"patientId"`
	Category  string      `json:"category"`
	Severity  string      `json:"severity"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Active    types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row
func (a PatientAlert) IsNew() bool {
	return a.AlertID.IsZero()
}

// Validate checks required fields before a save
func (a PatientAlert) Validate() map[string]string {
	details := map[string]string{}
	if a.PatientID == 0 {
		details["patientId"] = "patient is required"
	}
	if a.Title == "" {
		details["title"] = "title is required"
	}
	if a.Message == "" {
		details["message"] = "message is required"
	}
	switch a.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		details["severity"] = "severity must be info, warning or critical"
	}
	switch a.Category {
	case CategoryAllergy, CategoryInfectionControl, CategoryBilling, CategorySafety:
	default:
		details["category"] = "unknown alert category"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ListFilter defines filters for listing alerts
type ListFilter struct {
	PatientID       int64
	Severity        string
	IncludeInactive bool
}
