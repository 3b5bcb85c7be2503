package patient

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Patient is one entry of the patient registration master. The UHID
// (unique hospital identifier) is assigned at registration and never
// changes afterwards.
type Patient struct {
	PatID         int64       `json:"patId"`
	UHID          string      `json:"uhid"`
	FirstName     string      `json:"firstName"`
	LastName      string      `json:"lastName"`
	DateOfBirth   *time.Time  `json:"dateOfBirth,omitempty"`
	Gender        string      `json:"gender,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Email         string      `json:"email,omitempty"`
	PaymentSource string      `json:"paymentSource,omitempty"`
	Active        types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row
func (p Patient) IsNew() bool {
	return p.PatID == 0
}

// Validate checks required fields before a save
func (p Patient) Validate() map[string]string {
	details := map[string]string{}
	if p.FirstName == "" {
		details["firstName"] = "first name is required"
	}
	if p.LastName == "" {
		details["lastName"] = "last name is required"
	}
	switch p.Gender {
	case "", "male", "female", "other":
	default:
		details["gender"] = "gender must be male, female or other"
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(time.Now()) {
		details["dateOfBirth"] = "date of birth cannot be in the future"
	}
	if p.Active != "" && !p.Active.Valid() {
		details["rActiveYN"] = "active flag must be Y or N"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ListFilter defines filters for listing patients
type ListFilter struct {
	Search          string
	IncludeInactive bool
}
