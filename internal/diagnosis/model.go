package diagnosis

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Diagnosis is one entry of the ICD diagnosis master.
type Diagnosis struct {
	ICDID   int64       `json:"icdId"`
	Code    string      `json:"icdCode"`
	Name    string      `json:"icdName"`
	Version string      `json:"icdVersion"`
	Active  types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row. A zero
// identifier signals create; anything else updates in place.
func (d Diagnosis) IsNew() bool {
	return d.ICDID == 0
}

// Validate checks required fields before a save
func (d Diagnosis) Validate() map[string]string {
	details := map[string]string{}
	if d.Code == "" {
		details["icdCode"] = "code is required"
	} else if len(d.Code) > 20 {
		details["icdCode"] = "code must be at most 20 characters"
	}
	if d.Name == "" {
		details["icdName"] = "name is required"
	}
	if d.Active != "" && !d.Active.Valid() {
		details["rActiveYN"] = "active flag must be Y or N"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ListFilter defines filters for listing diagnoses
type ListFilter struct {
	Search          string
	Version         string
	IncludeInactive bool
}
