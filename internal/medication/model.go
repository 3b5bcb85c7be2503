package medication

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Route is one entry of the medication route master (oral, IV, topical...).
// At most one route is marked as the default for new prescriptions.
type Route struct {
	RouteID   int64       `json:"routeId"`
	Code      string      `json:"routeCode"`
	Name      string      `json:"routeName"`
	IsDefault types.YesNo `json:"defaultYN"`
	Active    types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row
func (rt Route) IsNew() bool {
	return rt.RouteID == 0
}

// Validate checks required fields before a save
func (rt Route) Validate() map[string]string {
	details := map[string]string{}
	if rt.Code == "" {
		details["routeCode"] = "code is required"
	}
	if rt.Name == "" {
		details["routeName"] = "name is required"
	}
	if rt.IsDefault != "" && !rt.IsDefault.Valid() {
		details["defaultYN"] = "default flag must be Y or N"
	}
	if rt.Active != "" && !rt.Active.Valid() {
		details["rActiveYN"] = "active flag must be Y or N"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// Frequency is one entry of the medication frequency master (BID, TID...).
type Frequency struct {
	FreqID      int64       `json:"freqId"`
	Code        string      `json:"freqCode"`
	Name        string      `json:"freqName"`
	TimesPerDay int         `json:"timesPerDay"`
	Active      types.YesNo `json:"rActiveYN"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether saving this record creates a new row
func (f Frequency) IsNew() bool {
	return f.FreqID == 0
}

// Validate checks required fields before a save
func (f Frequency) Validate() map[string]string {
	details := map[string]string{}
	if f.Code == "" {
		details["freqCode"] = "code is required"
	}
	if f.Name == "" {
		details["freqName"] = "name is required"
	}
	if f.TimesPerDay < 0 || f.TimesPerDay > 24 {
		details["timesPerDay"] = "times per day must be between 0 and 24"
	}
	if f.Active != "" && !f.Active.Valid() {
		details["rActiveYN"] = "active flag must be Y or N"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ListFilter defines filters for listing medication masters
type ListFilter struct {
	Search          string
	IncludeInactive bool
}
