package medication

import (
	"testing"

	"github.com/ebioscore/platform/internal/shared/types"
)

func TestRouteValidate(t *testing.T) {
	tests := []struct {
		name      string
		route     Route
		wantField string
	}{
		{
			name:      "valid route",
			route:     Route{Code: "PO", Name: "Oral", IsDefault: types.Yes},
			wantField: "",
		},
		{
			name:      "missing code",
			route:     Route{Name: "Oral"},
			wantField: "routeCode",
		},
		{
			name:      "missing name",
			route:     Route{Code: "PO"},
			wantField: "routeName",
		},
		{
			name:      "bad default flag",
			route:     Route{Code: "PO", Name: "Oral", IsDefault: "X"},
			wantField: "defaultYN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.route.Validate()
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

func TestFrequencyValidate(t *testing.T) {
	tests := []struct {
		name      string
		frequency Frequency
		wantField string
	}{
		{
			name:      "valid frequency",
			frequency: Frequency{Code: "BID", Name: "Twice a day", TimesPerDay: 2},
			wantField: "",
		},
		{
			name:      "missing code",
			frequency: Frequency{Name: "Twice a day"},
			wantField: "freqCode",
		},
		{
			name:      "times per day out of range",
			frequency: Frequency{Code: "BID", Name: "Twice a day", TimesPerDay: 48},
			wantField: "timesPerDay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.frequency.Validate()
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

func TestRouteIsNew(t *testing.T) {
	rt := Route{Code: "IV", Name: "Intravenous"}
	if !rt.IsNew() {
		t.Error("route without ID should be new")
	}

	rt.RouteID = 3
	if rt.IsNew() {
		t.Error("route with ID should not be new")
	}
}
