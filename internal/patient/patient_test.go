package patient

import (
	"testing"
	"time"
)

func TestPatientValidate(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Date(1985, 6, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		patient   Patient
		wantField string
	}{
		{
			name:      "valid patient",
			patient:   Patient{FirstName: "Asha", LastName: "Rao", Gender: "female", DateOfBirth: &past},
			wantField: "",
		},
		{
			name:      "missing first name",
			patient:   Patient{LastName: "Rao"},
			wantField: "firstName",
		},
		{
			name:      "missing last name",
			patient:   Patient{FirstName: "Asha"},
			wantField: "lastName",
		},
		{
			name:      "bad gender",
			patient:   Patient{FirstName: "Asha", LastName: "Rao", Gender: "unknown"},
			wantField: "gender",
		},
		{
			name:      "future date of birth",
			patient:   Patient{FirstName: "Asha", LastName: "Rao", DateOfBirth: &future},
			wantField: "dateOfBirth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.patient.Validate()
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

func TestPatientIsNew(t *testing.T) {
	p := Patient{FirstName: "Asha", LastName: "Rao"}
	if !p.IsNew() {
		t.Error("patient without ID should be new")
	}

	p.PatID = 12
	if p.IsNew() {
		t.Error("patient with ID should not be new")
	}
}
