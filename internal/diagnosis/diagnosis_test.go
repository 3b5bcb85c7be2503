package diagnosis

import (
	"encoding/json"
	"testing"

	"github.com/ebioscore/platform/internal/shared/types"
)

func TestDiagnosisValidate(t *testing.T) {
	tests := []struct {
		name      string
		diagnosis Diagnosis
		wantField string
	}{
		{
			name:      "valid diagnosis",
			diagnosis: Diagnosis{Code: "A00.0", Name: "Cholera due to Vibrio cholerae"},
			wantField: "",
		},
		{
			name:      "missing code",
			diagnosis: Diagnosis{Name: "Cholera"},
			wantField: "icdCode",
		},
		{
			name:      "missing name",
			diagnosis: Diagnosis{Code: "A00.0"},
			wantField: "icdName",
		},
		{
			name:      "code too long",
			diagnosis: Diagnosis{Code: "A00.0000000000000000000000000", Name: "Cholera"},
			wantField: "icdCode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.diagnosis.Validate()
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

func TestDiagnosisIsNew(t *testing.T) {
	d := Diagnosis{Code: "A00.0", Name: "Cholera"}
	if !d.IsNew() {
		t.Error("diagnosis without ID should be new")
	}

	d.ICDID = 42
	if d.IsNew() {
		t.Error("diagnosis with ID should not be new")
	}
}

func TestDiagnosisJSONFieldNames(t *testing.T) {
	d := Diagnosis{
		ICDID:   7,
		Code:    "J18.9",
		Name:    "Pneumonia, unspecified organism",
		Version: "ICD-10",
		Active:  types.Yes,
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, want := range []string{"icdId", "icdCode", "icdName", "icdVersion", "rActiveYN"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("marshaled diagnosis missing field %q", want)
		}
	}
}
