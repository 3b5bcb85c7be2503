package billing

import "testing"

func TestReceiptBalance(t *testing.T) {
	tests := []struct {
		name    string
		receipt Receipt
		want    float64
	}{
		{
			name:    "untouched receipt",
			receipt: Receipt{Amount: 5000},
			want:    5000,
		},
		{
			name:    "partially adjusted",
			receipt: Receipt{Amount: 5000, Adjusted: 1200.50},
			want:    3799.50,
		},
		{
			name:    "fully adjusted",
			receipt: Receipt{Amount: 5000, Adjusted: 5000},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.receipt.Balance(); got != tt.want {
				t.Errorf("Balance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReceiptValidate(t *testing.T) {
	tests := []struct {
		name      string
		receipt   Receipt
		wantField string
	}{
		{
			name:      "valid receipt",
			receipt:   Receipt{PatientID: 1, Amount: 5000},
			wantField: "",
		},
		{
			name: "valid receipt with details",
			receipt: Receipt{PatientID: 1, Amount: 5000, Details: []ReceiptDetail{
				{PayMode: "cash", Amount: 2000},
				{PayMode: "card", Amount: 3000},
			}},
			wantField: "",
		},
		{
			name:      "missing patient",
			receipt:   Receipt{Amount: 5000},
			wantField: "patientId",
		},
		{
			name:      "zero amount",
			receipt:   Receipt{PatientID: 1},
			wantField: "amount",
		},
		{
			name:      "adjusted exceeds amount",
			receipt:   Receipt{PatientID: 1, Amount: 100, Adjusted: 200},
			wantField: "adjusted",
		},
		{
			name: "detail missing pay mode",
			receipt: Receipt{PatientID: 1, Amount: 5000, Details: []ReceiptDetail{
				{Amount: 5000},
			}},
			wantField: "details",
		},
		{
			name: "detail totals do not match",
			receipt: Receipt{PatientID: 1, Amount: 5000, Details: []ReceiptDetail{
				{PayMode: "cash", Amount: 2000},
			}},
			wantField: "details",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := tt.receipt.Validate()
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
