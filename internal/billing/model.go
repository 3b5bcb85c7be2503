package billing

import (
	"time"

	"github.com/ebioscore/platform/internal/shared/types"
)

// Receipt is an advance payment received from a patient. The adjusted
// column tracks how much of it has been applied against bills; the
// remainder is the balance available for future adjustment.
type Receipt struct {
	ReceiptID   int64       `json:"receiptId"`
	Code        string      `json:"receiptCode"`
	PatientID   int64       `json:"patientId"`
	Amount      float64     `json:"amount"`
	Adjusted    float64     `json:"adjusted"`
	ReceiptDate time.Time   `json:"receiptDate"`
	Remarks     string      `json:"remarks,omitempty"`
	Active      types.YesNo `json:"rActiveYN"`

	Details []ReceiptDetail `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance returns the unadjusted remainder of the receipt
func (rc Receipt) Balance() float64 {
	return rc.Amount - rc.Adjusted
}

// IsNew reports whether saving this record creates a new row
func (rc Receipt) IsNew() bool {
	return rc.ReceiptID == 0
}

// Validate checks required fields before a save
func (rc Receipt) Validate() map[string]string {
	details := map[string]string{}
	if rc.PatientID == 0 {
		details["patientId"] = "patient is required"
	}
	if rc.Amount <= 0 {
		details["amount"] = "amount must be positive"
	}
	if rc.Adjusted < 0 {
		details["adjusted"] = "adjusted amount cannot be negative"
	}
	if rc.Adjusted > rc.Amount {
		details["adjusted"] = "adjusted amount cannot exceed the receipt amount"
	}

	var detailTotal float64
	for _, d := range rc.Details {
		if d.PayMode == "" {
			details["details"] = "pay mode is required on every detail line"
			break
		}
		if d.Amount <= 0 {
			details["details"] = "detail amounts must be positive"
			break
		}
		detailTotal += d.Amount
	}
	if _, ok := details["details"]; !ok && len(rc.Details) > 0 && detailTotal != rc.Amount {
		details["details"] = "detail amounts must add up to the receipt amount"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// ReceiptDetail is one payment line on a receipt (cash, card, UPI...).
type ReceiptDetail struct {
	DetailID  int64   `json:"detailId"`
	ReceiptID int64   `json:"receiptId"`
	PayMode   string  `json:"payMode"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AdjustmentRequest applies part of a receipt's balance against a bill
type AdjustmentRequest struct {
	Amount  float64 `json:"amount"`
	Remarks string  `json:"remarks,omitempty"`
}

// ListFilter defines filters for listing receipts
type ListFilter struct {
	PatientID       int64
	IncludeInactive bool
}
