package settlement

import (
	"time"

	"github.com/showroom-dms/showroom/internal/ledger"
)

// Eligibility reports whether a sale may leave the showroom.
type Eligibility struct {
	ChassisNo  string         `json:"chassis_no"`
	Allowed    bool           `json:"allowed"`
	Reason     string         `json:"reason,omitempty"`
	GatePassID string         `json:"gate_pass_id,omitempty"`
	Ledger     ledger.Summary `json:"ledger"`
}

// GatePass is the release authorisation for a delivered sale.
type GatePass struct {
	ID                 string    `json:"gate_pass_id"`
	ChassisNo          string    `json:"chassis_no"`
	SaleID             int64     `json:"sale_id"`
	CustomerID         int64     `json:"customer_id"`
	CustomerName       string    `json:"customer_name"`
	IssuedAt           time.Time `json:"issued_at"`
	Reprint            bool      `json:"reprint"`
	ConvertedEnquiries int       `json:"converted_enquiries"`
}

// SaleState is the settlement-relevant part of a sale row.
type SaleState struct {
	ID           int64
	CustomerID   int64
	CustomerName string
	ChassisNo    string
	GatePassID   string
	GatePassDate *time.Time
}

// Issued reports whether the sale already carries a gate pass.
func (s SaleState) Issued() bool {
	return s.GatePassID != ""
}
