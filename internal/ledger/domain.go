package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode is how a sale is settled.
type PaymentMode string

const (
	// ModeCash sales are covered by customer payments only.
	ModeCash PaymentMode = "Cash"
	// ModeFinance sales expect a financer disbursement.
	ModeFinance PaymentMode = "Finance"
)

// ErrUnknownPaymentMode indicates a mode outside {Cash, Finance}.
var ErrUnknownPaymentMode = errors.New("ledger: unknown payment mode")

// ParsePaymentMode accepts the mode case-insensitively.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return ModeCash, nil
	case "finance", "financed", "loan":
		return ModeFinance, nil
	default:
		return "", ErrUnknownPaymentMode
	}
}

// PaymentKind separates booking tokens from ordinary receipts.
type PaymentKind string

const (
	KindPayment PaymentKind = "PAYMENT"
	KindToken   PaymentKind = "TOKEN"
)

// SaleCharge is one sale's contribution to the customer ledger.
type SaleCharge struct {
	SaleID     int64
	ChassisNo  string
	GrandTotal decimal.Decimal
	Mode       PaymentMode
	// Disbursed is nil when no disbursement record exists for the sale.
	Disbursed *decimal.Decimal
}

// Inputs carries the raw figures the aggregator works from.
type Inputs struct {
	CustomerID     int64
	Sales          []SaleCharge
	TotalPaid      decimal.Decimal
	CreditApproved decimal.Decimal
	// FocusSaleID restricts the finance pending check to one sale when non-zero.
	FocusSaleID int64
}

// Summary is the settlement position of a customer.
type Summary struct {
	CustomerID     int64           `json:"customer_id"`
	ChassisNo      string          `json:"chassis_no,omitempty"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	FinanceCover   decimal.Decimal `json:"finance_cover"`
	CreditApproved decimal.Decimal `json:"credit_approved"`
	GlobalBalance  decimal.Decimal `json:"global_balance"`
	IsFullyPaid    bool            `json:"is_fully_paid"`
	FinancePending bool            `json:"finance_pending"`
}

// CashBalance is the balance ignoring credit promises.
func (s Summary) CashBalance() decimal.Decimal {
	return s.GlobalBalance.Add(s.CreditApproved)
}

// SaleRef identifies a sale for ledger operations.
type SaleRef struct {
	ID         int64
	CustomerID int64
	ChassisNo  string
	Mode       PaymentMode
	Delivered  bool
}

// Payment is an append-only customer receipt.
type Payment struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	SaleID     *int64          `json:"sale_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	PaidOn     time.Time       `json:"paid_on"`
	Mode       string          `json:"mode"`
	Note       string          `json:"note"`
	Kind       PaymentKind     `json:"kind"`
	CreatedBy  string          `json:"created_by"`
}

// PaymentRequest records a customer receipt, optionally against a sale.
type PaymentRequest struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	ChassisNo  string          `json:"chassis_no"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Mode       string          `json:"mode" validate:"required,max=40"`
	Note       string          `json:"note" validate:"max=500"`
}

// FinanceRequest upserts the disbursement of a financed sale.
type FinanceRequest struct {
	ChassisNo       string          `json:"chassis_no" validate:"required"`
	Financer        string          `json:"financer" validate:"required,max=120"`
	DONumber        string          `json:"do_number" validate:"max=60"`
	DisbursedAmount decimal.Decimal `json:"disbursed_amount"`
}

// FinanceRecord is the disbursement stored for a sale.
type FinanceRecord struct {
	SaleID          int64           `json:"sale_id"`
	CustomerID      int64           `json:"customer_id"`
	ChassisNo       string          `json:"chassis_no"`
	Financer        string          `json:"financer"`
	DONumber        string          `json:"do_number"`
	DisbursedAmount decimal.Decimal `json:"disbursed_amount"`
	UpdatedBy       string          `json:"updated_by"`
}
