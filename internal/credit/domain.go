package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromiseStatus tracks a credit promise.
type PromiseStatus string

const (
	StatusPending   PromiseStatus = "PENDING"
	StatusFulfilled PromiseStatus = "FULFILLED"
	StatusCancelled PromiseStatus = "CANCELLED"
)

const dateLayout = "2006-01-02"

// ApproveCreditRequest authorises release of a sale against a promise to pay.
type ApproveCreditRequest struct {
	ChassisNo   string          `json:"chassis_no" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PromiseDate string          `json:"promise_date" validate:"required"`
	Note        string          `json:"note" validate:"max=500"`
}

// Promise is a recorded commitment to pay an outstanding balance.
type Promise struct {
	ID           int64           `json:"id"`
	SaleID       int64           `json:"sale_id"`
	CustomerID   int64           `json:"customer_id"`
	ChassisNo    string          `json:"chassis_no"`
	Amount       decimal.Decimal `json:"amount"`
	PromiseDate  time.Time       `json:"promise_date"`
	Note         string          `json:"note"`
	ApproverID   int64           `json:"approver_id"`
	ApproverName string          `json:"approver_name"`
	Status       PromiseStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SaleInfo is the part of a sale the workflow locks and stamps.
type SaleInfo struct {
	ID         int64
	CustomerID int64
	ChassisNo  string
	Delivered  bool
}

// DueRow carries the per-customer totals the recovery list is built from.
type DueRow struct {
	CustomerID   int64
	CustomerName string
	Mobile       string
	ChassisNos   []string
	TotalDebit   decimal.Decimal
	TotalPaid    decimal.Decimal
	FinanceCover decimal.Decimal
	Credit       decimal.Decimal
	PromiseDate  *time.Time
}

// Due is a customer who still owes money.
type Due struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Mobile       string          `json:"mobile"`
	ChassisNos   []string        `json:"chassis_nos"`
	Balance      decimal.Decimal `json:"balance"`
	Credit       decimal.Decimal `json:"credit_approved"`
	PromiseDate  *time.Time      `json:"promise_date,omitempty"`
	Overdue      bool            `json:"overdue"`
}

// RecoveryLogRequest records a follow-up with a customer who owes money.
type RecoveryLogRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	ChassisNo  string `json:"chassis_no"`
	ActionType string `json:"action_type" validate:"required,max=40"`
	Response   string `json:"response" validate:"max=1000"`
	NextDate   string `json:"next_date"`
}

// RecoveryLog is one follow-up entry.
type RecoveryLog struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	SaleID     *int64     `json:"sale_id,omitempty"`
	ActionType string     `json:"action_type"`
	Response   string     `json:"response"`
	NextDate   *time.Time `json:"next_date,omitempty"`
	LoggedBy   string     `json:"logged_by"`
	CreatedAt  time.Time  `json:"created_at"`
}
