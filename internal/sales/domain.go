package sales

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/showroom-dms/showroom/internal/ledger"
)

const dateLayout = "2006-01-02"

// Status is the delivery state of a sale record.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusDelivered Status = "DELIVERED"
)

// ParseStatus accepts the stored value or its label.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "booked":
		return StatusBooked, nil
	case "delivered", "gate pass issued":
		return StatusDelivered, nil
	default:
		return "", errors.New("sales: unknown status")
	}
}

// HSRPStatus tracks the high security registration plate.
type HSRPStatus string

const (
	HSRPPending HSRPStatus = "Pending"
	HSRPOrdered HSRPStatus = "Ordered"
	HSRPFitted  HSRPStatus = "Fitted"
)

// ParseHSRPStatus normalises an HSRP status. Blank means Pending.
func ParseHSRPStatus(raw string) (HSRPStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending":
		return HSRPPending, nil
	case "ordered", "applied":
		return HSRPOrdered, nil
	case "fitted", "done":
		return HSRPFitted, nil
	default:
		return "", errors.New("sales: unknown HSRP status")
	}
}

// DocType is the closed set of documents attachable to a sale.
type DocType string

const (
	DocInvoice   DocType = "Invoice"
	DocInsurance DocType = "Insurance"
	DocRTO       DocType = "RTO"
)

// ErrUnknownDocType is returned for a document type outside the closed set.
var ErrUnknownDocType = errors.New("sales: unknown document type")

// ParseDocType matches a document type case-insensitively.
func ParseDocType(raw string) (DocType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "invoice":
		return DocInvoice, nil
	case "insurance":
		return DocInsurance, nil
	case "rto":
		return DocRTO, nil
	default:
		return "", ErrUnknownDocType
	}
}

// column is the fixed sales column holding the document path.
func (d DocType) column() string {
	switch d {
	case DocInvoice:
		return "invoice_path"
	case DocInsurance:
		return "insurance_path"
	case DocRTO:
		return "rto_path"
	default:
		return ""
	}
}

// Charges is the price breakdown of a sale.
type Charges struct {
	BasePrice        decimal.Decimal `json:"base_price"`
	RTO              decimal.Decimal `json:"rto"`
	Insurance        decimal.Decimal `json:"insurance"`
	Accessories      decimal.Decimal `json:"accessories"`
	ExtendedWarranty decimal.Decimal `json:"extended_warranty"`
	TempRegistration decimal.Decimal `json:"temp_registration"`
	Documentation    decimal.Decimal `json:"documentation"`
	OtherCharges     decimal.Decimal `json:"other_charges"`
	Hypothecation    decimal.Decimal `json:"hypothecation"`
	Discount         decimal.Decimal `json:"discount"`
	ExchangeValue    decimal.Decimal `json:"exchange_value"`
	OfferName        string          `json:"offer_name"`
	OfferAmount      decimal.Decimal `json:"offer_amount"`
}

// Exchange describes the old vehicle taken in part payment.
type Exchange struct {
	OldModel     string `json:"old_model" validate:"max=120"`
	OldRegNo     string `json:"old_reg_no" validate:"max=20"`
	OldEngineNo  string `json:"old_engine_no" validate:"max=40"`
	OldChassisNo string `json:"old_chassis_no" validate:"max=40"`
}

// CreateSaleRequest is the point-of-sale payload.
type CreateSaleRequest struct {
	CustomerID    int64  `json:"customer_id" validate:"gte=0"`
	CustomerName  string `json:"customer_name" validate:"max=120"`
	Mobile        string `json:"mobile"`
	ChassisNo     string `json:"chassis_no" validate:"required,max=40"`
	BatterySerial string `json:"battery_serial" validate:"max=40"`
	SaleDate      string `json:"sale_date"`
	PaymentMode   string `json:"payment_mode" validate:"required"`
	Financer      string `json:"financer" validate:"max=120"`
	Charges
	IsExchange bool     `json:"is_exchange"`
	Exchange   Exchange `json:"exchange"`
}

// Sale is a delivery record with its compliance and document fields.
type Sale struct {
	ID              int64              `json:"id"`
	SaleDate        time.Time          `json:"sale_date"`
	CustomerID      int64              `json:"customer_id"`
	CustomerName    string             `json:"customer_name"`
	ChassisNo       string             `json:"chassis_no"`
	ModelVariant    string             `json:"model_variant"`
	Color           string             `json:"color"`
	BatterySerial   string             `json:"battery_serial,omitempty"`
	Charges         Charges            `json:"charges"`
	GrandTotal      decimal.Decimal    `json:"grand_total"`
	PaymentMode     ledger.PaymentMode `json:"payment_mode"`
	Financer        string             `json:"financer"`
	Status          Status             `json:"status"`
	GatePassID      string             `json:"gate_pass_id,omitempty"`
	GatePassDate    *time.Time         `json:"gate_pass_date,omitempty"`
	PromiseDate     *time.Time         `json:"promise_date,omitempty"`
	PromiseNote     string             `json:"promise_note,omitempty"`
	Compliance      Compliance         `json:"compliance"`
	InvoicePath     string             `json:"invoice_path,omitempty"`
	InsurancePath   string             `json:"insurance_path,omitempty"`
	RTOPath         string             `json:"rto_path,omitempty"`
	CreatedBy       string             `json:"created_by"`
	CreatedAt       time.Time          `json:"created_at"`
	CustomerCreated bool               `json:"customer_created,omitempty"`
}

// Compliance is the post-sale paperwork stored on a sale.
type Compliance struct {
	InvoiceNo       string          `json:"invoice_no"`
	InvoiceDate     *time.Time      `json:"invoice_date,omitempty"`
	PolicyNo        string          `json:"policy_no"`
	Insurer         string          `json:"insurer"`
	InsuranceAmount decimal.Decimal `json:"insurance_amount"`
	PolicyDate      *time.Time      `json:"policy_date,omitempty"`
	PolicyExpiry    *time.Time      `json:"policy_expiry,omitempty"`
	RegistrationNo  string          `json:"registration_no"`
	RTODate         *time.Time      `json:"rto_date,omitempty"`
	RTOCost         decimal.Decimal `json:"rto_cost"`
	HSRPStatus      HSRPStatus      `json:"hsrp_status"`
}

// ComplianceRequest updates invoice, insurance, RTO and HSRP details.
type ComplianceRequest struct {
	InvoiceNo       string          `json:"invoice_no" validate:"max=40"`
	InvoiceDate     string          `json:"invoice_date"`
	PolicyNo        string          `json:"policy_no" validate:"max=60"`
	Insurer         string          `json:"insurer" validate:"max=120"`
	InsuranceAmount decimal.Decimal `json:"insurance_amount"`
	PolicyDate      string          `json:"policy_date"`
	RegistrationNo  string          `json:"registration_no" validate:"max=20"`
	RTODate         string          `json:"rto_date"`
	RTOCost         decimal.Decimal `json:"rto_cost"`
	HSRPStatus      string          `json:"hsrp_status"`
}

// DocumentRequest records where an uploaded document was stored.
type DocumentRequest struct {
	DocType string `json:"doc_type" validate:"required"`
	Path    string `json:"path" validate:"required,max=500"`
}

// ExchangeIntake is the stored record of an exchanged vehicle.
type ExchangeIntake struct {
	SaleID     int64
	ChassisNo  string
	Exchange   Exchange
	Value      decimal.Decimal
	ReceivedOn time.Time
}

// ModelCharges holds the default charges of a model variant.
type ModelCharges struct {
	ModelVariant     string          `json:"model_variant"`
	ExShowroom       decimal.Decimal `json:"ex_showroom"`
	RTO              decimal.Decimal `json:"rto"`
	Insurance        decimal.Decimal `json:"insurance"`
	Accessories      decimal.Decimal `json:"accessories"`
	ExtendedWarranty decimal.Decimal `json:"extended_warranty"`
	TempRegistration decimal.Decimal `json:"temp_registration"`
	Documentation    decimal.Decimal `json:"documentation"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status Status
	Search string
}
