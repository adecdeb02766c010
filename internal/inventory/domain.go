package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus enumerates the lifecycle of a vehicle or battery unit.
type StockStatus string

const (
	// StatusInStock marks a unit available for sale.
	StatusInStock StockStatus = "IN_STOCK"
	// StatusSold marks a unit attached to a sale but still on the premises.
	StatusSold StockStatus = "SOLD"
	// StatusStockOut marks a unit that left with a gate pass.
	StatusStockOut StockStatus = "STOCK_OUT"
)

// ErrUnknownStatus indicates a status string outside the closed set.
var ErrUnknownStatus = errors.New("inventory: unknown stock status")

// ParseStockStatus normalises the status spellings used by staff and legacy
// imports.
func ParseStockStatus(raw string) (StockStatus, error) {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " "))
	switch key {
	case "in stock", "stock in", "instock", "available":
		return StatusInStock, nil
	case "sold", "booked":
		return StatusSold, nil
	case "stock out", "out of stock", "stockout", "delivered":
		return StatusStockOut, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Label returns the display label.
func (s StockStatus) Label() string {
	switch s {
	case StatusInStock:
		return "In Stock"
	case StatusSold:
		return "Sold"
	case StatusStockOut:
		return "Stock Out"
	default:
		return string(s)
	}
}

// Vehicle is a stock unit identified by its chassis (frame) number.
type Vehicle struct {
	ID               int64           `json:"id"`
	ChassisNo        string          `json:"chassis_no"`
	EngineNo         string          `json:"engine_no"`
	ModelVariant     string          `json:"model_variant"`
	Color            string          `json:"color"`
	KeyNo            string          `json:"key_no"`
	PurchaseDate     time.Time       `json:"purchase_date"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	PurchaseDiscount decimal.Decimal `json:"purchase_discount"`
	Supplier         string          `json:"supplier"`
	Warehouse        string          `json:"warehouse"`
	Status           StockStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Battery is a battery unit identified by serial number.
type Battery struct {
	ID         int64       `json:"id"`
	SerialNo   string      `json:"serial_no"`
	Type       string      `json:"type"`
	InwardDate time.Time   `json:"inward_date"`
	Status     StockStatus `json:"status"`
}

// SaleSummary describes the sale attached to a vehicle.
type SaleSummary struct {
	SaleID       int64           `json:"sale_id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	SaleDate     time.Time       `json:"sale_date"`
	Status       string          `json:"status"`
	GatePassID   string          `json:"gate_pass_id,omitempty"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// VehicleDetail combines stock and sale information.
type VehicleDetail struct {
	Stock Vehicle      `json:"stock"`
	Sale  *SaleSummary `json:"sale"`
}

// InwardRequest registers a purchased vehicle with an optional battery.
type InwardRequest struct {
	ChassisNo     string          `json:"chassis_no" validate:"required,alphanum,max=32"`
	EngineNo      string          `json:"engine_no" validate:"required,max=32"`
	ModelVariant  string          `json:"model_variant" validate:"required,max=80"`
	Color         string          `json:"color" validate:"max=40"`
	KeyNo         string          `json:"key_no" validate:"max=20"`
	PurchaseDate  string          `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Discount      decimal.Decimal `json:"discount"`
	Supplier      string          `json:"supplier" validate:"max=120"`
	Warehouse     string          `json:"warehouse" validate:"max=60"`
	BatterySerial string          `json:"battery_serial" validate:"omitempty,max=40"`
	BatteryType   string          `json:"battery_type" validate:"max=20"`
}

// BatteryUpdate edits a battery's type and status.
type BatteryUpdate struct {
	Type   string `json:"type" validate:"required,max=20"`
	Status string `json:"status" validate:"required"`
}
