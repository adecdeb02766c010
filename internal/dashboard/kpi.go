// Package dashboard serves the showroom's headline figures.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentSalesLimit is how many sales the dashboard lists.
const RecentSalesLimit = 5

// Counters are the single-row totals behind the KPI cards.
type Counters struct {
	SalesCount       int64           `json:"sales_count"`
	Revenue          decimal.Decimal `json:"revenue"`
	StockCount       int64           `json:"stock_count"`
	OpenLeads        int64           `json:"open_leads"`
	PendingDueCount  int64           `json:"pending_due_count"`
	PendingDueAmount decimal.Decimal `json:"pending_due_amount"`
}

// RecentSale is one row of the latest-sales list.
type RecentSale struct {
	SaleDate     time.Time       `json:"sale_date"`
	CustomerName string          `json:"customer_name"`
	ChassisNo    string          `json:"chassis_no"`
	ModelVariant string          `json:"model_variant"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// Summary is the full dashboard payload.
type Summary struct {
	Counters
	RecentSales []RecentSale `json:"recent_sales"`
	GeneratedAt time.Time    `json:"generated_at"`
}
