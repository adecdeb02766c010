package shared

import (
	"github.com/shopspring/decimal"
)

// DefaultSettlementTolerance is the balance, in ledger currency units, at or
// below which a deal counts as fully paid. Gate-pass eligibility depends on it.
var DefaultSettlementTolerance = decimal.NewFromInt(10)
