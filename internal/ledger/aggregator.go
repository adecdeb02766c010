package ledger

import "github.com/shopspring/decimal"

// Aggregate derives the settlement position from raw ledger inputs.
//
// Finance disbursements only cover Finance-mode sales. A balance at or below
// tolerance counts as fully paid so rounding on receipts never blocks a gate
// pass.
func Aggregate(in Inputs, tolerance decimal.Decimal) Summary {
	out := Summary{
		CustomerID:     in.CustomerID,
		TotalDebit:     decimal.Zero,
		TotalPaid:      in.TotalPaid,
		FinanceCover:   decimal.Zero,
		CreditApproved: in.CreditApproved,
	}
	for _, sale := range in.Sales {
		out.TotalDebit = out.TotalDebit.Add(sale.GrandTotal)
		if sale.SaleID == in.FocusSaleID {
			out.ChassisNo = sale.ChassisNo
		}
		if sale.Mode != ModeFinance {
			continue
		}
		disbursed := decimal.Zero
		if sale.Disbursed != nil {
			disbursed = *sale.Disbursed
		}
		out.FinanceCover = out.FinanceCover.Add(disbursed)
		if !disbursed.IsPositive() && (in.FocusSaleID == 0 || in.FocusSaleID == sale.SaleID) {
			out.FinancePending = true
		}
	}
	covered := out.TotalPaid.Add(out.FinanceCover).Add(out.CreditApproved)
	out.GlobalBalance = out.TotalDebit.Sub(covered)
	out.IsFullyPaid = out.GlobalBalance.LessThanOrEqual(tolerance)
	return out
}
