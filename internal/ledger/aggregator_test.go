package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func money(units int64) decimal.Decimal {
	return decimal.NewFromInt(units)
}

func moneyPtr(units int64) *decimal.Decimal {
	m := money(units)
	return &m
}

func assertMoney(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, got.Equal(money(want)), "%s: want %d, got %s", field, want, got)
}

func TestAggregateScenarios(t *testing.T) {
	tolerance := money(10)
	cases := []struct {
		name           string
		in             Inputs
		balance        int64
		fullyPaid      bool
		financePending bool
	}{
		{
			name:    "cash deal partly paid",
			in:      Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(100000), Mode: ModeCash}}, TotalPaid: money(60000)},
			balance: 40000,
		},
		{
			name: "credit covers the remainder",
			in: Inputs{
				Sales:          []SaleCharge{{SaleID: 1, GrandTotal: money(100000), Mode: ModeCash}},
				TotalPaid:      money(60000),
				CreditApproved: money(40000),
			},
			balance:   0,
			fullyPaid: true,
		},
		{
			name:           "finance with zero disbursement",
			in:             Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(100000), Mode: ModeFinance, Disbursed: moneyPtr(0)}}, TotalPaid: money(100000)},
			balance:        0,
			fullyPaid:      true,
			financePending: true,
		},
		{
			name:           "finance without record",
			in:             Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(90000), Mode: ModeFinance}}, TotalPaid: money(20000)},
			balance:        70000,
			financePending: true,
		},
		{
			name:      "finance disbursed",
			in:        Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(90000), Mode: ModeFinance, Disbursed: moneyPtr(70000)}}, TotalPaid: money(20000)},
			balance:   0,
			fullyPaid: true,
		},
		{
			name:    "disbursement on cash sale is ignored",
			in:      Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(50000), Mode: ModeCash, Disbursed: moneyPtr(50000)}}},
			balance: 50000,
		},
		{
			name:      "balance within tolerance",
			in:        Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(100010), Mode: ModeCash}}, TotalPaid: money(100000)},
			balance:   10,
			fullyPaid: true,
		},
		{
			name:    "balance just over tolerance",
			in:      Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(100011), Mode: ModeCash}}, TotalPaid: money(100000)},
			balance: 11,
		},
		{
			name:      "overpaid",
			in:        Inputs{Sales: []SaleCharge{{SaleID: 1, GrandTotal: money(1000), Mode: ModeCash}}, TotalPaid: money(5000)},
			balance:   -4000,
			fullyPaid: true,
		},
		{
			name: "multiple sales aggregate",
			in: Inputs{
				Sales: []SaleCharge{
					{SaleID: 1, GrandTotal: money(80000), Mode: ModeCash},
					{SaleID: 2, GrandTotal: money(120000), Mode: ModeFinance, Disbursed: moneyPtr(100000)},
				},
				TotalPaid: money(90000),
			},
			balance: 10000,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(tc.in, tolerance)
			assertMoney(t, tc.balance, got.GlobalBalance, "balance")
			assert.Equal(t, tc.fullyPaid, got.IsFullyPaid)
			assert.Equal(t, tc.financePending, got.FinancePending)
		})
	}
}

func TestAggregateFocusScopesFinancePending(t *testing.T) {
	in := Inputs{
		Sales: []SaleCharge{
			{SaleID: 1, ChassisNo: "CASH1", GrandTotal: money(50000), Mode: ModeCash},
			{SaleID: 2, ChassisNo: "FIN2", GrandTotal: money(70000), Mode: ModeFinance},
		},
		TotalPaid: money(120000),
	}

	all := Aggregate(in, money(10))
	assert.True(t, all.FinancePending)

	in.FocusSaleID = 1
	cash := Aggregate(in, money(10))
	assert.False(t, cash.FinancePending)
	assert.Equal(t, "CASH1", cash.ChassisNo)

	in.FocusSaleID = 2
	assert.True(t, Aggregate(in, money(10)).FinancePending)
}

func TestAggregateBalanceIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tolerance := money(10)
	for i := 0; i < 500; i++ {
		var in Inputs
		for n := rng.Intn(4); n >= 0; n-- {
			sale := SaleCharge{SaleID: int64(n + 1), GrandTotal: money(rng.Int63n(200000)), Mode: ModeCash}
			if rng.Intn(2) == 0 {
				sale.Mode = ModeFinance
				if rng.Intn(3) > 0 {
					sale.Disbursed = moneyPtr(rng.Int63n(150000))
				}
			}
			in.Sales = append(in.Sales, sale)
		}
		in.TotalPaid = money(rng.Int63n(200000))
		in.CreditApproved = money(rng.Int63n(50000))

		got := Aggregate(in, tolerance)
		covered := got.TotalPaid.Add(got.FinanceCover).Add(got.CreditApproved)
		assert.True(t, got.GlobalBalance.Equal(got.TotalDebit.Sub(covered)))
		assert.Equal(t, got.GlobalBalance.LessThanOrEqual(tolerance), got.IsFullyPaid)
		assert.True(t, got.CashBalance().Equal(got.TotalDebit.Sub(got.TotalPaid).Sub(got.FinanceCover)))
	}
}

func TestParsePaymentMode(t *testing.T) {
	mode, err := ParsePaymentMode(" finance ")
	assert.NoError(t, err)
	assert.Equal(t, ModeFinance, mode)

	mode, err = ParsePaymentMode("CASH")
	assert.NoError(t, err)
	assert.Equal(t, ModeCash, mode)

	_, err = ParsePaymentMode("barter")
	assert.ErrorIs(t, err, ErrUnknownPaymentMode)
}
