package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHypothecation is charged on financed sales when none is quoted.
var DefaultHypothecation = decimal.NewFromInt(3500)

// policyTermYears is the bundled insurance term of a new two-wheeler.
const policyTermYears = 5

// GrandTotal sums the chargeable components and subtracts the reductions.
func GrandTotal(c Charges) decimal.Decimal {
	gross := decimal.Sum(c.BasePrice, c.RTO, c.Insurance, c.Accessories, c.ExtendedWarranty,
		c.TempRegistration, c.Documentation, c.OtherCharges, c.Hypothecation)
	return gross.Sub(c.Discount).Sub(c.ExchangeValue).Sub(c.OfferAmount)
}

// PolicyExpiry returns the expiry of a policy started on date.
func PolicyExpiry(date time.Time) time.Time {
	return date.AddDate(policyTermYears, 0, 0)
}

// negativeCharge names the first component below zero.
func negativeCharge(c Charges) (string, bool) {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"base_price", c.BasePrice},
		{"rto", c.RTO},
		{"insurance", c.Insurance},
		{"accessories", c.Accessories},
		{"extended_warranty", c.ExtendedWarranty},
		{"temp_registration", c.TempRegistration},
		{"documentation", c.Documentation},
		{"other_charges", c.OtherCharges},
		{"hypothecation", c.Hypothecation},
		{"discount", c.Discount},
		{"exchange_value", c.ExchangeValue},
		{"offer_amount", c.OfferAmount},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return f.name, true
		}
	}
	return "", false
}
