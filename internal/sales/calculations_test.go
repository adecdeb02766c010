package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrandTotal(t *testing.T) {
	c := Charges{
		BasePrice:        money(70000),
		RTO:              money(5500),
		Insurance:        money(4200),
		Accessories:      money(900),
		ExtendedWarranty: money(700),
		TempRegistration: money(250),
		Documentation:    money(150),
		OtherCharges:     money(100),
		Hypothecation:    money(3500),
		Discount:         money(1500),
		ExchangeValue:    money(12000),
		OfferAmount:      money(500),
	}
	assert.Equal(t, "71300", GrandTotal(c).String())
	assert.True(t, GrandTotal(Charges{}).IsZero())
}

func TestPolicyExpiry(t *testing.T) {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2031-03-15", PolicyExpiry(start).Format(dateLayout))
	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2029-03-01", PolicyExpiry(leap).Format(dateLayout))
}

func TestDocTypeColumns(t *testing.T) {
	cases := map[string]string{
		"Invoice":   "invoice_path",
		"insurance": "insurance_path",
		" rto ":     "rto_path",
	}
	for raw, column := range cases {
		doc, err := ParseDocType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, column, doc.column())
	}
	_, err := ParseDocType("invoice_path; DROP TABLE sales")
	assert.ErrorIs(t, err, ErrUnknownDocType)
	assert.Empty(t, DocType("Photo").column())
}

func TestParseHSRPStatus(t *testing.T) {
	for raw, want := range map[string]HSRPStatus{"": HSRPPending, "Ordered": HSRPOrdered, "FITTED": HSRPFitted} {
		got, err := ParseHSRPStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseHSRPStatus("installed later")
	assert.Error(t, err)
}
