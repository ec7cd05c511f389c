// internal/pricing/engine_test.go
package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuoteTaxAndShipping(t *testing.T) {
	// tax 18%, shipping 50, one line 100.00 x 2
	lines := []Line{{ProductID: uuid.New(), Quantity: 2, UnitPrice: dec("100.00")}}

	q := NewQuote(lines, dec("18"), dec("50"))

	assert.True(t, q.Subtotal.Equal(dec("200.00")), "subtotal = %s", q.Subtotal)
	assert.True(t, q.TaxAmount.Equal(dec("36.00")), "tax = %s", q.TaxAmount)
	assert.True(t, q.ShippingCost.Equal(dec("50.00")), "shipping = %s", q.ShippingCost)
	assert.True(t, q.Total.Equal(dec("286")), "total = %s", q.Total)
	assert.EqualValues(t, 28600, q.TotalMinorUnits())
}

func TestQuoteIntegerRoundingHalfUp(t *testing.T) {
	// 99.99 * 1 at 18% tax: subtotal 99.99, tax 18.00, +50 shipping = 167.99 -> 168
	q := NewQuote([]Line{{Quantity: 1, UnitPrice: dec("99.99")}}, dec("18"), dec("50"))
	require.True(t, q.TaxAmount.Equal(dec("18.00")), "tax = %s", q.TaxAmount)
	assert.True(t, q.Total.Equal(dec("168")), "total = %s", q.Total)

	// .50 fraction rounds up: 10.25 + 0 tax + 0.25 shipping = 10.50 -> 11
	q = NewQuote([]Line{{Quantity: 1, UnitPrice: dec("10.25")}}, decimal.Zero, dec("0.25"))
	assert.True(t, q.Total.Equal(dec("11")), "total = %s", q.Total)
}

func TestQuoteSubtotalRoundsAfterSummation(t *testing.T) {
	// Three lines of 0.333 each sum to 0.999 and round once, to 1.00.
	lines := []Line{
		{Quantity: 1, UnitPrice: dec("0.333")},
		{Quantity: 1, UnitPrice: dec("0.333")},
		{Quantity: 1, UnitPrice: dec("0.333")},
	}
	q := NewQuote(lines, decimal.Zero, decimal.Zero)
	assert.True(t, q.Subtotal.Equal(dec("1.00")), "subtotal = %s", q.Subtotal)
}

func TestQuoteLineSnapshots(t *testing.T) {
	pid := uuid.New()
	q := NewQuote([]Line{{ProductID: pid, Quantity: 3, UnitPrice: dec("49.50")}}, dec("12"), dec("40"))

	require.Len(t, q.Lines, 1)
	line := q.Lines[0]
	assert.Equal(t, pid, line.ProductID)
	assert.Equal(t, 3, line.Quantity)
	// line subtotal 148.50, line tax 17.82, line total 166.32
	assert.True(t, line.Tax.Equal(dec("17.82")), "line tax = %s", line.Tax)
	assert.True(t, line.Total.Equal(dec("166.32")), "line total = %s", line.Total)
}

func TestQuoteDeterministicAndWhole(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: dec("149.99")},
		{Quantity: 1, UnitPrice: dec("799.00")},
	}
	first := NewQuote(lines, dec("18"), dec("50"))
	for i := 0; i < 10; i++ {
		again := NewQuote(lines, dec("18"), dec("50"))
		assert.True(t, first.Total.Equal(again.Total))
		assert.True(t, first.Subtotal.Equal(again.Subtotal))
		assert.True(t, first.TaxAmount.Equal(again.TaxAmount))
	}
	assert.True(t, first.Total.Equal(first.Total.Round(0)), "payable total must be whole")
}

func TestQuoteEmptyCart(t *testing.T) {
	q := NewQuote(nil, dec("18"), dec("50"))
	assert.True(t, q.Subtotal.IsZero())
	assert.True(t, q.TaxAmount.IsZero())
	assert.True(t, q.Total.Equal(dec("50")))
}
