// internal/pricing/engine.go
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one cart position priced with the authoritative unit price read
// under the product row lock. Client-submitted prices never reach here.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

type LineQuote struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// Quote carries order-level figures at 2-decimal precision and the payable
// Total rounded to the whole currency unit. The split matters: the gateway is
// charged (and later re-verified against) Total in minor units, while the
// stored subtotal/tax keep their paise precision.
type Quote struct {
	Lines        []LineQuote
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// NewQuote computes subtotal, tax and the integer-rounded payable total.
// Pure; safe without any lock. Callers that care about drift re-run it inside
// the settlement transaction from snapshotted settings.
//
// Rounding is half-up: the subtotal rounds to 2 places after summation, tax
// rounds to 2 places, the payable total rounds to 0 places.
func NewQuote(lines []Line, taxPercent, shippingCharge decimal.Decimal) Quote {
	q := Quote{
		Lines:        make([]LineQuote, 0, len(lines)),
		ShippingCost: shippingCharge.Round(2),
	}

	raw := decimal.Zero
	for _, l := range lines {
		lineSubtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lineTax := lineSubtotal.Mul(taxPercent).Div(hundred).Round(2)
		q.Lines = append(q.Lines, LineQuote{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Tax:       lineTax,
			Total:     lineSubtotal.Add(lineTax).Round(2),
		})
		raw = raw.Add(lineSubtotal)
	}

	q.Subtotal = raw.Round(2)
	q.TaxAmount = q.Subtotal.Mul(taxPercent).Div(hundred).Round(2)
	q.Total = q.Subtotal.Add(q.TaxAmount).Add(q.ShippingCost).Round(0)
	return q
}

// TotalMinorUnits converts the payable total to the currency's minor unit
// (paise) for the gateway order and the settlement amount check.
func (q Quote) TotalMinorUnits() int64 {
	return q.Total.Mul(hundred).IntPart()
}
