package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is one (unit price, quantity) pair to be priced.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Options holds the derived-charge knobs. Tax and shipping are folded
// into the frozen order total so the stored amount is auditable.
type Options struct {
	TaxRate               decimal.Decimal // e.g. 0.08
	FreeShippingThreshold decimal.Decimal // subtotal at or above this ships free
	ShippingFee           decimal.Decimal // flat fee below the threshold
}

// Totals is the result of pricing an item list. All amounts carry two
// fractional digits.
type Totals struct {
	LineSubtotals []decimal.Decimal
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// DefaultOptions matches the storefront's flat rules: 8% tax, free
// shipping at $50, $9.99 otherwise.
func DefaultOptions() Options {
	return Options{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(50),
		ShippingFee:           decimal.NewFromFloat(9.99),
	}
}

// Calculate prices an item list. Line subtotals and the order subtotal
// are exact decimal products and sums; rounding to two digits happens
// once on each derived charge and the final total, not per line.
func Calculate(lines []Line, opts Options) Totals {
	t := Totals{
		LineSubtotals: make([]decimal.Decimal, len(lines)),
		Subtotal:      decimal.Zero,
	}

	for i, l := range lines {
		sub := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		t.LineSubtotals[i] = sub
		t.Subtotal = t.Subtotal.Add(sub)
	}
	t.Subtotal = t.Subtotal.Round(2)

	if t.Subtotal.GreaterThanOrEqual(opts.FreeShippingThreshold) {
		t.Shipping = decimal.Zero.Round(2)
	} else {
		t.Shipping = opts.ShippingFee.Round(2)
	}

	t.Tax = t.Subtotal.Mul(opts.TaxRate).Round(2)
	t.Total = t.Subtotal.Add(t.Shipping).Add(t.Tax).Round(2)

	return t
}
