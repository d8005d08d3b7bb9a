package domain

import "github.com/shopspring/decimal"

// Price is a non-negative arbitrary-precision quote. The zero value is
// the "unknown" sentinel meaning the price could not be determined; it
// is distinct from a legitimately free asset, which is NewPrice(0) and
// reports Known() == true.
type Price struct {
	value decimal.Decimal
	known bool
}

// ZeroPrice is the sentinel for "could not be determined".
var ZeroPrice = Price{}

// NewPrice wraps a decimal into a known price.
func NewPrice(v decimal.Decimal) Price {
	return Price{value: v, known: true}
}

// OnePrice returns the unit price used for identity conversions.
func OnePrice() Price {
	return NewPrice(decimal.NewFromInt(1))
}

// NewPriceFromString parses a decimal string into a known price.
func NewPriceFromString(s string) (Price, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroPrice, err
	}
	return NewPrice(v), nil
}

// Known reports whether the price was actually determined.
func (p Price) Known() bool { return p.known }

// Value returns the underlying decimal. Zero for the sentinel.
func (p Price) Value() decimal.Decimal { return p.value }

// Mul multiplies two prices. The result is unknown if either side is.
func (p Price) Mul(other Price) Price {
	if !p.known || !other.known {
		return ZeroPrice
	}
	return NewPrice(p.value.Mul(other.value))
}

// MulDecimal scales a known price by a raw decimal factor.
func (p Price) MulDecimal(d decimal.Decimal) Price {
	if !p.known {
		return ZeroPrice
	}
	return NewPrice(p.value.Mul(d))
}

// String returns the string representation.
func (p Price) String() string {
	if !p.known {
		return "unknown"
	}
	return p.value.String()
}
