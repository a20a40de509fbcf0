// Package types - Offer session and pricing types
package types

import (
	"github.com/shopspring/decimal"

	apperrors "tradein-engine/internal/errors"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyINR Currency = "INR"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// DeltaKind is how a delta value is interpreted
type DeltaKind string

const (
	// DeltaAbs is an absolute amount
	DeltaAbs DeltaKind = "abs"

	// DeltaPercent is a percentage of the baseline price
	DeltaPercent DeltaKind = "percent"
)

// DeltaSign is the direction of a delta
type DeltaSign string

const (
	SignPlus  DeltaSign = "+"
	SignMinus DeltaSign = "-"
)

// Delta is a signed price adjustment attached to a question option,
// defect, or accessory.
type Delta struct {
	// Kind is abs or percent
	Kind DeltaKind `json:"kind"`

	// Sign is the adjustment direction
	Sign DeltaSign `json:"sign"`

	// Value is the non-negative magnitude (amount or percentage)
	Value decimal.Decimal `json:"value"`
}

// Validate checks the delta shape
func (d Delta) Validate() error {
	switch d.Kind {
	case DeltaAbs, DeltaPercent:
	default:
		return apperrors.Invalidf("unsupported delta kind: %q", d.Kind)
	}
	switch d.Sign {
	case SignPlus, SignMinus:
	default:
		return apperrors.Invalidf("unsupported delta sign: %q", d.Sign)
	}
	if d.Value.IsNegative() {
		return apperrors.Invalidf("delta value must be >= 0, got %s", d.Value)
	}
	return nil
}

// Apply resolves the delta against a baseline price and returns the
// signed contribution. Percent deltas are always computed against the
// baseline, never a running total, so application order cannot change
// the final price.
func (d Delta) Apply(base decimal.Decimal) decimal.Decimal {
	var contribution decimal.Decimal
	if d.Kind == DeltaPercent {
		contribution = base.Mul(d.Value).Div(decimal.NewFromInt(100))
	} else {
		contribution = d.Value
	}
	if d.Sign == SignMinus {
		return contribution.Neg()
	}
	return contribution
}
