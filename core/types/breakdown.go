// Package types - Price breakdown types
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentSource identifies what kind of catalog entry produced a
// breakdown line
type AdjustmentSource string

const (
	SourceQuestionOption AdjustmentSource = "question_option"
	SourceDefect         AdjustmentSource = "defect"
	SourceAccessory      AdjustmentSource = "accessory"
)

// BreakdownLine is a single applied adjustment
type BreakdownLine struct {
	// Source is the kind of catalog entry
	Source AdjustmentSource `json:"source"`

	// RefID is the catalog id of the entry
	RefID string `json:"ref_id"`

	// Label is a human-readable description
	Label string `json:"label"`

	// SignedAmount is the resolved contribution, negative for deductions
	SignedAmount decimal.Decimal `json:"signed_amount"`
}

// PriceBreakdown is the itemized result of a quote computation
type PriceBreakdown struct {
	// BasePrice is the product/variant baseline
	BasePrice decimal.Decimal `json:"base_price"`

	// Lines are the applied adjustments, in application order
	Lines []BreakdownLine `json:"lines"`

	// FinalPrice is the clamped total, never negative
	FinalPrice decimal.Decimal `json:"final_price"`

	// ComputedAt is when the quote was computed
	ComputedAt time.Time `json:"computed_at"`
}

// Clone returns a deep copy of the breakdown
func (b *PriceBreakdown) Clone() *PriceBreakdown {
	if b == nil {
		return nil
	}
	out := *b
	out.Lines = make([]BreakdownLine, len(b.Lines))
	copy(out.Lines, b.Lines)
	return &out
}
