// Package catalog provides read-only lookup of price-affecting
// configuration: question-option, defect and accessory deltas, and
// product/variant baseline prices.
//
// Lookups are always live, never snapshotted at session-creation time:
// a catalog edit changes the quote on the next computation. Callers
// needing a frozen quote keep the cached breakdown on the session.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"tradein-engine/core/types"
)

// Adjustment is a resolved catalog entry: the delta plus the label
// carried onto breakdown lines.
type Adjustment struct {
	// Label is the human-readable entry name
	Label string

	// Delta is the price adjustment
	Delta types.Delta
}

// AdjustmentCatalog resolves catalog ids to price adjustments.
// Implementations return a NOT_FOUND error for unknown or inactive
// entries; an inactive parent question hides all of its options.
type AdjustmentCatalog interface {
	// QuestionOption resolves an answered option's adjustment
	QuestionOption(ctx context.Context, questionID, optionID string) (Adjustment, error)

	// Defect resolves a declared defect's adjustment
	Defect(ctx context.Context, defectID string) (Adjustment, error)

	// Accessory resolves an included accessory's adjustment
	Accessory(ctx context.Context, accessoryID string) (Adjustment, error)

	// BaselinePrice resolves the product/variant baseline price
	BaselinePrice(ctx context.Context, productID, variantID string) (decimal.Decimal, error)
}
