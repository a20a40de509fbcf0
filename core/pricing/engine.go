// Package pricing - Quote computation engine
// The engine is pure: baseline + selected adjustments in, itemized
// breakdown out. It never mutates session state and never swallows a
// catalog lookup failure; a quote is all-or-nothing.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradein-engine/core/catalog"
	"tradein-engine/core/types"
)

// Engine computes itemized price breakdowns
type Engine struct {
	catalog catalog.AdjustmentCatalog
	now     func() time.Time
}

// NewEngine creates an engine backed by the given catalog
func NewEngine(cat catalog.AdjustmentCatalog) *Engine {
	return &Engine{catalog: cat, now: time.Now}
}

// Compute resolves every selected adjustment against the catalog and
// returns the breakdown. Defect and accessory ids are deduplicated;
// percent deltas apply to basePrice, never a running total, so the
// result is independent of application order. finalPrice is clamped
// to zero.
func (e *Engine) Compute(
	ctx context.Context,
	basePrice decimal.Decimal,
	selections []types.OptionSelection,
	defectIDs []string,
	accessoryIDs []string,
) (*types.PriceBreakdown, error) {
	lines := make([]types.BreakdownLine, 0, len(selections)+len(defectIDs)+len(accessoryIDs))
	running := decimal.Zero

	for _, sel := range selections {
		adj, err := e.catalog.QuestionOption(ctx, sel.QuestionID, sel.OptionID)
		if err != nil {
			return nil, err
		}
		line := types.BreakdownLine{
			Source:       types.SourceQuestionOption,
			RefID:        sel.QuestionID + "/" + sel.OptionID,
			Label:        adj.Label,
			SignedAmount: adj.Delta.Apply(basePrice),
		}
		lines = append(lines, line)
		running = running.Add(line.SignedAmount)
	}

	for _, defectID := range dedupe(defectIDs) {
		adj, err := e.catalog.Defect(ctx, defectID)
		if err != nil {
			return nil, err
		}
		line := types.BreakdownLine{
			Source:       types.SourceDefect,
			RefID:        defectID,
			Label:        adj.Label,
			SignedAmount: adj.Delta.Apply(basePrice),
		}
		lines = append(lines, line)
		running = running.Add(line.SignedAmount)
	}

	for _, accessoryID := range dedupe(accessoryIDs) {
		adj, err := e.catalog.Accessory(ctx, accessoryID)
		if err != nil {
			return nil, err
		}
		line := types.BreakdownLine{
			Source:       types.SourceAccessory,
			RefID:        accessoryID,
			Label:        adj.Label,
			SignedAmount: adj.Delta.Apply(basePrice),
		}
		lines = append(lines, line)
		running = running.Add(line.SignedAmount)
	}

	final := basePrice.Add(running)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return &types.PriceBreakdown{
		BasePrice:  basePrice,
		Lines:      lines,
		FinalPrice: final,
		ComputedAt: e.now().UTC(),
	}, nil
}

// dedupe drops repeated ids, preserving first-seen order
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
