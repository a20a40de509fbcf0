// Package pricing - Quote invariant tests
// These tests prove the pricing contract: clamping, order independence,
// deduplication, and all-or-nothing resolution.
package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradein-engine/core/catalog"
	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory()
	cat.SetBaseline("iphone-12", "128gb", decimal.NewFromInt(10000))

	cat.AddQuestionOption("screen", "flawless", "Flawless screen",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignPlus, Value: decimal.NewFromInt(500)}, true)
	cat.AddQuestionOption("screen", "scratched", "Scratched screen",
		types.Delta{Kind: types.DeltaPercent, Sign: types.SignMinus, Value: decimal.NewFromInt(5)}, true)

	cat.AddDefect("cracked-back", "Cracked back glass",
		types.Delta{Kind: types.DeltaPercent, Sign: types.SignMinus, Value: decimal.NewFromInt(10)}, true)
	cat.AddDefect("dead-battery", "Battery below 80%",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignMinus, Value: decimal.NewFromInt(1500)}, true)

	cat.AddAccessory("charger", "Original charger",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignPlus, Value: decimal.NewFromInt(200)}, true)
	return cat
}

func fixedEngine(cat *catalog.Memory) *Engine {
	e := NewEngine(cat)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

// TestComputeWorkedExample proves the documented arithmetic:
// 10000 + 500 - 1000 + 200 = 9700
func TestComputeWorkedExample(t *testing.T) {
	engine := fixedEngine(testCatalog())

	breakdown, err := engine.Compute(context.Background(), decimal.NewFromInt(10000),
		[]types.OptionSelection{{QuestionID: "screen", OptionID: "flawless"}},
		[]string{"cracked-back"},
		[]string{"charger"},
	)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if len(breakdown.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(breakdown.Lines))
	}
	if !breakdown.FinalPrice.Equal(decimal.NewFromInt(9700)) {
		t.Errorf("got final price %s, want 9700", breakdown.FinalPrice)
	}

	// Percent defect resolves against the 10000 baseline
	defectLine := breakdown.Lines[1]
	if defectLine.Source != types.SourceDefect || defectLine.RefID != "cracked-back" {
		t.Fatalf("unexpected defect line: %+v", defectLine)
	}
	if !defectLine.SignedAmount.Equal(decimal.NewFromInt(-1000)) {
		t.Errorf("got defect amount %s, want -1000", defectLine.SignedAmount)
	}
}

// TestFinalPriceNeverNegative proves clamping when deductions exceed
// the baseline
func TestFinalPriceNeverNegative(t *testing.T) {
	engine := fixedEngine(testCatalog())

	breakdown, err := engine.Compute(context.Background(), decimal.NewFromInt(1000),
		nil, []string{"dead-battery"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !breakdown.FinalPrice.Equal(decimal.Zero) {
		t.Errorf("got final price %s, want 0", breakdown.FinalPrice)
	}
	// The line itself keeps the raw deduction for traceability
	if !breakdown.Lines[0].SignedAmount.Equal(decimal.NewFromInt(-1500)) {
		t.Errorf("got line amount %s, want -1500", breakdown.Lines[0].SignedAmount)
	}
}

// TestOrderIndependence proves percent deltas never compound: any
// permutation of the same adjustments yields the same final price
func TestOrderIndependence(t *testing.T) {
	engine := fixedEngine(testCatalog())
	base := decimal.NewFromInt(10000)

	permutations := [][]string{
		{"cracked-back", "dead-battery"},
		{"dead-battery", "cracked-back"},
	}

	var want decimal.Decimal
	for i, defects := range permutations {
		breakdown, err := engine.Compute(context.Background(), base, nil, defects, nil)
		if err != nil {
			t.Fatalf("Compute permutation %d: %v", i, err)
		}
		if i == 0 {
			want = breakdown.FinalPrice
			continue
		}
		if !breakdown.FinalPrice.Equal(want) {
			t.Errorf("permutation %d: got %s, want %s", i, breakdown.FinalPrice, want)
		}
	}
}

// TestDuplicateDefectAppliedOnce proves defect ids are a set
func TestDuplicateDefectAppliedOnce(t *testing.T) {
	engine := fixedEngine(testCatalog())

	breakdown, err := engine.Compute(context.Background(), decimal.NewFromInt(10000),
		nil, []string{"cracked-back", "cracked-back", "cracked-back"}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(breakdown.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(breakdown.Lines))
	}
	if !breakdown.FinalPrice.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("got final price %s, want 9000", breakdown.FinalPrice)
	}
}

// TestUnresolvedIDAbortsQuote proves a quote is all-or-nothing
func TestUnresolvedIDAbortsQuote(t *testing.T) {
	engine := fixedEngine(testCatalog())

	_, err := engine.Compute(context.Background(), decimal.NewFromInt(10000),
		nil, []string{"cracked-back", "no-such-defect"}, nil)
	if err == nil {
		t.Fatal("expected NotFound for unknown defect, got nil")
	}
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Errorf("got %v, want NOT_FOUND", err)
	}
}

// TestInactiveEntryNotFound proves inactive catalog entries are
// indistinguishable from missing ones
func TestInactiveEntryNotFound(t *testing.T) {
	cat := testCatalog()
	cat.AddDefect("retired", "Retired defect",
		types.Delta{Kind: types.DeltaAbs, Sign: types.SignMinus, Value: decimal.NewFromInt(100)}, false)
	engine := fixedEngine(cat)

	_, err := engine.Compute(context.Background(), decimal.NewFromInt(10000),
		nil, []string{"retired"}, nil)
	if !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Errorf("got %v, want NOT_FOUND", err)
	}
}

// TestComputeDeterministic proves identical inputs yield identical
// breakdowns
func TestComputeDeterministic(t *testing.T) {
	engine := fixedEngine(testCatalog())
	base := decimal.NewFromInt(10000)
	selections := []types.OptionSelection{
		{QuestionID: "screen", OptionID: "flawless"},
		{QuestionID: "screen", OptionID: "scratched"},
	}

	first, err := engine.Compute(context.Background(), base, selections, []string{"cracked-back"}, []string{"charger"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := engine.Compute(context.Background(), base, selections, []string{"cracked-back"}, []string{"charger"})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if len(first.Lines) != len(second.Lines) {
		t.Fatalf("line counts differ: %d vs %d", len(first.Lines), len(second.Lines))
	}
	for i := range first.Lines {
		a, b := first.Lines[i], second.Lines[i]
		if a.Source != b.Source || a.RefID != b.RefID || a.Label != b.Label || !a.SignedAmount.Equal(b.SignedAmount) {
			t.Errorf("line %d differs: %+v vs %+v", i, a, b)
		}
	}
	if !first.FinalPrice.Equal(second.FinalPrice) {
		t.Errorf("final prices differ: %s vs %s", first.FinalPrice, second.FinalPrice)
	}
	if !first.ComputedAt.Equal(second.ComputedAt) {
		t.Errorf("computed_at differs under a fixed clock")
	}
}
