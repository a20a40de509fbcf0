package catalog

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

type optionEntry struct {
	label  string
	delta  types.Delta
	active bool
}

type questionEntry struct {
	active  bool
	options map[string]optionEntry
}

type adjustmentEntry struct {
	label  string
	delta  types.Delta
	active bool
}

// Memory is an in-memory AdjustmentCatalog. It backs HCL-loaded
// catalogs in production and doubles as the test double; entries can
// be edited at runtime and lookups always see the current state.
type Memory struct {
	mu          sync.RWMutex
	baselines   map[string]decimal.Decimal
	questions   map[string]*questionEntry
	defects     map[string]adjustmentEntry
	accessories map[string]adjustmentEntry
}

// NewMemory creates an empty in-memory catalog
func NewMemory() *Memory {
	return &Memory{
		baselines:   make(map[string]decimal.Decimal),
		questions:   make(map[string]*questionEntry),
		defects:     make(map[string]adjustmentEntry),
		accessories: make(map[string]adjustmentEntry),
	}
}

func baselineKey(productID, variantID string) string {
	return productID + "/" + variantID
}

// SetBaseline registers a product/variant baseline price
func (m *Memory) SetBaseline(productID, variantID string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[baselineKey(productID, variantID)] = price
}

// AddQuestion registers a question; options are added separately
func (m *Memory) AddQuestion(questionID string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[questionID] = &questionEntry{active: active, options: make(map[string]optionEntry)}
}

// AddQuestionOption registers an option under an existing question
func (m *Memory) AddQuestionOption(questionID, optionID, label string, delta types.Delta, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		q = &questionEntry{active: true, options: make(map[string]optionEntry)}
		m.questions[questionID] = q
	}
	q.options[optionID] = optionEntry{label: label, delta: delta, active: active}
}

// AddDefect registers a defect adjustment
func (m *Memory) AddDefect(defectID, label string, delta types.Delta, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defects[defectID] = adjustmentEntry{label: label, delta: delta, active: active}
}

// AddAccessory registers an accessory adjustment
func (m *Memory) AddAccessory(accessoryID, label string, delta types.Delta, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessories[accessoryID] = adjustmentEntry{label: label, delta: delta, active: active}
}

// QuestionOption implements AdjustmentCatalog
func (m *Memory) QuestionOption(ctx context.Context, questionID, optionID string) (Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[questionID]
	if !ok || !q.active {
		return Adjustment{}, apperrors.NotFound("question", questionID)
	}
	opt, ok := q.options[optionID]
	if !ok || !opt.active {
		return Adjustment{}, apperrors.NotFound("question option", questionID+"/"+optionID)
	}
	return Adjustment{Label: opt.label, Delta: opt.delta}, nil
}

// Defect implements AdjustmentCatalog
func (m *Memory) Defect(ctx context.Context, defectID string) (Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.defects[defectID]
	if !ok || !d.active {
		return Adjustment{}, apperrors.NotFound("defect", defectID)
	}
	return Adjustment{Label: d.label, Delta: d.delta}, nil
}

// Accessory implements AdjustmentCatalog
func (m *Memory) Accessory(ctx context.Context, accessoryID string) (Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accessories[accessoryID]
	if !ok || !a.active {
		return Adjustment{}, apperrors.NotFound("accessory", accessoryID)
	}
	return Adjustment{Label: a.label, Delta: a.delta}, nil
}

// BaselinePrice implements AdjustmentCatalog
func (m *Memory) BaselinePrice(ctx context.Context, productID, variantID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	price, ok := m.baselines[baselineKey(productID, variantID)]
	if !ok {
		return decimal.Zero, apperrors.NotFound("product variant", baselineKey(productID, variantID))
	}
	return price, nil
}

// Counts returns the number of registered entries, used by the CLI
// catalog validator.
func (m *Memory) Counts() (products, questions, defects, accessories int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.baselines), len(m.questions), len(m.defects), len(m.accessories)
}
