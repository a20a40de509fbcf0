// Package types - Offer session record
package types

import (
	"sort"
	"time"
)

// Status is the lifecycle state of an offer session
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusQuoted    Status = "quoted"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a string into a Status
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusDraft, StatusActive, StatusQuoted, StatusConverted, StatusExpired, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// IsTerminal reports whether the status permits no further transitions
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConverted, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// OptionSelection is one answered question option
type OptionSelection struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Session tracks one customer's in-progress trade-in valuation
type Session struct {
	// ID is the opaque session identifier
	ID string `json:"id"`

	// UserID is empty for guest sessions
	UserID string `json:"user_id,omitempty"`

	// ProductID and VariantID reference the baseline price
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`

	// Answers maps question id to the selected option id(s)
	Answers map[string][]string `json:"answers"`

	// Defects is the set of declared defect ids
	Defects []string `json:"defects"`

	// Accessories is the set of included accessory ids
	Accessories []string `json:"accessories"`

	// Status is the lifecycle state
	Status Status `json:"status"`

	// CreatedAt is the creation time
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the session lapses
	ExpiresAt time.Time `json:"expires_at"`

	// Version is bumped on every content mutation
	Version int64 `json:"version"`

	// TerminatedReason records why a session was cancelled
	TerminatedReason string `json:"terminated_reason,omitempty"`

	// LastBreakdown caches the most recent quote; nil after any mutation
	LastBreakdown *PriceBreakdown `json:"last_breakdown,omitempty"`
}

// IsExpired reports whether the TTL has lapsed at the given instant
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Selections flattens the answers map into option selections, ordered
// by question id so repeated quotes produce identical breakdowns.
func (s *Session) Selections() []OptionSelection {
	questionIDs := make([]string, 0, len(s.Answers))
	for questionID := range s.Answers {
		questionIDs = append(questionIDs, questionID)
	}
	sort.Strings(questionIDs)

	var out []OptionSelection
	for _, questionID := range questionIDs {
		for _, optionID := range s.Answers[questionID] {
			out = append(out, OptionSelection{QuestionID: questionID, OptionID: optionID})
		}
	}
	return out
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	out := *s
	if s.Answers != nil {
		out.Answers = make(map[string][]string, len(s.Answers))
		for k, v := range s.Answers {
			vv := make([]string, len(v))
			copy(vv, v)
			out.Answers[k] = vv
		}
	}
	out.Defects = append([]string(nil), s.Defects...)
	out.Accessories = append([]string(nil), s.Accessories...)
	out.LastBreakdown = s.LastBreakdown.Clone()
	return &out
}
