// Package api - Request and response contracts
package api

import (
	"tradein-engine/core/types"
)

// CreateSessionRequest opens a new offer session
type CreateSessionRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	UserID    string `json:"user_id,omitempty"`
}

// UpdateAnswersRequest merges partial answers into a session.
// ExpectedVersion 0 lets the server resolve races internally; a
// non-zero value demands that exact stored version.
type UpdateAnswersRequest struct {
	Answers         map[string][]string `json:"answers"`
	ExpectedVersion int64               `json:"expected_version,omitempty"`
}

// UpdateDefectsRequest replaces the whole defect set
type UpdateDefectsRequest struct {
	Defects         []string `json:"defects"`
	ExpectedVersion int64    `json:"expected_version,omitempty"`
}

// UpdateAccessoriesRequest replaces the whole accessory set
type UpdateAccessoriesRequest struct {
	Accessories     []string `json:"accessories"`
	ExpectedVersion int64    `json:"expected_version,omitempty"`
}

// TerminateRequest cancels a session
type TerminateRequest struct {
	Reason string `json:"reason,omitempty"`
}

// SetStatusRequest is the admin status override
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SessionResponse wraps a session record
type SessionResponse struct {
	Session *types.Session `json:"session"`
}

// PriceResponse wraps a computed breakdown
type PriceResponse struct {
	SessionID string                `json:"session_id"`
	Breakdown *types.PriceBreakdown `json:"breakdown"`
}

// ListSessionsResponse wraps the admin listing
type ListSessionsResponse struct {
	Sessions []*types.Session `json:"sessions"`
	Count    int              `json:"count"`
}

// CleanupResponse reports a sweep result
type CleanupResponse struct {
	Expired int `json:"expired"`
}
