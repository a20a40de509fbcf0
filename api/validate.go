package api

import (
	apperrors "tradein-engine/internal/errors"
)

// Request shape checks live here, once, at the boundary. Anything that
// passes reaches the lifecycle manager as a well-formed typed request.

func validateCreateSession(req *CreateSessionRequest) error {
	if req.ProductID == "" {
		return apperrors.Invalid("product_id is required")
	}
	if req.VariantID == "" {
		return apperrors.Invalid("variant_id is required")
	}
	return nil
}

func validateUpdateAnswers(req *UpdateAnswersRequest) error {
	if len(req.Answers) == 0 {
		return apperrors.Invalid("answers must not be empty")
	}
	if req.ExpectedVersion < 0 {
		return apperrors.Invalid("expected_version must be >= 0")
	}
	return nil
}

func validateUpdateDefects(req *UpdateDefectsRequest) error {
	if req.Defects == nil {
		return apperrors.Invalid("defects is required (use [] to clear)")
	}
	if req.ExpectedVersion < 0 {
		return apperrors.Invalid("expected_version must be >= 0")
	}
	return nil
}

func validateUpdateAccessories(req *UpdateAccessoriesRequest) error {
	if req.Accessories == nil {
		return apperrors.Invalid("accessories is required (use [] to clear)")
	}
	if req.ExpectedVersion < 0 {
		return apperrors.Invalid("expected_version must be >= 0")
	}
	return nil
}

func validateSetStatus(req *SetStatusRequest) error {
	if req.Status == "" {
		return apperrors.Invalid("status is required")
	}
	return nil
}
