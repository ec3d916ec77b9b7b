package model

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoEligibleModel means the provider listed no model matching any
// preferred family that supports content generation.
var ErrNoEligibleModel = errors.New("no eligible model available")

// BlockedError means the provider refused the prompt or suppressed the
// candidate on safety grounds. It is terminal: retrying or switching
// models would resubmit the same refused content.
type BlockedError struct {
	ModelID string
	Reason  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("model %s blocked content: %s", e.ModelID, e.Reason)
}

// IsBlocked reports whether err is a safety refusal.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// isTransient reports whether err is worth retrying on the same model:
// rate limiting, server-side errors, and timeouts.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}
