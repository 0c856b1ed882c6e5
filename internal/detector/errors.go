package detector

import "errors"

// Rejection reasons. None of them escape a detection call: they are folded
// into Result.Err and Result.Reason.
var (
	ErrInvalidRegion        = errors.New("detection region does not fit the screen image")
	ErrConditionTooLarge    = errors.New("condition is larger than the detection region")
	ErrNoCandidate          = errors.New("no candidate above threshold")
	ErrRetryBudgetExhausted = errors.New("text recognition retry budget exhausted")
	ErrNoTextCandidate      = errors.New("no candidate inside the screen to recognize text at")
	ErrDegenerateScale      = errors.New("degenerate scale ratio")
	ErrNoScreenImage        = errors.New("no screen image")
	ErrInvalidThreshold     = errors.New("threshold must be between 0 and 100")
	ErrInvalidCondition     = errors.New("invalid condition image")
	ErrEmptyText            = errors.New("target text is empty")
	ErrSearchCapReached     = errors.New("candidate search cap reached")
	ErrCorrelation          = errors.New("correlation failed")
	ErrNotInitialized       = errors.New("detector not initialized")
	ErrAlreadyInitialized   = errors.New("detector already initialized")
)

// outcome maps a rejection error to a short label for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrInvalidRegion):
		return "invalid_region"
	case errors.Is(err, ErrConditionTooLarge):
		return "condition_too_large"
	case errors.Is(err, ErrNoCandidate):
		return "no_candidate"
	case errors.Is(err, ErrRetryBudgetExhausted):
		return "retry_budget_exhausted"
	case errors.Is(err, ErrNoTextCandidate):
		return "no_text_candidate"
	case errors.Is(err, ErrDegenerateScale):
		return "degenerate_scale"
	case errors.Is(err, ErrNoScreenImage):
		return "no_screen_image"
	case errors.Is(err, ErrInvalidThreshold), errors.Is(err, ErrInvalidCondition), errors.Is(err, ErrEmptyText):
		return "invalid_input"
	case errors.Is(err, ErrSearchCapReached):
		return "search_cap_reached"
	case errors.Is(err, ErrCorrelation):
		return "correlation_error"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	default:
		return "error"
	}
}
