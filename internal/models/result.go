package models

// ErrorKind classifies operation failures so callers can decide whether an
// invocation is retryable
type ErrorKind string

const (
	ErrNone            ErrorKind = ""
	ErrNotFound        ErrorKind = "not_found"        // Booking, service or account does not exist
	ErrNotAllowed      ErrorKind = "not_allowed"      // Role/ownership precondition violated
	ErrInvalidState    ErrorKind = "invalid_state"    // Operation not permitted from current status
	ErrUpstreamFailure ErrorKind = "upstream_failure" // Payment gateway call failed
	ErrUnexpected      ErrorKind = "unexpected"       // Any other internal failure
)

// OperationResult is the structured outcome of every lifecycle operation.
// Failures carry a kind and a human-readable message instead of raising
// faults; no operation partially applies its effect on failure.
type OperationResult struct {
	Success bool        `json:"success"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Message string      `json:"message"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK builds a successful result
func OK(message string, data interface{}) *OperationResult {
	return &OperationResult{Success: true, Message: message, Data: data}
}

// Fail builds a failed result of the given kind
func Fail(kind ErrorKind, message string, errs ...string) *OperationResult {
	return &OperationResult{Success: false, Kind: kind, Message: message, Errors: errs}
}

// CheckoutResult is the payload returned by the deposit and final-payment
// operations
type CheckoutResult struct {
	CheckoutURL string   `json:"checkout_url"`
	Booking     *Booking `json:"booking"`
	OrderCode   int64    `json:"order_code"`
}

// BookingHistoryEntry is one completed booking with its payment phases,
// total recomputed from the phases rather than trusted from storage
type BookingHistoryEntry struct {
	Booking *Booking       `json:"booking"`
	Phases  []PaymentPhase `json:"phases"`
}
