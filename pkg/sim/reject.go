package sim

import (
	"errors"
	"fmt"
)

// RejectReason classifies why an order failed validation.
// Every reason is a precondition failure: detected before any mutation,
// deterministic for the same inputs, never worth retrying unchanged.
type RejectReason string

const (
	RejectInvalidQuantity      RejectReason = "INVALID_QUANTITY"
	RejectUnknownSymbol        RejectReason = "UNKNOWN_SYMBOL"
	RejectInsufficientFunds    RejectReason = "INSUFFICIENT_FUNDS"
	RejectInsufficientHoldings RejectReason = "INSUFFICIENT_HOLDINGS"
)

// RejectError is the typed failure surfaced to the caller so the UI can
// render a specific message per reason.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...interface{}) *RejectError {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from an error chain.
// Returns false for errors that are not order rejections.
func ReasonOf(err error) (RejectReason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
