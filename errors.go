package analyst

import (
	"errors"
	"fmt"
)

// Kind buckets a failure into the stable taxonomy shared by every tool call.
type Kind string

const (
	// KindValidation covers bad input and unrepairable schema mismatches. Never retried.
	KindValidation Kind = "validation"
	// KindBudget covers input that exceeds a configured size ceiling. Never retried.
	KindBudget Kind = "budget"
	// KindUpstream covers transient provider failures. Retried internally.
	KindUpstream Kind = "upstream"
	// KindTimeout covers call-level deadline expiry.
	KindTimeout Kind = "timeout"
	// KindCancelled covers explicit cancellation. Never retried.
	KindCancelled Kind = "cancelled"
	// KindBusy covers a concurrency-queue wait that timed out. The caller may resubmit.
	KindBusy Kind = "busy"
	// KindInternal covers everything unclassified. Never retried.
	KindInternal Kind = "internal"
)

// ErrorMeta is the classification produced once per failure.
type ErrorMeta struct {
	Kind      Kind
	Retryable bool
}

// Sentinel errors for analyst. Use errors.Is to check.
var (
	// ErrBusy is returned when the wait for a concurrency slot expires.
	// Distinct from retry exhaustion: the upstream service was never called.
	// The message avoids timeout wording so the classifier yields busy, not
	// timeout (see the Classify precedence).
	ErrBusy = errors.New("concurrency queue is full: no request slot became available while waiting")
)

// ClassifiedError is the only error shape that crosses the executor boundary.
// Code is stable and machine-readable; Message is for humans; Kind and
// Retryable let calling tooling decide whether to resubmit.
type ClassifiedError struct {
	Code      string
	Message   string
	Kind      Kind
	Retryable bool
	Err       error // wrapped cause for errors.Is/errors.As
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As on the wrapped cause.
func (e *ClassifiedError) Unwrap() error { return e.Err }

// codeForKind maps each taxonomy kind to its stable error code.
func codeForKind(k Kind) string {
	switch k {
	case KindValidation:
		return "E_VALIDATION"
	case KindBudget:
		return "E_BUDGET"
	case KindUpstream:
		return "E_UPSTREAM"
	case KindTimeout:
		return "E_TIMEOUT"
	case KindCancelled:
		return "E_CANCELLED"
	case KindBusy:
		return "E_BUSY"
	default:
		return "E_INTERNAL"
	}
}

// classified wraps err into a ClassifiedError, running the classifier on it.
// An error that already is (or wraps) a ClassifiedError passes through unchanged.
func classified(err error) *ClassifiedError {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	return classifiedWith(err, Classify(err, err.Error()))
}

// classifiedWith wraps err under an already-computed classification.
func classifiedWith(err error, meta ErrorMeta) *ClassifiedError {
	return &ClassifiedError{
		Code:      codeForKind(meta.Kind),
		Message:   err.Error(),
		Kind:      meta.Kind,
		Retryable: meta.Retryable,
		Err:       err,
	}
}

// AsClassified returns the ClassifiedError in err's chain, if any.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	ok := errors.As(err, &ce)
	return ce, ok
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	if ce, ok := AsClassified(err); ok {
		return ce.Retryable
	}
	return false
}
