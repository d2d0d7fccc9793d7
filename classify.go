package analyst

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Message patterns checked by Classify, in precedence order. Patterns are
// matched against the message argument, not against err.Error(), so callers
// can classify provider messages that were never wrapped in a Go error.
var (
	validationPattern = regexp.MustCompile(`(?i)(validation failed|schema validation|does not conform|did not match the (expected )?schema|invalid response shape|missing (required )?(field|property)|malformed)`)
	cancelPattern     = regexp.MustCompile(`(?i)(\bcancell?ed\b|context canceled|operation was aborted by the caller)`)
	timeoutPattern    = regexp.MustCompile(`(?i)(timed?.?out|\btimeout\b|deadline exceeded)`)
	budgetPattern     = regexp.MustCompile(`(?i)(exceeds maximum size|exceeds the configured.*(limit|ceiling)|budget exceeded|too large to process)`)
	busyPattern       = regexp.MustCompile(`(?i)(concurrency queue is full|too many concurrent requests|waiting for a request slot|server busy)`)
	transientPattern  = regexp.MustCompile(`(?i)(rate.?limit|quota|resource.?exhausted|unavailable|overloaded|connection (reset|refused|closed)|econnreset|socket hang.?up|bad gateway|gateway timeout|internal server error|temporar\w+ (error|failure)|please try again|\b(408|429|500|502|503|504)\b)`)
)

// transientStatuses is the fixed set of HTTP status codes treated as retryable.
var transientStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

// transientCodes is the fixed set of provider string codes treated as retryable.
var transientCodes = map[string]bool{
	"RESOURCE_EXHAUSTED": true,
	"UNAVAILABLE":        true,
	"DEADLINE_EXCEEDED":  true,
	"ABORTED":            true,
	"INTERNAL":           true,
	"OVERLOADED":         true,
}

// Classify maps a raw failure and its message to a stable classification.
// It is pure: identical (err, message) inputs always yield the same ErrorMeta.
// First match wins:
//
//  1. schema-validation failure (typed or by message)  → validation, not retryable
//  2. cancellation                                     → cancelled, not retryable
//  3. deadline/timeout                                 → timeout, retryable
//  4. budget ceiling exceeded                          → budget, not retryable
//  5. concurrency-queue wait expiry                    → busy, retryable
//  6. transient upstream status or provider code       → upstream, retryable
//  7. generic transient upstream wording               → upstream, retryable
//  8. everything else                                  → internal, not retryable
//
// ErrBusy's message deliberately avoids timeout wording so a queue-wait
// expiry cannot be swallowed by the earlier timeout pattern.
func Classify(err error, message string) ErrorMeta {
	var sve *SchemaValidationError
	if errors.As(err, &sve) || validationPattern.MatchString(message) {
		return ErrorMeta{Kind: KindValidation, Retryable: false}
	}
	if errors.Is(err, context.Canceled) || cancelPattern.MatchString(message) {
		return ErrorMeta{Kind: KindCancelled, Retryable: false}
	}
	if errors.Is(err, context.DeadlineExceeded) || timeoutPattern.MatchString(message) {
		return ErrorMeta{Kind: KindTimeout, Retryable: true}
	}
	var be *BudgetError
	if errors.As(err, &be) || budgetPattern.MatchString(message) {
		return ErrorMeta{Kind: KindBudget, Retryable: false}
	}
	if errors.Is(err, ErrBusy) || busyPattern.MatchString(message) {
		return ErrorMeta{Kind: KindBusy, Retryable: true}
	}
	if status, ok := upstreamStatus(err); ok && transientStatuses[status] {
		return ErrorMeta{Kind: KindUpstream, Retryable: true}
	}
	if code, ok := upstreamCode(err); ok && transientCodes[strings.ToUpper(code)] {
		return ErrorMeta{Kind: KindUpstream, Retryable: true}
	}
	if transientPattern.MatchString(message) {
		return ErrorMeta{Kind: KindUpstream, Retryable: true}
	}
	return ErrorMeta{Kind: KindInternal, Retryable: false}
}

// Provider errors are duck-typed: any error exposing one of these methods is
// probed for a status or code. The precedence is part of the contract:
// the error itself first, then its immediate wrapped cause.
type statusCarrier interface{ StatusCode() int }
type httpStatusCarrier interface{ HTTPStatusCode() int }
type codeCarrier interface{ ErrorCode() string }
type shortCodeCarrier interface{ Code() string }

// upstreamStatus extracts a numeric status code from a provider-shaped error.
// Best effort: never panics, returns (0, false) on miss.
func upstreamStatus(err error) (int, bool) {
	for probe := 0; err != nil && probe < 2; probe++ {
		if sc, ok := err.(statusCarrier); ok {
			return sc.StatusCode(), true
		}
		if sc, ok := err.(httpStatusCarrier); ok {
			return sc.HTTPStatusCode(), true
		}
		err = errors.Unwrap(err)
	}
	return 0, false
}

// upstreamCode extracts a provider string code, same probing rules as upstreamStatus.
func upstreamCode(err error) (string, bool) {
	for probe := 0; err != nil && probe < 2; probe++ {
		if cc, ok := err.(codeCarrier); ok {
			return cc.ErrorCode(), true
		}
		if cc, ok := err.(shortCodeCarrier); ok {
			return cc.Code(), true
		}
		err = errors.Unwrap(err)
	}
	return "", false
}
