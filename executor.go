package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Generator is the upstream structured-generation capability. Implementations
// fail with provider-shaped errors: status/code fields (see classify.go
// probing) or descriptive messages.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (json.RawMessage, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	return f(ctx, req)
}

// GenerateRequest carries a single upstream invocation.
type GenerateRequest struct {
	Prompt            string
	SystemInstruction string
	// SchemaHint is the raw response schema handed to the provider.
	SchemaHint      map[string]any
	Model           string
	Temperature     float64
	MaxOutputTokens int
	ThinkingLevel   string
}

// StructuredRequest describes one structured-generation call. It is owned by
// the caller and never mutated after submission.
type StructuredRequest struct {
	Prompt            string
	SystemInstruction string
	// Schema is the compiled response schema. Required.
	Schema *Schema
	Model  string
	// MaxRetries overrides the configured transport retry budget when > 0;
	// negative disables transport retries. 0 uses the configured default.
	MaxRetries int
	// Timeout bounds the whole call when > 0. Races against every suspension
	// point exactly like cancellation.
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
	ThinkingLevel   string
	// Progress and Logger are optional, best-effort sinks.
	Progress ProgressSink
	Logger   *slog.Logger
}

// Outcome is the envelope returned by ExecuteStructuredRequest, the sole
// boundary operation tool implementations invoke.
type Outcome struct {
	OK    bool          `json:"ok"`
	Value any           `json:"value,omitempty"`
	Error *OutcomeError `json:"error,omitempty"`
}

// OutcomeError mirrors ClassifiedError in a serializable shape.
type OutcomeError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Kind      Kind   `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// Executor composes the concurrency limiter, backoff policy, and error
// classifier around the upstream generator, adding a schema
// validate-and-repair loop and lifecycle/progress reporting.
type Executor struct {
	cfg     *Config
	gen     Generator
	limiter *Limiter
	backoff *Backoff
	logger  *slog.Logger
	metrics *Metrics
}

// NewExecutor builds an Executor around gen. Without options it uses
// DefaultConfig, a fresh limiter sized from that config, the standard backoff
// policy, and slog.Default().
func NewExecutor(gen Generator, opts ...ExecutorOption) (*Executor, error) {
	if gen == nil {
		return nil, errors.New("generator must not be nil")
	}
	var o executorOptions
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if cfg == nil {
		cfg = DefaultConfig()
	}
	limiter := o.limiter
	if limiter == nil {
		limiter = NewLimiter(cfg.MaxConcurrentRequests, cfg.RequestWaitTimeout)
	}
	backoff := o.backoff
	if backoff == nil {
		backoff = NewBackoff()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	for i := len(o.middlewares) - 1; i >= 0; i-- {
		gen = o.middlewares[i](gen)
	}
	return &Executor{
		cfg:     cfg,
		gen:     gen,
		limiter: limiter,
		backoff: backoff,
		logger:  logger,
		metrics: o.metrics,
	}, nil
}

// Execute runs one structured request end to end and returns the decoded,
// schema-conformant value. Every failure is a *ClassifiedError; the held
// concurrency slot, if any, is released on every path.
func (e *Executor) Execute(ctx context.Context, req StructuredRequest) (any, error) {
	logger := e.logger
	if req.Logger != nil {
		logger = req.Logger
	}
	logger = logger.With("request_id", uuid.NewString())
	start := time.Now()
	defer func() { e.metrics.observeDuration(time.Since(start)) }()

	tracker := newProgressTracker(req.Progress, logger)
	tracker.advance(ctx, PhaseStarting, "request accepted")

	tracker.advance(ctx, PhaseValidatingInput, "checking request shape")
	if err := checkRequest(req); err != nil {
		return nil, e.fail(logger, err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// Prompt construction belongs to the calling tool; the phase is still
	// reported so sinks see the full lifecycle.
	tracker.advance(ctx, PhaseBuildingPrompt, "prompt ready")

	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, e.fail(logger, err)
	}
	held := true
	defer func() {
		if held {
			e.release()
		}
	}()
	e.observeSlots()

	tracker.advance(ctx, PhaseCallingModel, "invoking upstream model")
	raw, err := e.callModel(ctx, logger, req, req.Prompt)
	if err != nil {
		return nil, e.fail(logger, err)
	}

	tracker.advance(ctx, PhaseValidatingResponse, "validating response schema")
	value, err := e.validateAndRepair(ctx, logger, req, raw)
	if err != nil {
		return nil, e.fail(logger, err)
	}

	tracker.advance(ctx, PhaseFinalizing, "releasing resources")
	held = false
	e.release()
	tracker.advance(ctx, PhaseDone, "done")
	e.metrics.observeOutcome("ok")
	return value, nil
}

// ExecuteStructuredRequest wraps Execute in the serializable Outcome envelope.
func (e *Executor) ExecuteStructuredRequest(ctx context.Context, req StructuredRequest) Outcome {
	value, err := e.Execute(ctx, req)
	if err != nil {
		ce := classified(err)
		return Outcome{Error: &OutcomeError{
			Code:      ce.Code,
			Message:   ce.Message,
			Kind:      ce.Kind,
			Retryable: ce.Retryable,
		}}
	}
	return Outcome{OK: true, Value: value}
}

// checkRequest runs the structural pre-checks. Rejections happen before any
// slot is consumed.
func checkRequest(req StructuredRequest) error {
	if req.Prompt == "" {
		return &ClassifiedError{
			Code:    codeForKind(KindValidation),
			Message: "structured request is malformed: prompt must not be empty",
			Kind:    KindValidation,
		}
	}
	if req.Schema == nil {
		return &ClassifiedError{
			Code:    codeForKind(KindValidation),
			Message: "structured request is malformed: response schema is required",
			Kind:    KindValidation,
		}
	}
	return nil
}

// callModel invokes the upstream generator, retrying retryable failures with
// backoff until the retry budget is spent. The backoff sleep is cancellable.
func (e *Executor) callModel(ctx context.Context, logger *slog.Logger, req StructuredRequest, prompt string) (json.RawMessage, error) {
	maxRetries := e.cfg.MaxRetries
	if req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	} else if req.MaxRetries < 0 {
		maxRetries = 0
	}
	greq := GenerateRequest{
		Prompt:            prompt,
		SystemInstruction: req.SystemInstruction,
		SchemaHint:        req.Schema.Definition(),
		Model:             req.Model,
		Temperature:       req.Temperature,
		MaxOutputTokens:   req.MaxOutputTokens,
		ThinkingLevel:     req.ThinkingLevel,
	}
	for attempt := 0; ; attempt++ {
		raw, err := e.gen.Generate(ctx, greq)
		if err == nil {
			return raw, nil
		}
		meta := Classify(err, err.Error())
		if !canRetry(attempt, maxRetries, meta) {
			return nil, classifiedWith(err, meta)
		}
		delay := e.backoff.Delay(attempt)
		logger.Warn("upstream call failed, retrying",
			"attempt", attempt, "max_retries", maxRetries, "delay", delay, "kind", meta.Kind, "error", err)
		e.metrics.observeRetry()
		if err := sleep(ctx, delay); err != nil {
			return nil, classified(err)
		}
	}
}

// validateAndRepair checks raw output against the response schema and, while
// repair attempts remain, re-invokes upstream with the validation issues as
// corrective feedback. Repair exhaustion surfaces as validation, carrying the
// last issue summary; a transport failure on the repair call itself surfaces
// with its own classification, since no response is left to validate.
func (e *Executor) validateAndRepair(ctx context.Context, logger *slog.Logger, req StructuredRequest, raw json.RawMessage) (any, error) {
	for repair := 0; ; repair++ {
		value, err := req.Schema.Validate(raw)
		if err == nil {
			return value, nil
		}
		var sve *SchemaValidationError
		if !errors.As(err, &sve) {
			return nil, classified(err)
		}
		if repair >= e.cfg.SchemaRepairRetries {
			return nil, classifiedWith(sve, ErrorMeta{Kind: KindValidation, Retryable: false})
		}
		logger.Warn("response failed schema validation, requesting repair",
			"repair_attempt", repair, "issues", len(sve.Issues))
		e.metrics.observeRepair()
		raw, err = e.callModel(ctx, logger, req, repairPrompt(req.Prompt, sve.Issues))
		if err != nil {
			return nil, err
		}
	}
}

// maxIssueFeedbackChars bounds the issue summary appended to repair prompts.
const maxIssueFeedbackChars = 2000

func repairPrompt(prompt string, issues []string) string {
	return prompt +
		"\n\nYour previous response failed schema validation:\n" +
		summarizeIssues(issues, maxIssueFeedbackChars) +
		"\nReturn only JSON that conforms to the required schema."
}

// fail classifies err, records it, and returns it.
func (e *Executor) fail(logger *slog.Logger, err error) *ClassifiedError {
	ce := classified(err)
	logger.Error("structured request failed", "kind", ce.Kind, "retryable", ce.Retryable, "error", err)
	e.metrics.observeOutcome(string(ce.Kind))
	return ce
}

func (e *Executor) release() {
	e.limiter.Release()
	e.observeSlots()
}

func (e *Executor) observeSlots() {
	e.metrics.observeSlots(e.limiter.Active(), e.limiter.Pending())
}
