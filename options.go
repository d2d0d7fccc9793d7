package analyst

import "log/slog"

// executorOptions hold optional Executor settings.
type executorOptions struct {
	cfg         *Config
	limiter     *Limiter
	backoff     *Backoff
	logger      *slog.Logger
	metrics     *Metrics
	middlewares []GeneratorMiddleware
}

// ExecutorOption configures an Executor (e.g. WithConfig, WithLimiter).
type ExecutorOption func(*executorOptions)

// WithConfig sets the configuration. Defaults to DefaultConfig().
func WithConfig(cfg *Config) ExecutorOption {
	return func(o *executorOptions) {
		o.cfg = cfg
	}
}

// WithLimiter sets the admission gate. Pass the same Limiter to several
// executors to share one process-wide concurrency bound.
func WithLimiter(l *Limiter) ExecutorOption {
	return func(o *executorOptions) {
		o.limiter = l
	}
}

// WithBackoff sets the retry backoff policy, e.g. one built with
// NewBackoffFromSource for deterministic delays.
func WithBackoff(b *Backoff) ExecutorOption {
	return func(o *executorOptions) {
		o.backoff = b
	}
}

// WithLogger sets the base logger. Per-request loggers on StructuredRequest
// take precedence for their call.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(o *executorOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(o *executorOptions) {
		o.metrics = m
	}
}

// WithGeneratorMiddleware wraps the upstream generator (onion order: first
// middleware is outermost).
func WithGeneratorMiddleware(mw ...GeneratorMiddleware) ExecutorOption {
	return func(o *executorOptions) {
		o.middlewares = append(o.middlewares, mw...)
	}
}
