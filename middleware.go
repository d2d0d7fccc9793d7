package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// GeneratorMiddleware wraps the upstream generator with cross-cutting
// behavior (logging, recovery).
type GeneratorMiddleware func(Generator) Generator

// WithGeneratorLogging returns a middleware that logs every upstream call
// with its duration and outcome.
func WithGeneratorLogging(logger *slog.Logger) GeneratorMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Generator) Generator {
		return GeneratorFunc(func(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
			logger.Debug("upstream call start", "model", req.Model)
			start := time.Now()
			raw, err := next.Generate(ctx, req)
			dur := time.Since(start)
			if err != nil {
				logger.Error("upstream call error", "model", req.Model, "duration", dur, "error", err)
				return nil, err
			}
			logger.Debug("upstream call end", "model", req.Model, "duration", dur, "bytes", len(raw))
			return raw, nil
		})
	}
}

// WithGeneratorRecovery returns a middleware that recovers generator panics
// and reports them as errors, so they reach the classifier as internal
// failures instead of unwinding through the executor.
func WithGeneratorRecovery() GeneratorMiddleware {
	return func(next Generator) Generator {
		return GeneratorFunc(func(ctx context.Context, req GenerateRequest) (raw json.RawMessage, err error) {
			defer func() {
				if p := recover(); p != nil {
					raw = nil
					err = fmt.Errorf("upstream generator panic: %v", p)
				}
			}()
			return next.Generate(ctx, req)
		})
	}
}
