// Package testutil provides test helpers for analyst (e.g. MockGenerator).
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	analyst "github.com/j0hanz/code-review-analyst-mcp-sub001"
)

// MockGenerator is a configurable Generator implementation for tests. When
// GenerateFn is nil, Responses are served in order; once they run out, Err
// (or a generic error) is returned.
type MockGenerator struct {
	GenerateFn func(ctx context.Context, call int, req analyst.GenerateRequest) (json.RawMessage, error)
	Responses  []json.RawMessage
	Err        error

	mu    sync.Mutex
	calls int
}

// Generate implements analyst.Generator.
func (m *MockGenerator) Generate(ctx context.Context, req analyst.GenerateRequest) (json.RawMessage, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, call, req)
	}
	if call < len(m.Responses) {
		return m.Responses[call], nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, errors.New("mock generator: no responses left")
}

// Calls returns how many times Generate was invoked.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// NewTestExecutor returns an Executor over gen with small, test-friendly
// settings: one retry, one repair attempt, and a short queue wait.
func NewTestExecutor(gen analyst.Generator, opts ...analyst.ExecutorOption) (*analyst.Executor, error) {
	cfg := analyst.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.SchemaRepairRetries = 1
	cfg.RequestWaitTimeout = 100 * time.Millisecond
	return analyst.NewExecutor(gen, append([]analyst.ExecutorOption{analyst.WithConfig(cfg)}, opts...)...)
}

// Ensure MockGenerator implements Generator.
var _ analyst.Generator = (*MockGenerator)(nil)
