package analyst

import (
	"context"
	"log/slog"
)

// Phase is one step in the fixed lifecycle sequence reported for a call.
// The phase index for a single call only ever increases.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseValidatingInput
	PhaseBuildingPrompt
	PhaseCallingModel
	PhaseValidatingResponse
	PhaseFinalizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseValidatingInput:
		return "validating_input"
	case PhaseBuildingPrompt:
		return "building_prompt"
	case PhaseCallingModel:
		return "calling_model"
	case PhaseValidatingResponse:
		return "validating_response"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressSink receives phase transitions for a single call. Notifications are
// best-effort: errors and panics from the sink never alter the call outcome.
type ProgressSink interface {
	Notify(ctx context.Context, phase Phase, message string) error
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ctx context.Context, phase Phase, message string) error

func (f ProgressFunc) Notify(ctx context.Context, phase Phase, message string) error {
	return f(ctx, phase, message)
}

// progressTracker drives the lifecycle for one call: it drops out-of-order
// transitions so the emitted phase index is strictly increasing, and shields
// the executor from sink failures.
type progressTracker struct {
	sink    ProgressSink
	logger  *slog.Logger
	current Phase
	seen    bool
}

func newProgressTracker(sink ProgressSink, logger *slog.Logger) *progressTracker {
	return &progressTracker{sink: sink, logger: logger}
}

func (t *progressTracker) advance(ctx context.Context, phase Phase, message string) {
	if t.seen && phase <= t.current {
		return
	}
	t.current, t.seen = phase, true
	if t.logger != nil {
		t.logger.Debug("phase", "phase", phase.String(), "message", message)
	}
	if t.sink == nil {
		return
	}
	func() {
		defer func() { _ = recover() }()
		_ = t.sink.Notify(ctx, phase, message)
	}()
}
