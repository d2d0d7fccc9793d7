package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeOutcome("ok")
		m.observeRetry()
		m.observeRepair()
		m.observeDuration(time.Second)
		m.observeSlots(1, 2)
	})
}

func TestMetrics_CountsOutcomesAndRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	gen := &countingGen{fn: func(call int, _ GenerateRequest) (json.RawMessage, error) {
		switch call {
		case 0:
			return nil, errors.New("429 rate limit exceeded")
		case 1:
			return json.RawMessage(`{"answer": 12}`), nil
		default:
			return json.RawMessage(`{"answer": "yes"}`), nil
		}
	}}
	e := newTestExecutor(t, gen, nil, WithMetrics(m))

	_, err := e.Execute(context.Background(), StructuredRequest{Prompt: "p", Schema: objectSchema(t)})
	require.NoError(t, err)

	assert.Equal(t, float64(1), promtest.ToFloat64(m.requestsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.retriesTotal))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.repairsTotal))
	assert.Equal(t, float64(0), promtest.ToFloat64(m.activeSlots), "all slots returned")
}

func TestMetrics_CountsFailureByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	gen := &countingGen{fn: func(int, GenerateRequest) (json.RawMessage, error) {
		return nil, errors.New("model name is not recognized")
	}}
	e := newTestExecutor(t, gen, nil, WithMetrics(m))

	_, err := e.Execute(context.Background(), StructuredRequest{Prompt: "p", Schema: objectSchema(t)})
	require.Error(t, err)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.requestsTotal.WithLabelValues("internal")))
	assert.Equal(t, float64(0), promtest.ToFloat64(m.requestsTotal.WithLabelValues("ok")))
}
