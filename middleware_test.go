package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithGeneratorLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := GeneratorFunc(func(context.Context, GenerateRequest) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})
	raw, err := WithGeneratorLogging(logger)(ok).Generate(context.Background(), GenerateRequest{Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{}`), raw)
	assert.Contains(t, buf.String(), "upstream call start")
	assert.Contains(t, buf.String(), "upstream call end")
	assert.Contains(t, buf.String(), "m1")

	buf.Reset()
	failing := GeneratorFunc(func(context.Context, GenerateRequest) (json.RawMessage, error) {
		return nil, errors.New("kaput")
	})
	_, err = WithGeneratorLogging(logger)(failing).Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "upstream call error")
	assert.Contains(t, buf.String(), "kaput")
}

func TestWithGeneratorRecovery(t *testing.T) {
	panicking := GeneratorFunc(func(context.Context, GenerateRequest) (json.RawMessage, error) {
		panic("generator exploded")
	})
	raw, err := WithGeneratorRecovery()(panicking).Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.Nil(t, raw)
	assert.Contains(t, err.Error(), "generator exploded")
	assert.Equal(t, ErrorMeta{KindInternal, false}, Classify(err, err.Error()))
}

func TestWithGeneratorRecovery_PassThrough(t *testing.T) {
	ok := GeneratorFunc(func(context.Context, GenerateRequest) (json.RawMessage, error) {
		return json.RawMessage(`{"a":1}`), nil
	})
	raw, err := WithGeneratorRecovery()(ok).Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"a":1}`), raw)
}

func TestExecutor_MiddlewareOrder(t *testing.T) {
	var trace []string
	tag := func(name string) GeneratorMiddleware {
		return func(next Generator) Generator {
			return GeneratorFunc(func(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
				trace = append(trace, name)
				return next.Generate(ctx, req)
			})
		}
	}
	gen := GeneratorFunc(func(context.Context, GenerateRequest) (json.RawMessage, error) {
		trace = append(trace, "gen")
		return json.RawMessage(`{}`), nil
	})
	e, err := NewExecutor(gen, WithGeneratorMiddleware(tag("outer"), tag("inner")))
	require.NoError(t, err)
	_, err = e.gen.Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "gen"}, trace)
}
