package analyst

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDiffBudget(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, CheckDiffBudget(cfg, strings.Repeat("x", cfg.MaxDiffChars)))

	err := CheckDiffBudget(cfg, strings.Repeat("x", 130000))
	require.Error(t, err)
	var be *BudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "diff", be.Resource)
	assert.Equal(t, 130000, be.ProvidedChars)
	assert.Equal(t, 120000, be.MaxChars)
	assert.Equal(t, "diff exceeds maximum size: 130000 chars provided, limit 120000", err.Error())
	assert.Equal(t, ErrorMeta{KindBudget, false}, Classify(err, err.Error()))
}

func TestCheckContextBudget_SumsParts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextChars = 10

	require.NoError(t, CheckContextBudget(cfg, "12345", "12345"))
	require.NoError(t, CheckContextBudget(cfg))

	err := CheckContextBudget(cfg, "12345", "123456")
	var be *BudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "context", be.Resource)
	assert.Equal(t, 11, be.ProvidedChars)
}

func TestCheckFileBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileChars = 4

	require.NoError(t, CheckFileBudget(cfg, "abcd"))

	err := CheckFileBudget(cfg, "abcde")
	var be *BudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "file", be.Resource)
}

func TestCheckBudget_ZeroCeilingDisables(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDiffChars = 0
	require.NoError(t, CheckDiffBudget(cfg, strings.Repeat("x", 1<<20)))
}

func TestCheckBudget_MeasuresBytes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileChars = 3
	// "é" is two bytes in UTF-8, so two of them exceed a 3-byte ceiling.
	err := CheckFileBudget(cfg, "éé")
	var be *BudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 4, be.ProvidedChars)
}
