package analyst

import "fmt"

// BudgetError reports input that exceeds a configured size ceiling. Budget
// failures are cheap pre-flight rejections: the request never consumed a
// concurrency slot and is never retried.
type BudgetError struct {
	Resource      string // "diff", "context", or "file"
	ProvidedChars int
	MaxChars      int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s exceeds maximum size: %d chars provided, limit %d", e.Resource, e.ProvidedChars, e.MaxChars)
}

// CheckDiffBudget rejects diffs larger than cfg.MaxDiffChars.
func CheckDiffBudget(cfg *Config, diff string) error {
	return checkBudget("diff", len(diff), cfg.MaxDiffChars)
}

// CheckContextBudget bounds the combined size of every context fragment that
// will be folded into a single prompt.
func CheckContextBudget(cfg *Config, parts ...string) error {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	return checkBudget("context", total, cfg.MaxContextChars)
}

// CheckFileBudget rejects a single file larger than cfg.MaxFileChars.
func CheckFileBudget(cfg *Config, content string) error {
	return checkBudget("file", len(content), cfg.MaxFileChars)
}

// checkBudget compares a computed size to its ceiling. Sizes are measured in
// bytes; a ceiling of 0 disables the check.
func checkBudget(resource string, provided, max int) error {
	if max > 0 && provided > max {
		return &BudgetError{Resource: resource, ProvidedChars: provided, MaxChars: max}
	}
	return nil
}
