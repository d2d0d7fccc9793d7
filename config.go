package analyst

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names for the runtime-tunable settings. Values must be
// positive integers; anything else falls back to the default.
const (
	EnvMaxConcurrentRequests = "MAX_CONCURRENT_REQUESTS"
	EnvRequestWaitTimeoutMS  = "REQUEST_WAIT_TIMEOUT_MS"
	EnvMaxRetries            = "MAX_RETRIES"
	EnvSchemaRepairRetries   = "SCHEMA_REPAIR_RETRIES"
	EnvMaxDiffChars          = "MAX_DIFF_CHARS"
	EnvMaxContextChars       = "MAX_CONTEXT_CHARS"
	EnvMaxFileChars          = "MAX_FILE_CHARS"
)

// Config holds every externally tunable setting. Construct it once at process
// start and pass it by reference; tests build fresh values instead of mutating
// a shared instance. Backoff timing is fixed (see backoff.go) and deliberately
// not part of Config.
type Config struct {
	// MaxConcurrentRequests is the limiter capacity.
	MaxConcurrentRequests int
	// RequestWaitTimeout bounds how long a call may wait for a slot. Scoped to
	// slot acquisition only, independent of any per-call timeout.
	RequestWaitTimeout time.Duration
	// MaxRetries is the default transport retry budget per call.
	MaxRetries int
	// SchemaRepairRetries bounds repair round trips, separately from MaxRetries.
	SchemaRepairRetries int
	// MaxDiffChars, MaxContextChars, and MaxFileChars are the budget ceilings.
	MaxDiffChars    int
	MaxContextChars int
	MaxFileChars    int
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentRequests: 3,
		RequestWaitTimeout:    30 * time.Second,
		MaxRetries:            3,
		SchemaRepairRetries:   2,
		MaxDiffChars:          120000,
		MaxContextChars:       240000,
		MaxFileChars:          80000,
	}
}

// ConfigFromEnv reads the environment, falling back to DefaultConfig for any
// variable that is unset, unparsable, or non-positive.
func ConfigFromEnv() *Config {
	return configFromLookup(os.Getenv)
}

// configFromLookup is ConfigFromEnv with an injectable lookup for tests.
func configFromLookup(lookup func(string) string) *Config {
	cfg := DefaultConfig()
	cfg.MaxConcurrentRequests = envInt(lookup, EnvMaxConcurrentRequests, cfg.MaxConcurrentRequests)
	cfg.RequestWaitTimeout = time.Duration(envInt(lookup, EnvRequestWaitTimeoutMS, int(cfg.RequestWaitTimeout.Milliseconds()))) * time.Millisecond
	cfg.MaxRetries = envInt(lookup, EnvMaxRetries, cfg.MaxRetries)
	cfg.SchemaRepairRetries = envInt(lookup, EnvSchemaRepairRetries, cfg.SchemaRepairRetries)
	cfg.MaxDiffChars = envInt(lookup, EnvMaxDiffChars, cfg.MaxDiffChars)
	cfg.MaxContextChars = envInt(lookup, EnvMaxContextChars, cfg.MaxContextChars)
	cfg.MaxFileChars = envInt(lookup, EnvMaxFileChars, cfg.MaxFileChars)
	return cfg
}

func envInt(lookup func(string) string, key string, fallback int) int {
	raw := strings.TrimSpace(lookup(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// LoadEnvFile loads .env files into the process environment before
// ConfigFromEnv, for local runs. Missing files are not an error.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
