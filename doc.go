// Package analyst provides the shared execution core for request-style code
// review tools backed by an external structured-generation service.
//
// # Overview
//
// Every tool turns local input (a diff, a cached file, a finding description)
// into a prompt and expects a schema-conformant result back. The hard part is
// shared across all of them: bounding how many requests are in flight at once,
// retrying transient upstream failures with jittered backoff, classifying
// failures into a stable taxonomy, and repairing responses that fail schema
// validation, with cancellation and progress reporting throughout.
//
// Pipeline: StructuredRequest → budget checks → Executor (Limiter slot →
// Generator call with retry/backoff → Schema validate, bounded repair loop) →
// Outcome.
//
// # Key concepts
//
//   - Classified failures: every error path produces a ClassifiedError with a
//     stable code, a kind, and a retryable flag; nothing crosses the executor
//     boundary unclassified.
//   - Admission before work: the Limiter grants FIFO slots with a per-wait
//     timeout (busy) and cancellation (cancelled); no upstream call is made
//     without a slot.
//   - Schema repair: validation issues are fed back to the model a bounded
//     number of times, counted separately from transport retries.
//
// See Executor, StructuredRequest, Limiter, and Classify for the core surface,
// and NewExecutor / ConfigFromEnv for setup.
//
// # Example
//
//	schema, err := analyst.SchemaFor[Review]()
//	if err != nil { ... }
//	exec, err := analyst.NewExecutor(gen, analyst.WithConfig(analyst.ConfigFromEnv()))
//	if err != nil { ... }
//	out := exec.ExecuteStructuredRequest(ctx, analyst.StructuredRequest{
//	    Prompt: prompt,
//	    Schema: schema,
//	})
package analyst
