// Package llm wraps text-generation backends behind a Gateway that
// offers three invocation modes: blocking, non-blocking (a Future the
// caller can select on) and streamed (a lazy, single-use chunk
// sequence). Blocking and non-blocking calls share one retry policy and
// one response normalization; streamed calls are never retried.
//
// Each backend advertises a static Capabilities set at construction,
// which callers use to decide which mode to attempt.
package llm
