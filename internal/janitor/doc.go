// Package janitor removes transient export and import directories after a
// grace period without blocking the operation that produced them.
//
// Every scheduled removal is a cancellable Task driven by an injectable
// Clock. A failed removal is retried exactly once after RetryDelay; a second
// failure is logged and abandoned. Sweep and List cover directories left
// behind by processes that exited before their cleanups fired.
package janitor
