// Package retryhint factors out the retry-with-growing-context loop
// shared by the Brain and Nerves roles: call an LLM, parse and
// validate its response, and on failure retry with the validation
// failure folded into the next prompt as a "failure_hint" — an
// explicit loop with accumulating state, not exceptions used for
// control flow.
package retryhint

import (
	"context"
	"strconv"
)

// Attempt is called once per retry. hint is empty on the first call
// and carries the previous attempt's rejection reason afterward.
// ok reports whether the parsed chain passed validation; reason
// explains a rejection and becomes the next attempt's hint.
type Attempt[T any] func(ctx context.Context, hint string) (chain T, ok bool, reason string, err error)

// Run drives Attempt up to maxRetries times, returning the first
// validated chain. If every attempt is rejected or errors, it returns
// the last rejection reason (or error) wrapped for the caller.
func Run[T any](ctx context.Context, maxRetries int, attempt Attempt[T]) (T, error) {
	var zero T
	var hint string
	var lastReason string

	for i := 0; i < maxRetries; i++ {
		chain, ok, reason, err := attempt(ctx, hint)
		if err != nil {
			if i == maxRetries-1 {
				return zero, err
			}
			lastReason = reason
			hint = reason
			continue
		}
		if ok {
			return chain, nil
		}
		lastReason = reason
		hint = reason
	}

	if lastReason == "" {
		lastReason = "no valid response produced"
	}
	return zero, &Exhausted{Retries: maxRetries, Reason: lastReason}
}

// Exhausted reports that every retry was rejected without error.
type Exhausted struct {
	Retries int
	Reason  string
}

func (e *Exhausted) Error() string {
	return "retryhint: exhausted " + strconv.Itoa(e.Retries) + " attempts: " + e.Reason
}
