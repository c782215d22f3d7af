// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// MaxDelay caps the backoff delay between attempts regardless of how many
// attempts have already failed.
const MaxDelay = 30 * time.Second

// Do retries an operation with exponential backoff and randomized jitter.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry, capped at MaxDelay)
//
// Errors marked with Permanent are surfaced immediately without further
// attempts. Exhausting all attempts returns an *ExhaustedError wrapping the
// last cause. Sleeping is context-aware so a cancelled caller never stalls
// unrelated work.
func Do(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		if IsPermanent(lastErr) {
			slog.Debug("operation failed with permanent error", "attempt", attempt, "error", lastErr)
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Sleep with context awareness
		timer := time.NewTimer(Delay(baseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// Delay computes the sleep before attempt+1: baseDelay * 2^(attempt-1),
// capped at MaxDelay, with up to 25% random jitter added so concurrent
// retries against the same backend do not synchronize.
func Delay(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= MaxDelay {
			delay = MaxDelay
			break
		}
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
