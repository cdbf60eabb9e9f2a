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

package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// MaxBackoff caps the delay between two attempts.
const MaxBackoff = 30 * time.Second

// RetryWithBackoff calls operation until it succeeds or maxAttempts calls
// have failed, sleeping baseDelay, 2*baseDelay, 4*baseDelay... (capped at
// MaxBackoff) in between. Context errors and configuration errors end the
// loop at once. The last error is returned.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var err error
	delay := baseDelay
	for attempt := range maxAttempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = operation(); err == nil {
			if attempt > 0 {
				slog.Debug("call succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}

		slog.Debug("call failed, retrying", "attempt", attempt+1, "max_attempts", maxAttempts, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, MaxBackoff)
	}

	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedPlatform):
		return false
	default:
		return true
	}
}
