package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/voicewire/go-voicewire/pkg/llm"
	"github.com/voicewire/go-voicewire/pkg/protocol"
)

// maxAttempts is the model-call ceiling per turn. The first call plus
// two retries, all for rate limits only.
const maxAttempts = 3

// retryToastMessage is shown to the client while a retry waits out the
// rate limit.
const retryToastMessage = "The model is busy, retrying..."

// sleep is swapped out in tests to avoid real backoff waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// generateWithRetry calls the model's streaming endpoint with bounded
// rate-limit retries, accumulating fragments into one reply.
//
// Backoff before attempt n+1 is 2^n seconds plus up to one second of
// jitter. Every attempt after the first announces itself to the client
// with a retry toast. Any non-rate-limit error aborts immediately.
func (a *Agent) generateWithRetry(ctx context.Context, req *llm.Request, sink protocol.Sink) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			a.metrics.IncrementRetry()
			if err := sink.Send(protocol.NewRetryToast(retryToastMessage, attempt, maxAttempts)); err != nil {
				return "", err
			}

			backoff := time.Duration(1<<uint(attempt-1))*time.Second +
				time.Duration(rand.Float64()*float64(time.Second))
			a.logger.Warn("rate limited, backing off", "attempt", attempt, "backoff", backoff)
			if err := sleep(ctx, backoff); err != nil {
				return "", err
			}
		}

		var reply strings.Builder
		_, err := a.generator.Stream(ctx, req, func(fragment string) {
			reply.WriteString(fragment)
		})
		if err == nil {
			return reply.String(), nil
		}
		lastErr = err

		if !llm.IsRateLimited(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("agent: gave up after %d attempts: %w", maxAttempts, lastErr)
}
