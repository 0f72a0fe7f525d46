package research

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryPolicy governs research call retries. Attempt 1 sends the prompt
// as built; every later attempt first feeds the prompt through Transform,
// so the retry asks a progressively simpler question instead of hammering
// the provider with the one that just failed.
// ⭐ SSOT: 리서치 재시도 규칙은 이 타입 하나로만 표현
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Transform   func(attempt int, prompt string) string
}

// DefaultRetryPolicy retries twice with a linear backoff, simplifying
// the prompt each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
		Transform:   SimplifyPrompt,
	}
}

// Do runs call under the policy. The closure receives the (possibly
// transformed) prompt for each attempt.
func (p RetryPolicy) Do(ctx context.Context, prompt string, call func(ctx context.Context, prompt string) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	current := prompt

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.Transform != nil {
				current = p.Transform(attempt, current)
			}

			select {
			case <-time.After(p.Backoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := call(ctx, current)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// SimplifyPrompt is the default retry transform. Attempt 2 drops the
// structured-output requirement; attempt 3 keeps only the lines up to
// the context block and asks for two plain sentences.
func SimplifyPrompt(attempt int, prompt string) string {
	switch {
	case attempt == 2:
		return prompt + "\n\nIf the requested format is a problem, respond with plain sentences instead."
	default:
		head := prompt
		if idx := strings.Index(prompt, "Context:"); idx > 0 {
			head = prompt[:idx]
		}
		return strings.TrimSpace(head) + "\n\nAnswer in two plain sentences."
	}
}
