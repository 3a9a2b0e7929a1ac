package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts  int           // total attempts, default 3
	InitialDelay time.Duration // delay before the second attempt, default 1s
	MaxDelay     time.Duration // backoff cap, default 4s
}

// DefaultRetryConfig returns 3 attempts with 1s, 2s, 4s backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     4 * time.Second,
	}
}

// doWithRetry executes the request built by newReq, rebuilding it for every
// attempt so bodies can be replayed. A retriable final response is returned
// as is; callers turn non-2xx statuses into errors.
func doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error), cfg RetryConfig) (*http.Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil && !isRetriableError(err) {
			return nil, err
		}
		if err == nil {
			if !isRetriableStatus(resp.StatusCode) || attempt == cfg.MaxAttempts-1 {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay = min(delay*2, cfg.MaxDelay)
			}
		}
	}

	return nil, fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

func isRetriableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isRetriableStatus reports 5xx and 429.
func isRetriableStatus(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
