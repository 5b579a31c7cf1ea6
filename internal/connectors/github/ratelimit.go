package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// A sync cycle issues read-only calls (one repo lookup, one tree
// listing, one blob fetch per document) against the authenticated
// quota of 5000 requests per hour.
const (
	// requestRate caps outbound calls well under the hourly quota so a
	// large corpus leaves headroom for other clients of the same token.
	requestRate = 1.2

	// reserveQuota is how many remaining requests are left untouched.
	// When the reported quota drops this low, calls wait for the reset.
	reserveQuota = 100

	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
	headerRetryAfter    = "Retry-After"
)

// throttle paces calls to the GitHub API. It throttles proactively
// with a token bucket and backs off when the quota headers report the
// reserve is reached.
type throttle struct {
	bucket *rate.Limiter

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

func newThrottle() *throttle {
	return &throttle{
		bucket: rate.NewLimiter(rate.Limit(requestRate), 1),
		// Assume a full quota until the first response says otherwise.
		remaining: 5000,
	}
}

// wait blocks until the next call may be made. When the remaining
// quota is at the reserve it sleeps until the reported reset, bounded
// by the context.
func (t *throttle) wait(ctx context.Context) error {
	if err := t.bucket.Wait(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	remaining := t.remaining
	resetAt := t.resetAt
	t.mu.Unlock()

	if remaining >= reserveQuota || time.Now().After(resetAt) {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Until(resetAt)):
		return nil
	}
}

// observe updates the quota from a response's rate-limit headers. A
// 429 or quota-exhausted 403 additionally honours Retry-After.
func (t *throttle) observe(resp *http.Response) {
	if resp == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if v := resp.Header.Get(headerRateRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.remaining = n
		}
	}
	if v := resp.Header.Get(headerRateReset); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.resetAt = time.Unix(unix, 0)
		}
	}

	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && t.remaining == 0)
	if !limited {
		return
	}
	t.remaining = 0
	if v := resp.Header.Get(headerRetryAfter); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			t.resetAt = time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}
}

// quotaRemaining reports the last observed remaining quota.
func (t *throttle) quotaRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}
