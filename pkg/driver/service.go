package driver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cuemby/flowd/pkg/log"
	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RequestConfig controls the service layer: retry policy, concurrency
// limiting, rate limiting, and per-attempt timeout (the `request`
// config block).
type RequestConfig struct {
	// Concurrency is either "adaptive" or a positive integer string
	// ("8"); ParseConcurrency resolves it once at service construction.
	Concurrency string

	RateLimitNum            int
	RateLimitDurationSecs   float64
	TimeoutSecs             float64
	RetryAttempts           int
	RetryMaxDurationSecs    float64
	RetryInitialBackoffSecs float64
	RetryMaxBackoffSecs     float64
}

func (c RequestConfig) timeout() time.Duration {
	if c.TimeoutSecs > 0 {
		return time.Duration(c.TimeoutSecs * float64(time.Second))
	}
	return 30 * time.Second
}

func (c RequestConfig) retryAttempts() int {
	if c.RetryAttempts > 0 {
		return c.RetryAttempts
	}
	return 10
}

func (c RequestConfig) retryMaxDuration() time.Duration {
	if c.RetryMaxDurationSecs > 0 {
		return time.Duration(c.RetryMaxDurationSecs * float64(time.Second))
	}
	return time.Minute
}

func (c RequestConfig) initialBackoff() time.Duration {
	if c.RetryInitialBackoffSecs > 0 {
		return time.Duration(c.RetryInitialBackoffSecs * float64(time.Second))
	}
	return 100 * time.Millisecond
}

func (c RequestConfig) maxBackoff() time.Duration {
	if c.RetryMaxBackoffSecs > 0 {
		return time.Duration(c.RetryMaxBackoffSecs * float64(time.Second))
	}
	return 10 * time.Second
}

// RetriableError marks a RequestFunc error as eligible for retry; any
// other error is treated as terminal (Rejected).
type RetriableError struct{ Err error }

func (e RetriableError) Error() string { return e.Err.Error() }
func (e RetriableError) Unwrap() error { return e.Err }

func isRetriable(err error) bool {
	var r RetriableError
	return errors.As(err, &r)
}

type requestOutcome int

const (
	outcomeDelivered requestOutcome = iota
	outcomeRejected
	outcomeErrored
)

// service layers retry, concurrency limiting, and rate limiting around
// one RequestFunc, a Go equivalent of a tower-style middleware stack
// laid out inline instead of as composable wrapper types, since Go has
// no generic service trait to compose them through.
type service struct {
	componentID string
	cfg         RequestConfig
	limiter     *rate.Limiter
	concurrency *adaptiveLimiter
	logger      zerolog.Logger
}

func newService(componentID string, cfg RequestConfig) *service {
	var limiter *rate.Limiter
	if cfg.RateLimitNum > 0 {
		dur := cfg.RateLimitDurationSecs
		if dur <= 0 {
			dur = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimitNum)/dur), cfg.RateLimitNum)
	}
	return &service{
		componentID: componentID,
		cfg:         cfg,
		limiter:     limiter,
		concurrency: newAdaptiveLimiter(cfg.Concurrency),
		logger:      log.WithComponent(componentID),
	}
}

// Do sends req through rate limiting, concurrency limiting, and retry,
// returning the terminal outcome. The total wall time spent retrying is
// bounded by retry_max_duration_secs plus one attempt's timeout.
func (s *service) Do(ctx context.Context, req Request, fn RequestFunc) (requestOutcome, error) {
	batchStart := time.Now()
	defer func() {
		metrics.SinkBatchDuration.WithLabelValues(s.componentID).Observe(time.Since(batchStart).Seconds())
	}()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return outcomeErrored, err
		}
	}

	deadline := time.Now().Add(s.cfg.retryMaxDuration())
	backoff := s.cfg.initialBackoff()

	var lastErr error
	for attempt := 0; attempt < s.cfg.retryAttempts(); attempt++ {
		if attempt > 0 && time.Now().After(deadline) {
			break
		}

		s.concurrency.acquire()
		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout())
		err := s.doOnce(attemptCtx, req, fn)
		cancel()
		latency := time.Since(start)
		s.concurrency.release(err == nil, latency)

		metrics.SinkConcurrencyLimit.WithLabelValues(s.componentID).Set(float64(s.concurrency.currentLimit()))

		if err == nil {
			return outcomeDelivered, nil
		}
		lastErr = err
		if errors.Is(err, errRequestPanic) {
			return outcomeErrored, err
		}
		if !isRetriable(err) {
			return outcomeRejected, err
		}

		metrics.SinkRetriesTotal.WithLabelValues(s.componentID).Inc()
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("sink request retrying")

		wait := backoff
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}
		select {
		case <-time.After(jitter(wait)):
		case <-ctx.Done():
			return outcomeErrored, ctx.Err()
		}
		backoff = nextBackoff(backoff, s.cfg.maxBackoff())
	}
	return outcomeErrored, fmt.Errorf("retry exhausted: %w", lastErr)
}

var errRequestPanic = errors.New("request panic")

func (s *service) doOnce(ctx context.Context, req Request, fn RequestFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errRequestPanic, r)
		}
	}()
	return fn(ctx, req)
}

// jitter applies full jitter (0..d) per the standard AWS backoff
// recommendation, avoiding synchronized retry storms across partitions.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := time.Duration(float64(cur) * 2)
	if next > max {
		return max
	}
	return next
}

// adaptiveLimiter bounds concurrent in-flight requests, either at a
// fixed size or via an AIMD controller: additive increase on sustained
// low-latency successes, multiplicative decrease on timeouts or errors
// (additive-increase, multiplicative-decrease, the standard shape for
// adaptive concurrency limiters).
type adaptiveLimiter struct {
	mu       sync.Mutex
	adaptive bool
	limit    int
	inFlight int
	cond     *sync.Cond

	successStreak int
}

const (
	minAdaptiveLimit = 1
	maxAdaptiveLimit = 256
)

func newAdaptiveLimiter(concurrency string) *adaptiveLimiter {
	l := &adaptiveLimiter{}
	l.cond = sync.NewCond(&l.mu)
	if n, ok := parseFixedConcurrency(concurrency); ok {
		l.limit = n
		return l
	}
	l.adaptive = true
	l.limit = 8
	return l
}

func parseFixedConcurrency(s string) (int, bool) {
	if s == "" || s == "adaptive" {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (l *adaptiveLimiter) acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.inFlight >= l.limit {
		l.cond.Wait()
	}
	l.inFlight++
}

// release reports one request's outcome back to the controller. For a
// fixed limiter this only frees the slot; for adaptive it also adjusts
// the limit.
func (l *adaptiveLimiter) release(success bool, latency time.Duration) {
	l.mu.Lock()
	l.inFlight--
	if l.adaptive {
		if success && latency < 2*time.Second {
			l.successStreak++
			if l.successStreak >= l.limit {
				l.successStreak = 0
				l.limit = minInt(l.limit+1, maxAdaptiveLimit)
			}
		} else {
			l.successStreak = 0
			l.limit = maxInt(l.limit/2, minAdaptiveLimit)
		}
	}
	l.cond.Broadcast()
	l.mu.Unlock()
}

func (l *adaptiveLimiter) currentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
