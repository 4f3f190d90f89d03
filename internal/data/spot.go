package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/contactkeval/option-chain/internal/logger"
	"github.com/contactkeval/option-chain/internal/metrics"
)

// DefaultSpotTimeout bounds a live lookup when the caller passes no timeout.
const DefaultSpotTimeout = 8 * time.Second

// Failure labels, used in logs and metrics.
const (
	FailureTimeout     = "timeout"
	FailureCancelled   = "cancelled"
	FailureTransport   = "transport"
	FailureMalformed   = "malformed"
	FailureRejected    = "rejected"
	FailureBreakerOpen = "breaker_open"
	FailureRateLimited = "rate_limited"
	FailureNoSource    = "no_source"
)

// BreakerSettings configures the circuit breaker in front of the live source.
type BreakerSettings struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// SpotClient resolves spot prices: one live lookup under a deadline, then the
// fallback table. It holds no per-request state.
type SpotClient struct {
	source   QuoteSource
	fallback FallbackTable
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	now      func() time.Time
}

// SpotOption customises a SpotClient.
type SpotOption func(*SpotClient)

// WithBreaker puts a circuit breaker in front of the live source. While open,
// lookups go straight to the fallback table.
func WithBreaker(s BreakerSettings) SpotOption {
	return func(c *SpotClient) {
		if s.FailureThreshold == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "quote-source",
			MaxRequests: 1,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(logger.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("quote source breaker state changed")
			},
		})
	}
}

// WithRateLimit caps outbound lookups. Requests over the limit are not
// queued; they use the fallback table.
func WithRateLimit(perSecond float64, burst int) SpotOption {
	return func(c *SpotClient) {
		if perSecond <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) SpotOption {
	return func(c *SpotClient) { c.metrics = m }
}

// WithNow overrides the clock stamped on IndexQuote.ResolvedAt.
func WithNow(now func() time.Time) SpotOption {
	return func(c *SpotClient) { c.now = now }
}

// NewSpotClient builds a client over source (nil means fallback only).
func NewSpotClient(source QuoteSource, fallback FallbackTable, opts ...SpotOption) *SpotClient {
	c := &SpotClient{
		source:   source,
		fallback: fallback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSpot resolves symbol within timeout.
//
// The live lookup runs in its own goroutine. If the deadline fires first the
// lookup is abandoned and its eventual result dropped; the fallback table is
// consulted immediately. Every live failure is treated the same way and only
// told apart in logs. When the fallback table has no entry either, the error
// wraps ErrSymbolNotFound.
func (c *SpotClient) FetchSpot(ctx context.Context, symbol string, timeout time.Duration) (IndexQuote, error) {
	symbol = NormalizeSymbol(symbol)
	if timeout <= 0 {
		timeout = DefaultSpotTimeout
	}
	start := time.Now()

	price, err := c.fetchLive(ctx, symbol, timeout)
	if err == nil {
		c.metrics.ObserveSpot(string(SourceLive), "ok", time.Since(start))
		logger.Tracef("spot %s=%.2f from %s in %s", symbol, price, c.source.Name(), time.Since(start))
		return IndexQuote{
			Symbol:     symbol,
			Price:      price,
			ResolvedAt: c.now(),
			Source:     SourceLive,
			Provider:   c.source.Name(),
		}, nil
	}

	failure := classify(err)
	fields := logger.Fields{
		"symbol":     symbol,
		"failure":    failure,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if c.source != nil {
		fields["provider"] = c.source.Name()
	}
	entry := logger.WithFields(fields)
	if failure == FailureNoSource {
		entry.Debug("no live source, using fallback table")
	} else {
		entry.WithError(err).Warn("live spot lookup failed")
	}

	if p, ok := c.fallback.Lookup(symbol); ok {
		c.metrics.ObserveSpot(string(SourceFallback), failure, time.Since(start))
		return IndexQuote{
			Symbol:     symbol,
			Price:      p,
			ResolvedAt: c.now(),
			Source:     SourceFallback,
		}, nil
	}

	c.metrics.ObserveSpot("none", failure, time.Since(start))
	return IndexQuote{}, fmt.Errorf("%w: %s (%s)", ErrSymbolNotFound, symbol, failure)
}

type liveResult struct {
	price float64
	err   error
}

func (c *SpotClient) fetchLive(ctx context.Context, symbol string, timeout time.Duration) (float64, error) {
	if c.source == nil {
		return 0, errNoSource
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return 0, errRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned lookup can always deliver and exit.
	done := make(chan liveResult, 1)
	go func() {
		p, err := c.execute(ctx, symbol)
		done <- liveResult{price: p, err: err}
	}()

	select {
	case r := <-done:
		return r.price, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *SpotClient) execute(ctx context.Context, symbol string) (float64, error) {
	lookup := func() (interface{}, error) {
		p, err := c.source.LastPrice(ctx, symbol)
		if err != nil {
			return 0.0, err
		}
		if !(p > 0) || math.IsInf(p, 0) {
			return 0.0, fmt.Errorf("%w: price %v", ErrMalformedQuote, p)
		}
		return p, nil
	}

	if c.breaker == nil {
		v, err := lookup()
		return v.(float64), err
	}
	v, err := c.breaker.Execute(lookup)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, errNoSource):
		return FailureNoSource
	case errors.Is(err, errRateLimited):
		return FailureRateLimited
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return FailureBreakerOpen
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, ErrMalformedQuote):
		return FailureMalformed
	case errors.Is(err, ErrQuoteUnavailable):
		return FailureRejected
	default:
		return FailureTransport
	}
}
