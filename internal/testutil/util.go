// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// StubSource is a scriptable quote source. It satisfies data.QuoteSource.
type StubSource struct {
	// Prices answers lookups by symbol; a missing symbol returns Err (or
	// ErrNoPrice when Err is nil).
	Prices map[string]float64
	// Delay is slept before answering, honouring ctx.
	Delay time.Duration
	// Err, when set, is returned for every lookup.
	Err error
	// IgnoreContext keeps sleeping past ctx cancellation, like a provider
	// that does not honour deadlines.
	IgnoreContext bool

	calls     atomic.Int64
	mu        sync.Mutex
	completed []string
}

// ErrNoPrice is returned for symbols missing from Prices.
var ErrNoPrice = stubError("stub: no price")

type stubError string

func (e stubError) Error() string { return string(e) }

// Name implements the quote source contract.
func (s *StubSource) Name() string { return "stub" }

// LastPrice implements the quote source contract.
func (s *StubSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	s.calls.Add(1)

	if s.Delay > 0 {
		if s.IgnoreContext {
			time.Sleep(s.Delay)
		} else {
			select {
			case <-time.After(s.Delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	s.mu.Lock()
	s.completed = append(s.completed, symbol)
	s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}
	p, ok := s.Prices[symbol]
	if !ok {
		return 0, ErrNoPrice
	}
	return p, nil
}

// Calls is the number of lookups started.
func (s *StubSource) Calls() int { return int(s.calls.Load()) }

// Completed lists symbols whose lookup ran to the end, in order.
func (s *StubSource) Completed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completed...)
}

// FixedClock returns a clock pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ConstNoise always draws the same value. It satisfies chain.Noise.
type ConstNoise float64

// Float64 implements the noise contract.
func (c ConstNoise) Float64() float64 { return float64(c) }
