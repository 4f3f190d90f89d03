package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/contactkeval/option-chain/internal/testutil"
)

var defaults = NewFallbackTable(map[string]float64{
	"NIFTY":     24850,
	"BANKNIFTY": 51200,
})

func TestFetchSpotLive(t *testing.T) {
	src := &testutil.StubSource{Prices: map[string]float64{"NIFTY": 25012.4}}
	resolvedAt := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	client := NewSpotClient(src, defaults, WithNow(testutil.FixedClock(resolvedAt)))

	q, err := client.FetchSpot(context.Background(), " nifty", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "NIFTY" || q.Price != 25012.4 || q.Source != SourceLive || q.Provider != "stub" {
		t.Fatalf("unexpected quote %+v", q)
	}
	if !q.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("ResolvedAt = %s, want %s", q.ResolvedAt, resolvedAt)
	}
}

func TestFetchSpotTimeoutFallsBack(t *testing.T) {
	src := &testutil.StubSource{
		Prices: map[string]float64{"NIFTY": 99999},
		Delay:  2 * time.Second,
	}
	client := NewSpotClient(src, defaults)

	start := time.Now()
	q, err := client.FetchSpot(context.Background(), "NIFTY", 50*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Source != SourceFallback || q.Price != 24850 {
		t.Fatalf("expected fallback 24850, got %+v", q)
	}
	if elapsed > time.Second {
		t.Fatalf("FetchSpot waited %s past a 50ms deadline", elapsed)
	}
}

func TestFetchSpotDiscardsLateAnswer(t *testing.T) {
	// The provider ignores the deadline and answers late; the answer must
	// not reach the caller or a later request.
	slow := &testutil.StubSource{
		Prices:        map[string]float64{"NIFTY": 11111},
		Delay:         150 * time.Millisecond,
		IgnoreContext: true,
	}
	client := NewSpotClient(slow, defaults)

	q, err := client.FetchSpot(context.Background(), "NIFTY", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Source != SourceFallback || q.Price != 24850 {
		t.Fatalf("expected fallback, got %+v", q)
	}

	// Let the abandoned lookup finish.
	time.Sleep(250 * time.Millisecond)
	if got := slow.Completed(); len(got) != 1 {
		t.Fatalf("expected abandoned lookup to complete once, got %v", got)
	}
	if q.Price != 24850 {
		t.Fatalf("quote overwritten by late answer: %+v", q)
	}

	slow.Delay = 0
	q2, err := client.FetchSpot(context.Background(), "NIFTY", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q2.Source != SourceLive || q2.Price != 11111 {
		t.Fatalf("expected fresh live quote, got %+v", q2)
	}
}

func TestFetchSpotFailureCategories(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		failure string
	}{
		{"transport", errors.New("connection refused"), FailureTransport},
		{"malformed", fmt.Errorf("%w: bad json", ErrMalformedQuote), FailureMalformed},
		{"rejected", fmt.Errorf("%w: success=false", ErrQuoteUnavailable), FailureRejected},
		{"deadline", context.DeadlineExceeded, FailureTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got != tc.failure {
				t.Fatalf("classify(%v) = %s, want %s", tc.err, got, tc.failure)
			}

			client := NewSpotClient(&testutil.StubSource{Err: tc.err}, defaults)
			q, err := client.FetchSpot(context.Background(), "BANKNIFTY", time.Second)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Source != SourceFallback || q.Price != 51200 {
				t.Fatalf("expected fallback, got %+v", q)
			}
		})
	}
}

func TestFetchSpotRejectsNonPositiveLivePrice(t *testing.T) {
	for _, bad := range []float64{0, -5, math.Inf(1), math.NaN()} {
		src := &testutil.StubSource{Prices: map[string]float64{"NIFTY": bad}}
		client := NewSpotClient(src, defaults)
		q, err := client.FetchSpot(context.Background(), "NIFTY", time.Second)
		if err != nil {
			t.Fatalf("price %v: unexpected error: %v", bad, err)
		}
		if q.Source != SourceFallback {
			t.Fatalf("price %v: expected fallback, got %+v", bad, q)
		}
	}
}

func TestFetchSpotNotFound(t *testing.T) {
	src := &testutil.StubSource{Prices: map[string]float64{}}
	client := NewSpotClient(src, defaults)

	_, err := client.FetchSpot(context.Background(), "ZZTOP", time.Second)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestFetchSpotWithoutSource(t *testing.T) {
	client := NewSpotClient(nil, defaults)

	q, err := client.FetchSpot(context.Background(), "NIFTY", time.Second)
	if err != nil || q.Source != SourceFallback {
		t.Fatalf("expected fallback quote, got %+v, %v", q, err)
	}
	if _, err := client.FetchSpot(context.Background(), "ZZTOP", time.Second); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestFetchSpotBreakerOpens(t *testing.T) {
	src := &testutil.StubSource{Err: errors.New("boom")}
	client := NewSpotClient(src, defaults, WithBreaker(BreakerSettings{
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}))

	for i := 0; i < 5; i++ {
		q, err := client.FetchSpot(context.Background(), "NIFTY", time.Second)
		if err != nil || q.Source != SourceFallback {
			t.Fatalf("call %d: expected fallback, got %+v, %v", i, q, err)
		}
	}
	if got := src.Calls(); got != 2 {
		t.Fatalf("breaker should stop lookups after 2 failures, source saw %d", got)
	}
}

func TestFetchSpotRateLimited(t *testing.T) {
	src := &testutil.StubSource{Prices: map[string]float64{"NIFTY": 25000}}
	client := NewSpotClient(src, defaults, WithRateLimit(0.001, 1))

	first, _ := client.FetchSpot(context.Background(), "NIFTY", time.Second)
	second, _ := client.FetchSpot(context.Background(), "NIFTY", time.Second)

	if first.Source != SourceLive {
		t.Fatalf("first lookup should be live, got %+v", first)
	}
	if second.Source != SourceFallback {
		t.Fatalf("second lookup should be rate limited, got %+v", second)
	}
	if src.Calls() != 1 {
		t.Fatalf("source saw %d calls, want 1", src.Calls())
	}
}

func TestSyntheticSource(t *testing.T) {
	src := NewSyntheticSource(defaults, 42)

	p, err := src.LastPrice(context.Background(), "nifty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-24850)/24850 > 0.01 {
		t.Fatalf("synthetic price drifted too far: %v", p)
	}
	if _, err := src.LastPrice(context.Background(), "ZZTOP"); !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.LastPrice(ctx, "NIFTY"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
