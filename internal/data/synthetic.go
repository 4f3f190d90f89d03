package data

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SyntheticSource is an offline QuoteSource: each symbol random-walks from its
// fallback price with a 0.05% per-call standard deviation. Symbols absent from
// the base table are ErrQuoteUnavailable.
type SyntheticSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSyntheticSource seeds the walk from base. A zero seed uses the wall
// clock.
func NewSyntheticSource(base FallbackTable, seed int64) *SyntheticSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	prices := make(map[string]float64, base.Len())
	for _, sym := range base.Symbols() {
		p, _ := base.Lookup(sym)
		prices[sym] = p
	}
	return &SyntheticSource{
		rng:    rand.New(rand.NewSource(seed)),
		prices: prices,
	}
}

// Name implements QuoteSource.
func (s *SyntheticSource) Name() string { return "synthetic" }

// LastPrice implements QuoteSource.
func (s *SyntheticSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	symbol = NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: synthetic source has no base for %s", ErrQuoteUnavailable, symbol)
	}
	price *= 1 + s.rng.NormFloat64()*0.0005
	price = math.Max(price, 0.01)
	s.prices[symbol] = price
	return math.Round(price*100) / 100, nil
}
