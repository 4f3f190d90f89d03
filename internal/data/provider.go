// Package data resolves underlying index prices.
//
// A QuoteSource answers live lookups (Massive REST, a plain HTTP quote
// service, or a synthetic random walk). SpotClient races one lookup against a
// hard deadline and degrades to a static FallbackTable when the live path
// fails for any reason.
package data

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Source records where a spot price came from.
type Source string

const (
	SourceLive     Source = "live"     // answered by a QuoteSource in time
	SourceFallback Source = "fallback" // taken from the FallbackTable
)

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	// ErrSymbolNotFound means neither the live source nor the fallback
	// table could price the symbol.
	ErrSymbolNotFound = errors.New("spot price not found")

	// ErrQuoteUnavailable is a well-formed answer that carries no price
	// (success=false, non-200 status, unmapped ticker).
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrMalformedQuote is an answer that could not be decoded or carried a
	// non-positive or non-finite price.
	ErrMalformedQuote = errors.New("malformed quote")

	errNoSource    = errors.New("no live quote source configured")
	errRateLimited = errors.New("quote source rate limited")
)

// QuoteSource supplies live index prices.
type QuoteSource interface {
	// Name identifies the source in logs and in IndexQuote.Provider.
	Name() string
	// LastPrice returns the latest price for symbol. Implementations must
	// honour ctx cancellation.
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// IndexQuote is a resolved spot price.
type IndexQuote struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ResolvedAt time.Time `json:"resolvedAt"`
	Source     Source    `json:"source"`
	Provider   string    `json:"provider,omitempty"`
}

// NormalizeSymbol trims and upper-cases an index symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
