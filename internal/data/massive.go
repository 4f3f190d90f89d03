package data

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/option-chain/internal/logger"
)

// indexTickerPrefix marks Massive index tickers, which have no trades and are
// priced from the indices snapshot instead.
const indexTickerPrefix = "I:"

// MassiveSource reads spot prices from the Massive REST API.
//
// Index symbols are mapped to Massive tickers through a per-symbol table
// (e.g. NIFTY -> I:NIFTY); unmapped symbols are looked up verbatim. Index
// tickers use the indices snapshot, anything else the last trade.
type MassiveSource struct {
	client  *massive.Client
	tickers map[string]string
}

// NewMassiveSource constructs a Massive-backed quote source.
//
// The HTTP client timeout is a backstop only; SpotClient enforces the real
// deadline through the request context.
func NewMassiveSource(apiKey string, tickers map[string]string) *MassiveSource {
	logger.Infof("initializing Massive quote source (%d mapped tickers)", len(tickers))

	return newMassiveSource(apiKey, tickers, &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
		},
	})
}

func newMassiveSource(apiKey string, tickers map[string]string, hc *http.Client) *MassiveSource {
	mapped := make(map[string]string, len(tickers))
	for sym, ticker := range tickers {
		mapped[NormalizeSymbol(sym)] = ticker
	}

	return &MassiveSource{
		client:  massive.NewWithClient(apiKey, hc),
		tickers: mapped,
	}
}

// Name implements QuoteSource.
func (m *MassiveSource) Name() string { return "massive" }

// Ticker returns the Massive ticker used for symbol.
func (m *MassiveSource) Ticker(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if t, ok := m.tickers[symbol]; ok && t != "" {
		return t
	}
	return symbol
}

// LastPrice implements QuoteSource.
func (m *MassiveSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	ticker := m.Ticker(symbol)
	if strings.HasPrefix(ticker, indexTickerPrefix) {
		return m.indexValue(ctx, ticker)
	}
	return m.lastTrade(ctx, ticker)
}

func (m *MassiveSource) indexValue(ctx context.Context, ticker string) (float64, error) {
	logger.Debugf("massive index snapshot request: %s", ticker)

	res, err := m.client.GetIndicesSnapshot(ctx, models.GetIndicesSnapshotParams{}.WithTickerAnyOf(ticker))
	if err != nil {
		return 0, fmt.Errorf("massive index snapshot %s: %w", ticker, err)
	}
	if res == nil {
		return 0, fmt.Errorf("%w: empty massive response for %s", ErrMalformedQuote, ticker)
	}
	for _, snap := range res.Results {
		if snap.Ticker != "" && snap.Ticker != ticker {
			continue
		}
		// no live value: use the session close
		price := snap.Value
		if price <= 0 {
			price = snap.Session.Close
		}
		if price <= 0 {
			return 0, fmt.Errorf("%w: no value for %s", ErrQuoteUnavailable, ticker)
		}
		logger.Tracef("massive index %s=%.2f", ticker, price)
		return price, nil
	}
	return 0, fmt.Errorf("%w: %s missing from snapshot", ErrQuoteUnavailable, ticker)
}

func (m *MassiveSource) lastTrade(ctx context.Context, ticker string) (float64, error) {
	logger.Debugf("massive last trade request: %s", ticker)

	res, err := m.client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: ticker})
	if err != nil {
		return 0, fmt.Errorf("massive last trade %s: %w", ticker, err)
	}
	if res == nil {
		return 0, fmt.Errorf("%w: empty massive response for %s", ErrMalformedQuote, ticker)
	}
	if res.Results.Price <= 0 {
		return 0, fmt.Errorf("%w: no trade for %s", ErrQuoteUnavailable, ticker)
	}

	logger.Tracef("massive last trade %s=%.2f", ticker, res.Results.Price)
	return res.Results.Price, nil
}
