package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/contactkeval/option-chain/internal/logger"
)

// HTTPSource queries a quote service that answers
//
//	GET {base}/price?symbol=NIFTY -> {"success": true, "price": 24850.15}
//
// Any non-200 status or success=false is ErrQuoteUnavailable; an undecodable
// body or a missing or non-positive price is ErrMalformedQuote.
type HTTPSource struct {
	client *resty.Client
	path   string
}

// NewHTTPSource builds a source rooted at baseURL. requestTimeout is a
// transport backstop; SpotClient applies the real deadline.
func NewHTTPSource(baseURL string, requestTimeout time.Duration) *HTTPSource {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "option-chain/1.0")

	return &HTTPSource{client: client, path: "/price"}
}

// Name implements QuoteSource.
func (h *HTTPSource) Name() string { return "http" }

type quoteResponse struct {
	Success *bool    `json:"success"`
	Price   *float64 `json:"price"`
}

// LastPrice implements QuoteSource.
func (h *HTTPSource) LastPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get(h.path)
	if err != nil {
		return 0, fmt.Errorf("quote request %s: %w", symbol, err)
	}

	if resp.StatusCode() != http.StatusOK {
		logger.Debugf("quote service status=%d body=%s", resp.StatusCode(), resp.String())
		return 0, fmt.Errorf("%w: status %d", ErrQuoteUnavailable, resp.StatusCode())
	}

	var body quoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedQuote, err)
	}
	if body.Success == nil {
		return 0, fmt.Errorf("%w: missing success flag", ErrMalformedQuote)
	}
	if !*body.Success {
		return 0, fmt.Errorf("%w: provider returned success=false", ErrQuoteUnavailable)
	}
	if body.Price == nil || !(*body.Price > 0) || math.IsInf(*body.Price, 0) {
		return 0, fmt.Errorf("%w: invalid price", ErrMalformedQuote)
	}
	return *body.Price, nil
}
