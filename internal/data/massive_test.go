package data

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// massiveStub answers every request with the body routed by path.
func massiveStub(t *testing.T, routes map[string]string) *http.Client {
	t.Helper()
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		status, body := http.StatusOK, ""
		switch {
		case r.URL.Path == "/v3/snapshot/indices":
			body = routes[r.URL.Query().Get("ticker.any_of")]
		case strings.HasPrefix(r.URL.Path, "/v2/last/trade/"):
			body = routes[strings.TrimPrefix(r.URL.Path, "/v2/last/trade/")]
		}
		if body == "" {
			status, body = http.StatusNotFound, `{"status":"NOT_FOUND","request_id":"x"}`
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	})}
}

func TestMassiveTickerMapping(t *testing.T) {
	src := NewMassiveSource("test", map[string]string{
		"nifty":     "I:NIFTY",
		"BANKNIFTY": "I:BANKNIFTY",
		"empty":     "",
	})

	cases := map[string]string{
		"NIFTY":     "I:NIFTY",
		" nifty ":   "I:NIFTY",
		"banknifty": "I:BANKNIFTY",
		"SPX":       "SPX",
		"EMPTY":     "EMPTY",
	}
	for in, want := range cases {
		if got := src.Ticker(in); got != want {
			t.Fatalf("Ticker(%q) = %q, want %q", in, got, want)
		}
	}
	if src.Name() != "massive" {
		t.Fatalf("unexpected name %q", src.Name())
	}
}

func TestMassiveLastPrice(t *testing.T) {
	hc := massiveStub(t, map[string]string{
		"I:NIFTY":     `{"status":"OK","results":[{"ticker":"I:NIFTY","value":24871.35}]}`,
		"I:BANKNIFTY": `{"status":"OK","results":[{"ticker":"I:BANKNIFTY","session":{"close":51190.5}}]}`,
		"I:SENSEX":    `{"status":"OK","results":[]}`,
		"SPY":         `{"status":"OK","results":{"T":"SPY","p":612.25}}`,
	})
	src := newMassiveSource("test", map[string]string{
		"NIFTY":     "I:NIFTY",
		"BANKNIFTY": "I:BANKNIFTY",
		"SENSEX":    "I:SENSEX",
		"FINNIFTY":  "I:FINNIFTY",
	}, hc)

	tests := []struct {
		symbol  string
		want    float64
		wantErr error
	}{
		{symbol: "NIFTY", want: 24871.35},
		{symbol: "BANKNIFTY", want: 51190.5},
		{symbol: "SPY", want: 612.25},
		{symbol: "SENSEX", wantErr: ErrQuoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := src.LastPrice(context.Background(), tt.symbol)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v (price %v)", tt.wantErr, err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("price = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := src.LastPrice(context.Background(), "FINNIFTY"); err == nil {
		t.Fatal("expected an error for a 404 answer")
	}
}
