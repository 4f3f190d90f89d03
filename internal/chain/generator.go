// Package chain builds synthetic option-chain snapshots: a strike ladder
// around a resolved spot price, each strike priced as a call and a put, with
// synthetic change, open interest and volume attached.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-chain/internal/data"
	"github.com/contactkeval/option-chain/internal/logger"
	"github.com/contactkeval/option-chain/internal/market"
	"github.com/contactkeval/option-chain/internal/pricing"
)

// Failure taxonomy. The HTTP layer maps these to 400, 404 and 500.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("symbol not found")
	ErrInternal   = errors.New("internal error")
)

const (
	DefaultStrikeGap    = 50
	DefaultDaysToExpiry = 7
	DefaultVolMin       = 18.0
	DefaultVolMax       = 26.0
)

const (
	ivJitter     = 0.5     // IV display fields move at most this far from the pricing vol
	maxChangePct = 0.04    // open-market change is within ±4% of the leg price
	peakOI       = 125_000 // ATM open interest before noise
	oiDecay      = 0.35    // per strike step away from ATM
	oiNoiseLo    = 0.7
	oiNoiseHi    = 1.3
	volumeLo     = 0.05 // volume as a share of open interest
	volumeHi     = 0.35
)

// SpotResolver resolves an index price; *data.SpotClient implements it.
type SpotResolver interface {
	FetchSpot(ctx context.Context, symbol string, timeout time.Duration) (data.IndexQuote, error)
}

// Config holds generator defaults. Zero fields take the package defaults.
type Config struct {
	StrikeGap    int
	DaysToExpiry int
	LegCount     int
	VolMin       float64 // percent
	VolMax       float64 // percent, exclusive
	SpotTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.StrikeGap <= 0 {
		c.StrikeGap = DefaultStrikeGap
	}
	if c.DaysToExpiry <= 0 {
		c.DaysToExpiry = DefaultDaysToExpiry
	}
	if c.LegCount <= 0 {
		c.LegCount = DefaultLegCount
	}
	if c.VolMin <= 0 || c.VolMax <= c.VolMin {
		c.VolMin, c.VolMax = DefaultVolMin, DefaultVolMax
	}
	if c.SpotTimeout <= 0 {
		c.SpotTimeout = data.DefaultSpotTimeout
	}
	return c
}

// Generator assembles snapshots. It is safe for concurrent use; every call
// to Generate works on its own state.
type Generator struct {
	cfg     Config
	spot    SpotResolver
	clock   market.Clock
	noise   NoiseFactory
	gapRule *GapRule
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock pins the generator's notion of now.
func WithClock(c market.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithNoise replaces the per-request randomness.
func WithNoise(f NoiseFactory) Option {
	return func(g *Generator) { g.noise = f }
}

// WithGapRule derives the strike gap from the spot when a request leaves it
// unset, instead of using Config.StrikeGap.
func WithGapRule(r *GapRule) Option {
	return func(g *Generator) { g.gapRule = r }
}

// NewGenerator builds a generator over spot.
func NewGenerator(spot SpotResolver, cfg Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:   cfg.withDefaults(),
		spot:  spot,
		clock: market.SystemClock,
		noise: SeededNoise(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Normalize upper-cases the symbol and fills defaults. Negative gaps or
// expiries and an empty symbol are ErrValidation. With a gap rule set, an
// unset StrikeGap stays zero until the spot is known.
func (g *Generator) Normalize(req Request) (Request, error) {
	req.Symbol = data.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if req.StrikeGap < 0 {
		return req, fmt.Errorf("%w: strikeGap must be positive", ErrValidation)
	}
	if req.DaysToExpiry < 0 {
		return req, fmt.Errorf("%w: daysToExpiry must be positive", ErrValidation)
	}
	if req.StrikeGap == 0 && g.gapRule == nil {
		req.StrikeGap = g.cfg.StrikeGap
	}
	if req.DaysToExpiry == 0 {
		req.DaysToExpiry = g.cfg.DaysToExpiry
	}
	return req, nil
}

// draws holds the noise consumed by one strike, taken in a fixed order.
type draws struct {
	vol                float64
	ceIV, peIV         float64
	ceOI, peOI         float64
	ceVolume, peVolume float64
	ceChange, peChange float64
}

// Generate builds one snapshot for req.
//
// Market state and spot are resolved concurrently. A symbol that neither the
// live source nor the fallback table can price is ErrNotFound. Any panic or
// ladder defect is ErrInternal. No partial snapshot is ever returned.
func (g *Generator) Generate(ctx context.Context, req Request) (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("chain generation panicked for %s: %v", req.Symbol, r)
			snap, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	req, err = g.Normalize(req)
	if err != nil {
		return nil, err
	}

	now := g.clock()
	var (
		status market.Status
		quote  data.IndexQuote
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(guard(func() error {
		status = market.IsOpen(now)
		return nil
	}))
	eg.Go(guard(func() error {
		q, err := g.spot.FetchSpot(egCtx, req.Symbol, g.cfg.SpotTimeout)
		if err != nil {
			return err
		}
		quote = q
		return nil
	}))
	if err := eg.Wait(); err != nil {
		if errors.Is(err, data.ErrSymbolNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Symbol)
		}
		if errors.Is(err, ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resolve spot %s: %v", ErrInternal, req.Symbol, err)
	}

	if req.StrikeGap == 0 {
		if req.StrikeGap, err = g.gapRule.Gap(req.Symbol, quote.Price); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	strikes, err := BuildStrikes(quote.Price, req.StrikeGap, g.cfg.LegCount)
	if err != nil {
		if errors.Is(err, ErrInvalidGap) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	legs, err := g.priceLegs(quote.Price, strikes, req.DaysToExpiry, status.Open)
	if err != nil {
		return nil, err
	}

	logger.Debugf("chain %s spot=%.2f (%s) gap=%d dte=%d open=%t",
		req.Symbol, quote.Price, quote.Source, req.StrikeGap, req.DaysToExpiry, status.Open)

	return &Snapshot{
		Index:        req.Symbol,
		SpotPrice:    quote.Price,
		SpotSource:   quote.Source,
		Provider:     quote.Provider,
		Strikes:      legs,
		Timestamp:    now.UnixMilli(),
		MarketOpen:   status.Open,
		MarketStatus: status.Reason,
		StrikeGap:    req.StrikeGap,
		DaysToExpiry: req.DaysToExpiry,
		Expiry:       now.In(market.Exchange).AddDate(0, 0, req.DaysToExpiry).Format("2006-01-02"),
		GeneratedAt:  now,
	}, nil
}

// priceLegs draws all noise up front, in strike order, then prices legs in
// parallel. The output is the same as a sequential run with the same noise.
func (g *Generator) priceLegs(spot float64, strikes []float64, days int, open bool) ([]StrikeLeg, error) {
	noise := g.noise()
	atmIdx := len(strikes) / 2

	plan := make([]draws, len(strikes))
	for i := range plan {
		d := draws{vol: between(noise, g.cfg.VolMin, g.cfg.VolMax)}
		d.ceIV = between(noise, -ivJitter, ivJitter)
		d.peIV = between(noise, -ivJitter, ivJitter)
		d.ceOI = between(noise, oiNoiseLo, oiNoiseHi)
		d.peOI = between(noise, oiNoiseLo, oiNoiseHi)
		d.ceVolume = between(noise, volumeLo, volumeHi)
		d.peVolume = between(noise, volumeLo, volumeHi)
		if open {
			d.ceChange = between(noise, -maxChangePct, maxChangePct)
			d.peChange = between(noise, -maxChangePct, maxChangePct)
		}
		plan[i] = d
	}

	years := pricing.YearsToExpiry(days)
	legs := make([]StrikeLeg, len(strikes))

	var eg errgroup.Group
	for i, strike := range strikes {
		eg.Go(guard(func() error {
			d := plan[i]
			steps := math.Abs(float64(i - atmIdx))
			base := peakOI * math.Exp(-oiDecay*steps)

			leg := StrikeLeg{
				Strike:  strike,
				CEPrice: pricing.Price(spot, strike, years, d.vol, true),
				PEPrice: pricing.Price(spot, strike, years, d.vol, false),
				CEIV:    pricing.Round2(d.vol + d.ceIV),
				PEIV:    pricing.Round2(d.vol + d.peIV),
				IsATM:   i == atmIdx,
				IsITM:   strike < spot,
			}
			leg.CEOI = nonNegative(base * d.ceOI)
			leg.PEOI = nonNegative(base * d.peOI)
			leg.CEVolume = nonNegative(float64(leg.CEOI) * d.ceVolume)
			leg.PEVolume = nonNegative(float64(leg.PEOI) * d.peVolume)
			if open {
				leg.CEChange = pricing.Round2(leg.CEPrice * d.ceChange)
				leg.PEChange = pricing.Round2(leg.PEPrice * d.peChange)
			}
			legs[i] = leg
			return nil
		}))
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return legs, nil
}

func nonNegative(v float64) int64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

// guard turns a panic inside an errgroup goroutine into ErrInternal.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic: %v", ErrInternal, r)
			}
		}()
		return fn()
	}
}
