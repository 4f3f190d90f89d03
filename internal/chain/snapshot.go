package chain

import (
	"time"

	"github.com/contactkeval/option-chain/internal/data"
)

// Request asks for one chain. Zero StrikeGap and DaysToExpiry take the
// generator defaults.
type Request struct {
	Symbol       string
	StrikeGap    int
	DaysToExpiry int
}

// CacheKey identifies equivalent requests: symbol|strikeGap|daysToExpiry.
func (r Request) CacheKey() string {
	return r.Symbol + "|" + itoa(r.StrikeGap) + "|" + itoa(r.DaysToExpiry)
}

// StrikeLeg is one row of the chain: the call and put at a single strike.
type StrikeLeg struct {
	Strike   float64 `json:"strike"`
	CEPrice  float64 `json:"cePrice"`
	CEChange float64 `json:"ceChange"`
	CEOI     int64   `json:"ceOI"`
	CEVolume int64   `json:"ceVolume"`
	CEIV     float64 `json:"ceIV"`
	PEPrice  float64 `json:"pePrice"`
	PEChange float64 `json:"peChange"`
	PEOI     int64   `json:"peOI"`
	PEVolume int64   `json:"peVolume"`
	PEIV     float64 `json:"peIV"`
	IsATM    bool    `json:"isATM"`
	// IsITM is the call-side view: strike below spot.
	IsITM bool `json:"isITM"`
}

// Snapshot is a complete generated chain. It is built fresh per request and
// never mutated afterwards.
type Snapshot struct {
	Index        string      `json:"index"`
	SpotPrice    float64     `json:"spotPrice"`
	SpotSource   data.Source `json:"spotSource"`
	Provider     string      `json:"provider,omitempty"`
	Strikes      []StrikeLeg `json:"strikes"`
	Timestamp    int64       `json:"timestamp"` // epoch milliseconds
	MarketOpen   bool        `json:"marketOpen"`
	MarketStatus string      `json:"marketStatus"`
	StrikeGap    int         `json:"strikeGap"`
	DaysToExpiry int         `json:"daysToExpiry"`
	Expiry       string      `json:"expiry"` // YYYY-MM-DD, exchange time

	GeneratedAt time.Time `json:"-"`
}

// ATM returns the at-the-money leg.
func (s *Snapshot) ATM() (StrikeLeg, bool) {
	for _, leg := range s.Strikes {
		if leg.IsATM {
			return leg, true
		}
	}
	return StrikeLeg{}, false
}
