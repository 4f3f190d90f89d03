package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// MinTick is the smallest price a leg is ever quoted at.
const MinTick = 0.05

const (
	daysPerYear  = 365.0
	timeValueK   = 0.4 // share of the one-sigma move kept as time value
	moneynessK   = 0.5 // decay rate of time value away from the money
	decayPremium = 0.5
)

// Price values one call or put leg with a closed-form approximation.
//
// It is not Black-Scholes: time value is a fraction of the one-sigma move,
// damped exponentially by how many sigmas the strike sits from spot, then
// scaled by a time-decay premium. The result is rounded to 2dp and floored at
// MinTick.
//
// Parameters:
//   - spot: underlying price
//   - strike: option strike
//   - years: time to expiry in years
//   - volPct: volatility in percent (e.g. 20 for 20%)
//   - isCall: true for call, false for put
//
// Price is pure: identical inputs give identical output, and the result is
// finite for any finite input.
func Price(spot, strike, years, volPct float64, isCall bool) float64 {
	intrinsic := math.Max(0, strike-spot)
	if isCall {
		intrinsic = math.Max(0, spot-strike)
	}

	sigma := volPct / 100
	spread := sigma * math.Sqrt(math.Max(0, years))

	timeValue := 0.0
	if spread > 0 && spot > 0 {
		moneyness := (math.Abs(spot-strike) / spot) / spread
		timeValue = spread * spot * timeValueK * math.Exp(-moneyness*moneynessK)
	}

	raw := timeValue
	if intrinsic > 0 {
		raw = intrinsic + timeValue
	}

	timeDecay := math.Sqrt(math.Max(1, years*daysPerYear)/daysPerYear) * decayPremium
	final := raw * (1 + timeDecay)

	if math.IsNaN(final) || math.IsInf(final, 0) || final < MinTick {
		return MinTick
	}
	return math.Max(MinTick, Round2(final))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// YearsToExpiry converts calendar days to the year fraction Price expects.
func YearsToExpiry(days int) float64 {
	return float64(days) / daysPerYear
}
