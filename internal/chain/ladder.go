package chain

import (
	"errors"
	"fmt"
	"math"
)

// DefaultLegCount is 7 strikes below ATM, the ATM strike, and 7 above.
const DefaultLegCount = 15

var (
	ErrInvalidGap      = errors.New("strike gap must be a positive integer")
	ErrInvalidLegCount = errors.New("leg count must be odd and positive")
	ErrInvalidSpot     = errors.New("spot must be positive and finite")
)

// ATMStrike returns the multiple of gap nearest to spot. A spot exactly
// halfway between two strikes maps to the lower one.
func ATMStrike(spot float64, gap int) float64 {
	g := float64(gap)
	return math.Ceil(spot/g-0.5) * g
}

// BuildStrikes returns legCount strikes centred on the ATM strike, ascending
// by gap. Every strike must be positive: a gap so wide that the bottom of the
// ladder would reach zero is ErrInvalidGap.
func BuildStrikes(spot float64, gap, legCount int) ([]float64, error) {
	if gap <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGap, gap)
	}
	if legCount < 1 || legCount%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLegCount, legCount)
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSpot, spot)
	}

	g := float64(gap)
	atm := ATMStrike(spot, gap)
	lowest := atm - float64(legCount/2)*g
	if lowest <= 0 {
		return nil, fmt.Errorf("%w: gap %d too wide for spot %.2f", ErrInvalidGap, gap, spot)
	}

	strikes := make([]float64, legCount)
	for i := range strikes {
		strikes[i] = lowest + float64(i)*g
	}
	return strikes, nil
}
