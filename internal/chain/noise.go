package chain

import (
	"math/rand"
	"strconv"
	"time"
)

// Noise supplies uniform draws in [0, 1). All randomness in a chain flows
// through one Noise per request; *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
}

// NoiseFactory returns a fresh Noise for each request.
type NoiseFactory func() Noise

// SeededNoise returns a factory whose sources all start from seed, so equal
// requests against an equal spot yield equal chains. A zero seed draws from
// the wall clock instead.
func SeededNoise(seed int64) NoiseFactory {
	return func() Noise {
		s := seed
		if s == 0 {
			s = time.Now().UnixNano()
		}
		return rand.New(rand.NewSource(s))
	}
}

// between maps a draw onto [lo, hi).
func between(n Noise, lo, hi float64) float64 {
	return lo + n.Float64()*(hi-lo)
}

func itoa(v int) string { return strconv.Itoa(v) }
