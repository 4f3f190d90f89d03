package pricing

import (
	"math"
	"testing"
)

func TestPriceReferenceValues(t *testing.T) {
	// Hand-computed from the closed form.
	years := 7.0 / 365.0
	sigma := 0.20
	spread := sigma * math.Sqrt(years)
	decay := math.Sqrt(math.Max(1, years*365)/365) * 0.5

	atmTV := spread * 25000 * 0.4
	wantATM := Round2(atmTV * (1 + decay))

	if got := Price(25000, 25000, years, 20, true); got != wantATM {
		t.Fatalf("ATM call = %v, want %v", got, wantATM)
	}
	if got := Price(25000, 25000, years, 20, false); got != wantATM {
		t.Fatalf("ATM put = %v, want %v", got, wantATM)
	}

	m := (200.0 / 25000.0) / spread
	itmTV := spread * 25000 * 0.4 * math.Exp(-m*0.5)
	wantITM := Round2((200 + itmTV) * (1 + decay))
	if got := Price(25000, 24800, years, 20, true); got != wantITM {
		t.Fatalf("ITM call = %v, want %v", got, wantITM)
	}
	wantOTM := Round2(itmTV * (1 + decay))
	if got := Price(25000, 24800, years, 20, false); got != wantOTM {
		t.Fatalf("OTM put = %v, want %v", got, wantOTM)
	}
}

func TestPriceFloorAndFinite(t *testing.T) {
	inputs := []struct {
		spot, strike, years, vol float64
	}{
		{25000, 40000, 1.0 / 365, 18},
		{25000, 100, 7.0 / 365, 26},
		{1, 1_000_000, 0.001, 0.0001},
		{25000, 25000, 0, 20},
		{25000, 25000, 7.0 / 365, 0},
		{0.01, 0.01, 5, 500},
	}
	for _, in := range inputs {
		for _, call := range []bool{true, false} {
			p := Price(in.spot, in.strike, in.years, in.vol, call)
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Fatalf("non-finite price %v for %+v call=%v", p, in, call)
			}
			if p < MinTick {
				t.Fatalf("price %v below floor for %+v call=%v", p, in, call)
			}
		}
	}
}

func TestPriceDeterministic(t *testing.T) {
	a := Price(24987.35, 25100, 0.05, 21.7, true)
	for i := 0; i < 100; i++ {
		if b := Price(24987.35, 25100, 0.05, 21.7, true); b != a {
			t.Fatalf("run %d: %v != %v", i, b, a)
		}
	}
}

func TestPriceMonotonicInVolAndTime(t *testing.T) {
	spot, strike := 25000.0, 25150.0
	prev := 0.0
	for _, vol := range []float64{10, 15, 20, 25, 30, 40} {
		p := Price(spot, strike, 14.0/365, vol, true)
		if p < prev {
			t.Fatalf("price fell with higher vol: vol=%v p=%v prev=%v", vol, p, prev)
		}
		prev = p
	}

	prev = 0
	for _, days := range []int{1, 3, 7, 14, 30, 90} {
		p := Price(spot, strike, YearsToExpiry(days), 20, false)
		if p < prev {
			t.Fatalf("price fell with more time: days=%d p=%v prev=%v", days, p, prev)
		}
		prev = p
	}
}

func TestPriceConvergesToIntrinsic(t *testing.T) {
	years := 7.0 / 365
	decay := math.Sqrt(math.Max(1, years*365)/365) * 0.5

	// Deep ITM call: time value vanishes, leaving intrinsic scaled by the decay premium.
	deep := Price(25000, 10000, years, 20, true)
	want := Round2(15000 * (1 + decay))
	if math.Abs(deep-want) > 0.05 {
		t.Fatalf("deep ITM call = %v, want ~%v", deep, want)
	}

	// Deep OTM put collapses to the floor.
	if p := Price(25000, 10000, years, 20, false); p != MinTick {
		t.Fatalf("deep OTM put = %v, want %v", p, MinTick)
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		1.005:  1.01,
		2.344:  2.34,
		2.345:  2.35,
		100:    100,
		0.0049: 0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Fatalf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}
