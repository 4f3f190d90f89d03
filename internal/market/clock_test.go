package market

import (
	"testing"
	"time"
)

func ist(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, Exchange)
}

func TestIsOpen(t *testing.T) {
	// 2025-06-16 is a Monday.
	cases := []struct {
		name   string
		now    time.Time
		open   bool
		reason string
	}{
		{"monday before open", ist(2025, 6, 16, 9, 14, 59), false, ReasonPreOpen},
		{"monday at open", ist(2025, 6, 16, 9, 15, 0), true, ReasonOpen},
		{"monday midday", ist(2025, 6, 16, 12, 0, 0), true, ReasonOpen},
		{"one second before close", ist(2025, 6, 16, 15, 29, 59), true, ReasonOpen},
		{"at close", ist(2025, 6, 16, 15, 30, 0), false, ReasonPostClose},
		{"friday evening", ist(2025, 6, 20, 18, 0, 0), false, ReasonPostClose},
		{"saturday midday", ist(2025, 6, 21, 12, 0, 0), false, ReasonWeekend},
		{"sunday midday", ist(2025, 6, 22, 12, 0, 0), false, ReasonWeekend},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsOpen(tc.now)
			if got.Open != tc.open || got.Reason != tc.reason {
				t.Fatalf("IsOpen(%s) = %+v, want open=%v reason=%s", tc.now, got, tc.open, tc.reason)
			}
		})
	}
}

func TestIsOpenConvertsFromOtherZones(t *testing.T) {
	// 04:00 UTC on a Monday is 09:30 IST.
	now := time.Date(2025, 6, 16, 4, 0, 0, 0, time.UTC)
	if got := IsOpen(now); !got.Open {
		t.Fatalf("expected open at %s, got %+v", now, got)
	}
	// 23:00 UTC Friday is 04:30 Saturday IST.
	now = time.Date(2025, 6, 20, 23, 0, 0, 0, time.UTC)
	if got := IsOpen(now); got.Open || got.Reason != ReasonWeekend {
		t.Fatalf("expected weekend at %s, got %+v", now, got)
	}
}

func TestNextOpen(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"early monday", ist(2025, 6, 16, 8, 0, 0), ist(2025, 6, 16, 9, 15, 0)},
		{"during monday session", ist(2025, 6, 16, 10, 0, 0), ist(2025, 6, 17, 9, 15, 0)},
		{"friday after close", ist(2025, 6, 20, 16, 0, 0), ist(2025, 6, 23, 9, 15, 0)},
		{"saturday", ist(2025, 6, 21, 9, 15, 0), ist(2025, 6, 23, 9, 15, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextOpen(tc.now); !got.Equal(tc.want) {
				t.Fatalf("NextOpen(%s) = %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}
