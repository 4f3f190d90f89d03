// Package market answers whether the exchange is trading at a given instant.
//
// The session calendar is fixed: Monday to Friday, 09:15 to 15:30 in
// UTC+05:30. Exchange holidays are not modelled.
package market

import "time"

// Exchange is the fixed UTC+05:30 zone the session hours are expressed in.
var Exchange = time.FixedZone("IST", 5*60*60+30*60)

const (
	openMinute  = 9*60 + 15  // 09:15
	closeMinute = 15*60 + 30 // 15:30, already closed
)

// Reasons reported alongside the open flag.
const (
	ReasonOpen      = "open"
	ReasonWeekend   = "weekend"
	ReasonPreOpen   = "pre-open"
	ReasonPostClose = "post-close"
)

// Status is the market state at one instant.
type Status struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason"`
}

// IsOpen reports the session state at now. The close boundary is exclusive:
// 15:30:00 is already closed.
func IsOpen(now time.Time) Status {
	local := now.In(Exchange)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return Status{Open: false, Reason: ReasonWeekend}
	}

	minute := local.Hour()*60 + local.Minute()
	switch {
	case minute < openMinute:
		return Status{Open: false, Reason: ReasonPreOpen}
	case minute >= closeMinute:
		return Status{Open: false, Reason: ReasonPostClose}
	}
	return Status{Open: true, Reason: ReasonOpen}
}

// NextOpen returns the start of the next session strictly after now, or the
// start of the current session day if now is before 09:15 on a weekday.
func NextOpen(now time.Time) time.Time {
	local := now.In(Exchange)
	day := time.Date(local.Year(), local.Month(), local.Day(), 9, 15, 0, 0, Exchange)
	if !local.Before(day) {
		day = day.AddDate(0, 0, 1)
	}
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// Clock is the function shape the chain generator uses, so tests can pin time.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }
