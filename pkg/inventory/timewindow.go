package inventory

import (
	"errors"
	"time"
)

// defaultWindow is how far back alarm and event listings reach when the
// request carries no time parameters at all.
const defaultWindow = 7 * 24 * time.Hour

var (
	// ErrTimeWindowConflict is returned when a request mixes parameters
	// from two different window modes.
	ErrTimeWindowConflict = errors.New("conflicting time window parameters")

	// ErrTimeWindowInvalid is returned when the window is malformed, e.g.
	// end before begin or a negative relative span.
	ErrTimeWindowInvalid = errors.New("invalid time window")
)

// TimeWindowParams holds the raw, still-unvalidated window selection of a
// request. Exactly one mode may be populated: absolute begin/end, a
// days-ago range, or an hours-ago range.
type TimeWindowParams struct {
	Begin *time.Time
	End   *time.Time

	DaysAgoBegin *int
	DaysAgoEnd   *int

	HoursAgoBegin *int
	HoursAgoEnd   *int
}

// TimeWindow is a resolved [Begin, End] interval.
type TimeWindow struct {
	Begin time.Time
	End   time.Time
}

// Resolve validates the parameters and produces the effective window.
// Validation happens before any endpoint is contacted, so a malformed
// request never costs a remote round trip.
func (p TimeWindowParams) Resolve(now time.Time) (TimeWindow, error) {
	absolute := p.Begin != nil || p.End != nil
	days := p.DaysAgoBegin != nil || p.DaysAgoEnd != nil
	hours := p.HoursAgoBegin != nil || p.HoursAgoEnd != nil

	modes := 0
	for _, set := range []bool{absolute, days, hours} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return TimeWindow{}, ErrTimeWindowConflict
	}

	switch {
	case days:
		return relativeWindow(now, p.DaysAgoBegin, p.DaysAgoEnd, 24*time.Hour)

	case hours:
		return relativeWindow(now, p.HoursAgoBegin, p.HoursAgoEnd, time.Hour)

	case absolute:
		window := TimeWindow{End: now}
		if p.End != nil {
			window.End = *p.End
		}
		if p.Begin != nil {
			window.Begin = *p.Begin
		} else {
			window.Begin = window.End.Add(-defaultWindow)
		}
		if window.End.Before(window.Begin) {
			return TimeWindow{}, ErrTimeWindowInvalid
		}
		return window, nil

	default:
		return TimeWindow{Begin: now.Add(-defaultWindow), End: now}, nil
	}
}

// relativeWindow resolves a "N units ago through M units ago" range. The
// range end defaults to now (zero units ago); the begin side is required.
func relativeWindow(now time.Time, begin, end *int, unit time.Duration) (TimeWindow, error) {
	if begin == nil {
		return TimeWindow{}, ErrTimeWindowInvalid
	}
	b := *begin

	e := 0
	if end != nil {
		e = *end
	}

	if b <= 0 || e < 0 || e >= b {
		return TimeWindow{}, ErrTimeWindowInvalid
	}

	return TimeWindow{
		Begin: now.Add(-time.Duration(b) * unit),
		End:   now.Add(-time.Duration(e) * unit),
	}, nil
}
