// Package savings computes membership savings and utilization from watch
// records, membership settings and an explicit "now".
//
// Everything here is a pure function of its arguments: no clock reads, no
// I/O, no retained state.
package savings

import "github.com/robertmeta/alist-cli/model"

// WindowStart returns the first day of scope's window. A missing start date
// means the membership has no history yet, so "now" is used as the floor.
func WindowStart(scope model.Scope, start *model.Date, now model.Date) model.Date {
	floor := now
	if start != nil && !start.IsZero() {
		floor = *start
	}

	switch scope {
	case model.ScopeLifetime:
		return floor
	case model.ScopeYear:
		return model.Later(now.StartOfYear(), floor)
	case model.ScopeMonth:
		return model.Later(now.StartOfMonth(), floor)
	default:
		return now
	}
}

// ActiveMonths counts billed calendar months from windowStart through now,
// both inclusive, by year/month subtraction. An active membership always
// counts at least one month; an inactive one counts none.
func ActiveMonths(windowStart, now model.Date, isActive bool) int {
	if !isActive {
		return 0
	}
	months := (now.Year()-windowStart.Year())*12 + int(now.Month()) - int(windowStart.Month()) + 1
	if months < 1 {
		return 1
	}
	return months
}

// inWindow reports whether d falls in scope's window: on or after the window
// start and inside the scope's calendar period around now.
func inWindow(scope model.Scope, d, windowStart, now model.Date) bool {
	if d.Before(windowStart) {
		return false
	}
	switch scope {
	case model.ScopeLifetime:
		return true
	case model.ScopeYear:
		return d.Year() == now.Year()
	case model.ScopeMonth:
		return d.SameMonth(now)
	default:
		return false
	}
}
