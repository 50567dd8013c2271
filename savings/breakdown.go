package savings

import (
	"github.com/robertmeta/alist-cli/model"
	"github.com/shopspring/decimal"
)

// ComputeBreakdown computes trips, ticket value and savings for one scope.
//
// Trips count when flagged and dated on or after the window start; year and
// month scopes further require the current calendar year or month.
// Savings are ticket value minus subscription burn over the scope's active
// months. An inactive membership reports zero savings even when flagged trips
// remain, but trip count and ticket value are still reported.
func ComputeBreakdown(scope model.Scope, records []model.WatchRecord, settings model.MembershipSettings, now model.Date) model.PeriodBreakdown {
	windowStart := WindowStart(scope, settings.StartDate, now)

	trips := 0
	for _, r := range records {
		if r.CountsTowardMembership && inWindow(scope, r.WatchDate, windowStart, now) {
			trips++
		}
	}

	ticketValue := settings.AvgTicketPrice.Mul(decimal.NewFromInt(int64(trips)))
	activeMonths := ActiveMonths(windowStart, now, settings.IsActive)

	savings := decimal.Zero
	if settings.IsActive {
		burn := settings.SubscriptionCost.Mul(decimal.NewFromInt(int64(activeMonths)))
		savings = ticketValue.Sub(burn)
	}

	return model.PeriodBreakdown{
		Savings:      savings,
		ActiveMonths: activeMonths,
		TripCount:    trips,
		TicketValue:  ticketValue,
	}
}
