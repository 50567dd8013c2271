package savings

import (
	"github.com/robertmeta/alist-cli/model"
	"github.com/shopspring/decimal"
)

const (
	// WeeklyQuota is the number of free tickets per ISO week. It is a display
	// ceiling only; usage above it is still reported.
	WeeklyQuota = 4
	// MonthlyQuota is the denominator for the utilization rate.
	MonthlyQuota = 12
)

// Aggregate computes all three breakdowns plus the derived metrics.
func Aggregate(records []model.WatchRecord, settings model.MembershipSettings, now model.Date) model.Stats {
	stats := model.Stats{
		Lifetime:           ComputeBreakdown(model.ScopeLifetime, records, settings, now),
		Yearly:             ComputeBreakdown(model.ScopeYear, records, settings, now),
		Monthly:            ComputeBreakdown(model.ScopeMonth, records, settings, now),
		TotalFlaggedMovies: model.CountFlagged(records),
		AvgSavingsPerMovie: decimal.Zero,
	}

	if stats.TotalFlaggedMovies > 0 {
		stats.AvgSavingsPerMovie = model.Cents(stats.Lifetime.Savings.Div(decimal.NewFromInt(int64(stats.TotalFlaggedMovies))))
	}

	weekStart := now.StartOfWeek()
	weekEnd := weekStart.AddDate(0, 0, 7)
	for _, r := range records {
		if !r.CountsTowardMembership {
			continue
		}
		if !r.WatchDate.Before(weekStart) && r.WatchDate.Before(weekEnd) {
			stats.WeeklyFreeUsed++
		}
		if r.WatchDate.SameMonth(now) {
			stats.MonthlyFreeUsed++
		}
	}

	stats.UtilizationRate = min(100, float64(stats.MonthlyFreeUsed)/MonthlyQuota*100)
	stats.BreakEvenMonths = breakEven(stats, settings)
	return stats
}

// breakEven projects how many more months at the current pace it takes for
// lifetime savings to reach zero. nil means it never will (or cannot be told).
func breakEven(stats model.Stats, settings model.MembershipSettings) *int {
	if !settings.IsActive || stats.TotalFlaggedMovies == 0 {
		return nil
	}
	if !stats.Lifetime.Savings.IsNegative() {
		zero := 0
		return &zero
	}
	if stats.Lifetime.ActiveMonths <= 0 {
		return nil
	}

	pace := decimal.NewFromInt(int64(stats.TotalFlaggedMovies)).
		Div(decimal.NewFromInt(int64(stats.Lifetime.ActiveMonths)))
	delta := pace.Mul(settings.AvgTicketPrice).Sub(settings.SubscriptionCost)
	if !delta.IsPositive() {
		return nil
	}

	months := int(stats.Lifetime.Savings.Abs().Div(delta).Ceil().IntPart())
	return &months
}
