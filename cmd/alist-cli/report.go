package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/savings"
)

type statsOutput struct {
	Scope     model.Scope           `json:"scope"`
	Now       model.Date            `json:"now"`
	Breakdown model.PeriodBreakdown `json:"breakdown"`
	Stats     model.Stats           `json:"stats"`
}

func showStats(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "json" && format != "text" {
		return cli.Exit(fmt.Sprintf("Unknown format %q (expected json or text)", format), ExitUsageError)
	}

	now := model.Today()
	if v := c.String("now"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			return cli.Exit(err.Error(), ExitUsageError)
		}
		now = d
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.GetSettings()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get settings: %v", err), ExitDataError)
	}

	scope := settings.Preferences.DefaultView
	if v := c.String("scope"); v != "" {
		scope, err = model.ParseScope(v)
		if err != nil {
			return cli.Exit(err.Error(), ExitUsageError)
		}
	}

	movies, err := s.AllMovies()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get movies: %v", err), ExitDataError)
	}

	stats := savings.Aggregate(movies, settings.AList, now)
	if format == "text" {
		writeReport(os.Stdout, scope, stats, settings)
		return nil
	}

	return outputJSON(statsOutput{
		Scope:     scope,
		Now:       now,
		Breakdown: stats.Breakdown(scope),
		Stats:     stats,
	})
}

// writeReport prints a receipt-style summary of one scope plus the
// usage metrics.
func writeReport(w io.Writer, scope model.Scope, stats model.Stats, settings model.Settings) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	cur := settings.Preferences.Currency
	b := stats.Breakdown(scope)

	fmt.Fprintf(w, "%s\n", cyan(fmt.Sprintf("Membership savings (%s)", scope)))
	if !settings.AList.IsActive {
		fmt.Fprintf(w, "%s\n", gray("Membership inactive: subscription cost is not counted"))
	}
	fmt.Fprintf(w, "  %-18s %d\n", "Trips:", b.TripCount)
	fmt.Fprintf(w, "  %-18s %s\n", "Ticket value:", formatMoney(cur, b.TicketValue))
	fmt.Fprintf(w, "  %-18s %s %s\n", "Membership cost:", formatMoney(cur, b.TicketValue.Sub(b.Savings)),
		gray(fmt.Sprintf("(%d %s)", b.ActiveMonths, plural(b.ActiveMonths, "month", "months"))))

	saved := formatMoney(cur, b.Savings)
	if b.Savings.IsNegative() {
		saved = red(saved)
	} else {
		saved = green(saved)
	}
	fmt.Fprintf(w, "  %-18s %s\n", "Savings:", saved)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-18s %s\n", "Avg per movie:", formatMoney(cur, stats.AvgSavingsPerMovie))
	fmt.Fprintf(w, "  %-18s %d/%d\n", "This week:", stats.WeeklyFreeUsed, savings.WeeklyQuota)
	fmt.Fprintf(w, "  %-18s %d/%d\n", "This month:", stats.MonthlyFreeUsed, savings.MonthlyQuota)
	fmt.Fprintf(w, "  %-18s %.1f%%\n", "Utilization:", stats.UtilizationRate)
	fmt.Fprintf(w, "  %-18s %s\n", "Break-even:", describeBreakEven(stats.BreakEvenMonths))
}

func describeBreakEven(months *int) string {
	switch {
	case months == nil:
		return "n/a"
	case *months == 0:
		return "reached"
	default:
		return fmt.Sprintf("in %d %s at the current pace", *months, plural(*months, "month", "months"))
	}
}

// formatMoney renders d with two decimals and the currency symbol after the
// sign, e.g. -$4.50.
func formatMoney(currency string, d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + currency + d.Abs().StringFixed(2)
	}
	return currency + d.StringFixed(2)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
