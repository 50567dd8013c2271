package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/savings"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$12.50", formatMoney("$", decimal.RequireFromString("12.5")))
	assert.Equal(t, "-$4.00", formatMoney("$", decimal.NewFromInt(-4)))
	assert.Equal(t, "€0.00", formatMoney("€", decimal.Zero))
}

func TestDescribeBreakEven(t *testing.T) {
	zero, three, one := 0, 3, 1
	assert.Equal(t, "n/a", describeBreakEven(nil))
	assert.Equal(t, "reached", describeBreakEven(&zero))
	assert.Equal(t, "in 3 months at the current pace", describeBreakEven(&three))
	assert.Equal(t, "in 1 month at the current pace", describeBreakEven(&one))
}

func TestWriteReport(t *testing.T) {
	color.NoColor = true

	settings := model.DefaultSettings()
	start := model.NewDate(2025, 1, 1)
	settings.AList.StartDate = &start
	records := []model.WatchRecord{
		{ID: "a", Title: "A", WatchDate: model.NewDate(2025, 1, 5), CountsTowardMembership: true},
		{ID: "b", Title: "B", WatchDate: model.NewDate(2025, 1, 12), CountsTowardMembership: true},
	}
	stats := savings.Aggregate(records, settings.AList, model.NewDate(2025, 1, 20))

	var buf bytes.Buffer
	writeReport(&buf, model.ScopeLifetime, stats, settings)
	out := buf.String()

	assert.Contains(t, out, "Membership savings (lifetime)")
	assert.Contains(t, out, "$30.00")
	assert.Contains(t, out, "$23.95")
	assert.Contains(t, out, "(1 month)")
	assert.Contains(t, out, "$6.05")
	assert.Contains(t, out, "reached")
	assert.NotContains(t, out, "inactive")
}

func TestWriteReport_Inactive(t *testing.T) {
	color.NoColor = true

	settings := model.DefaultSettings()
	settings.AList.IsActive = false

	var buf bytes.Buffer
	writeReport(&buf, model.ScopeMonth, savings.Aggregate(nil, settings.AList, model.NewDate(2025, 1, 20)), settings)
	assert.Contains(t, buf.String(), "Membership inactive")
	assert.Contains(t, buf.String(), "(0 months)")
}

// runSettingsSet parses args as a `settings set` invocation and applies them.
func runSettingsSet(t *testing.T, settings *model.Settings, args ...string) error {
	t.Helper()
	var applyErr error
	app := &cli.App{
		Name: "alist-cli",
		Commands: []*cli.Command{
			{
				Name: "set",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "cost"},
					&cli.StringFlag{Name: "ticket"},
					&cli.StringFlag{Name: "start"},
					&cli.BoolFlag{Name: "active"},
					&cli.StringFlag{Name: "view"},
					&cli.StringFlag{Name: "currency"},
					&cli.BoolFlag{Name: "notifications"},
				},
				Action: func(c *cli.Context) error {
					applyErr = applySettingsFlags(c, settings)
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"alist-cli", "set"}, args...)))
	return applyErr
}

func TestApplySettingsFlags(t *testing.T) {
	settings := model.DefaultSettings()
	err := runSettingsSet(t, &settings,
		"--username", "@cinephile",
		"--cost", "$19.95",
		"--ticket", "abc",
		"--start", "2025-02-01",
		"--active=false",
		"--view", "monthly",
		"--currency", "€",
	)
	require.NoError(t, err)

	assert.Equal(t, "cinephile", settings.Letterboxd.Username)
	assert.Equal(t, "19.95", settings.AList.SubscriptionCost.StringFixed(2))
	assert.True(t, settings.AList.AvgTicketPrice.IsZero(), "invalid amounts coerce to zero")
	require.NotNil(t, settings.AList.StartDate)
	assert.Equal(t, "2025-02-01", settings.AList.StartDate.String())
	assert.False(t, settings.AList.IsActive)
	assert.Equal(t, model.ScopeMonth, settings.Preferences.DefaultView)
	assert.Equal(t, "€", settings.Preferences.Currency)
	assert.True(t, settings.Preferences.Notifications, "unset flags are left alone")

	require.NoError(t, runSettingsSet(t, &settings, "--start", "none"))
	assert.Nil(t, settings.AList.StartDate)
}

func TestApplySettingsFlags_Invalid(t *testing.T) {
	settings := model.DefaultSettings()
	assert.Error(t, runSettingsSet(t, &settings, "--start", "last week"))
	assert.Error(t, runSettingsSet(t, &settings, "--view", "decade"))
}
