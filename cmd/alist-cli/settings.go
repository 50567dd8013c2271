package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/model"
)

func showSettings(c *cli.Context) error {
	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.GetSettings()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get settings: %v", err), ExitDataError)
	}

	return outputJSON(settings)
}

func setSettings(c *cli.Context) error {
	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.GetSettings()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get settings: %v", err), ExitDataError)
	}
	if err := applySettingsFlags(c, &settings); err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}
	if err := s.SaveSettings(settings); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to save settings: %v", err), ExitDataError)
	}

	return outputJSON(settings)
}

// applySettingsFlags copies every flag the user set onto settings. Amounts
// that do not parse as a non-negative number are stored as zero.
func applySettingsFlags(c *cli.Context, settings *model.Settings) error {
	if c.IsSet("username") {
		settings.Letterboxd.Username = feed.NormalizeUsername(c.String("username"))
	}
	if c.IsSet("cost") {
		settings.AList.SubscriptionCost = model.CoerceAmount(c.String("cost"))
	}
	if c.IsSet("ticket") {
		settings.AList.AvgTicketPrice = model.CoerceAmount(c.String("ticket"))
	}
	if c.IsSet("start") {
		v := strings.TrimSpace(c.String("start"))
		if v == "" || strings.EqualFold(v, "none") {
			settings.AList.StartDate = nil
		} else {
			d, err := model.ParseDate(v)
			if err != nil {
				return err
			}
			settings.AList.StartDate = &d
		}
	}
	if c.IsSet("active") {
		settings.AList.IsActive = c.Bool("active")
	}
	if c.IsSet("view") {
		scope, err := model.ParseScope(c.String("view"))
		if err != nil {
			return err
		}
		settings.Preferences.DefaultView = scope
	}
	if c.IsSet("currency") {
		settings.Preferences.Currency = c.String("currency")
	}
	if c.IsSet("notifications") {
		settings.Preferences.Notifications = c.Bool("notifications")
	}
	return nil
}

func resetSettings(c *cli.Context) error {
	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	settings, err := s.ResetSettings()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to reset settings: %v", err), ExitDataError)
	}

	return outputJSON(settings)
}
