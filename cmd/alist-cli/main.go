package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/config"
	"github.com/robertmeta/alist-cli/store"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	app := &cli.App{
		Name:    "alist-cli",
		Usage:   "Track whether a movie-ticket subscription pays for itself",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Database file path (overrides the config file)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath(),
				Usage:   "Config file path",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Pull the Letterboxd diary feed and merge it into the local list",
				ArgsUsage: "[username]",
				Action:    syncMovies,
			},
			{
				Name:  "list",
				Usage: "List watch records",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   50,
						Usage:   "Maximum number of records to return",
					},
					&cli.IntFlag{
						Name:    "offset",
						Aliases: []string{"o"},
						Value:   0,
						Usage:   "Offset for pagination",
					},
					&cli.BoolFlag{
						Name:    "flagged",
						Aliases: []string{"f"},
						Usage:   "Show only records counted toward the membership",
					},
					&cli.StringFlag{
						Name:    "since",
						Aliases: []string{"s"},
						Usage:   "Show records since a date or duration (e.g., 2025-01-01, 7d, 2w, 3m, 1y)",
					},
				},
				Action: listMovies,
			},
			{
				Name:      "add",
				Usage:     "Add a watch by hand",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "Watch date, YYYY-MM-DD (default: today)",
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Record ID (default: generated)",
					},
					&cli.Float64Flag{
						Name:  "rating",
						Usage: "Star rating, 0-5",
					},
					&cli.BoolFlag{
						Name:  "flag",
						Usage: "Count this watch toward the membership",
					},
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Free-form notes",
					},
				},
				Action: addMovie,
			},
			{
				Name:      "flag",
				Usage:     "Count records toward the membership",
				ArgsUsage: "<id>...",
				Action:    setMembership(true),
			},
			{
				Name:      "unflag",
				Usage:     "Stop counting records toward the membership",
				ArgsUsage: "<id>...",
				Action:    setMembership(false),
			},
			{
				Name:      "toggle",
				Usage:     "Flip whether a record counts toward the membership",
				ArgsUsage: "<id>",
				Action:    toggleMovie,
			},
			{
				Name:      "note",
				Usage:     "Set the notes on a record",
				ArgsUsage: "<id> <text>",
				Action:    noteMovie,
			},
			{
				Name:      "remove",
				Usage:     "Remove a record",
				ArgsUsage: "<id>",
				Action:    removeMovie,
			},
			{
				Name:  "clear",
				Usage: "Remove every record (settings are kept)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm removal",
					},
				},
				Action: clearMovies,
			},
			{
				Name:  "stats",
				Usage: "Show membership savings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "lifetime, year or month (default: preferred view)",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "json",
						Usage: "Output format: json or text",
					},
					&cli.StringFlag{
						Name:  "now",
						Usage: "Compute as of this date, YYYY-MM-DD (default: today)",
					},
				},
				Action: showStats,
			},
			{
				Name:   "settings",
				Usage:  "Show settings",
				Action: showSettings,
				Subcommands: []*cli.Command{
					{
						Name:  "set",
						Usage: "Update settings",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "username", Usage: "Letterboxd username"},
							&cli.StringFlag{Name: "cost", Usage: "Monthly subscription cost"},
							&cli.StringFlag{Name: "ticket", Usage: "Average ticket price"},
							&cli.StringFlag{Name: "start", Usage: "Membership start date, YYYY-MM-DD (\"none\" clears it)"},
							&cli.BoolFlag{Name: "active", Usage: "Whether the membership is active"},
							&cli.StringFlag{Name: "view", Usage: "Default stats scope: lifetime, year or month"},
							&cli.StringFlag{Name: "currency", Usage: "Currency symbol for display"},
							&cli.BoolFlag{Name: "notifications", Usage: "Enable notifications"},
						},
						Action: setSettings,
					},
					{
						Name:   "reset",
						Usage:  "Restore default settings",
						Action: resetSettings,
					},
				},
			},
			{
				Name:  "export",
				Usage: "Export records",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "json",
						Usage:   "Output format: json (full backup) or csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: stdout)",
					},
				},
				Action: exportMovies,
			},
			{
				Name:      "import",
				Usage:     "Restore a JSON backup, replacing records and settings",
				ArgsUsage: "<file>",
				Action:    importMovies,
			},
			{
				Name:  "serve",
				Usage: "Serve the local HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the config file)",
					},
				},
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

// loadConfig reads the config file and applies explicitly set global flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	return cfg, nil
}

func newLogger(c *cli.Context) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("app", "alist-cli").Logger()
}

func getStore(cfg config.Config) (*store.Store, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return s, nil
}

// openStore loads the config and opens the store it names.
func openStore(c *cli.Context) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cfg, cli.Exit(err.Error(), ExitUsageError)
	}
	s, err := getStore(cfg)
	if err != nil {
		return nil, cfg, cli.Exit(err.Error(), ExitDataError)
	}
	return s, cfg, nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
