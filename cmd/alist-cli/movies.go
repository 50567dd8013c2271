package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/export"
	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/store"
	"github.com/robertmeta/alist-cli/syncer"
)

func syncMovies(c *cli.Context) error {
	s, cfg, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	username := c.Args().Get(0)
	if username == "" {
		settings, err := s.GetSettings()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to get settings: %v", err), ExitDataError)
		}
		if settings.Letterboxd.Username == "" {
			username = cfg.Username
		}
	}

	logger := newLogger(c)
	fetcher := feed.NewFetcher(cfg.FeedBaseURL, cfg.HTTPTimeout)
	svc := syncer.NewService(logger.With().Str("component", "syncer").Logger(), fetcher, s)

	result, err := svc.Sync(c.Context, username)
	if err != nil {
		var statusErr *feed.StatusError
		switch {
		case errors.Is(err, feed.ErrNoUsername):
			return cli.Exit(feed.UserMessage(err), ExitUsageError)
		case errors.As(err, &statusErr), errors.Is(err, feed.ErrUnreachable):
			return cli.Exit(feed.UserMessage(err), ExitGeneralError)
		default:
			return cli.Exit(fmt.Sprintf("Sync failed: %v", err), ExitDataError)
		}
	}

	return outputJSON(result)
}

func listMovies(c *cli.Context) error {
	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := store.BuildQueryOptions(
		c.Int("limit"),
		c.Int("offset"),
		c.Bool("flagged"),
		c.String("since"),
		model.Today(),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid query options: %v", err), ExitUsageError)
	}

	movies, err := s.GetMovies(opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get movies: %v", err), ExitDataError)
	}
	if movies == nil {
		movies = []model.WatchRecord{}
	}

	return outputJSON(map[string]interface{}{
		"count":  len(movies),
		"limit":  opts.Limit,
		"offset": opts.Offset,
		"movies": movies,
	})
}

func addMovie(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: alist-cli add <title> [--date YYYY-MM-DD]", ExitUsageError)
	}

	watched := model.Today()
	if v := c.String("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			return cli.Exit(err.Error(), ExitUsageError)
		}
		watched = d
	}

	m := model.NewManualRecord(c.String("id"), strings.Join(c.Args().Slice(), " "), watched)
	m.CountsTowardMembership = c.Bool("flag")
	m.Notes = c.String("notes")
	if c.IsSet("rating") {
		rating := c.Float64("rating")
		m.Rating = &rating
	}
	if err := m.Validate(); err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.GetMovie(m.ID); err == nil {
		return cli.Exit(fmt.Sprintf("Movie %s already exists", m.ID), ExitDataError)
	}
	if err := s.SaveMovie(&m); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to save movie: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success": true,
		"movie":   m,
	})
}

func setMembership(counts bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit(fmt.Sprintf("Usage: alist-cli %s <id>...", c.Command.Name), ExitUsageError)
		}

		s, _, err := openStore(c)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.SetMembership(c.Args().Slice(), counts)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to update movies: %v", err), ExitDataError)
		}

		return outputJSON(map[string]interface{}{
			"updated":                n,
			"countsTowardMembership": counts,
		})
	}
}

func toggleMovie(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: alist-cli toggle <id>", ExitUsageError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := s.ToggleMembership(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to toggle movie: %v", err), ExitDataError)
	}

	return outputJSON(m)
}

func noteMovie(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("Usage: alist-cli note <id> <text>", ExitUsageError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	id := c.Args().Get(0)
	notes := strings.Join(c.Args().Slice()[1:], " ")
	if err := s.SetNotes(id, notes); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to set notes: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success": true,
		"id":      id,
		"notes":   notes,
	})
}

func removeMovie(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: alist-cli remove <id>", ExitUsageError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	id := c.Args().Get(0)
	if err := s.DeleteMovie(id); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to delete movie: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

func clearMovies(c *cli.Context) error {
	if !c.Bool("yes") {
		return cli.Exit("Refusing to remove every record without --yes", ExitUsageError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.ClearMovies()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to clear movies: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success": true,
		"removed": n,
	})
}

func exportMovies(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "json" && format != "csv" {
		return cli.Exit(fmt.Sprintf("Unknown format %q (expected json or csv)", format), ExitUsageError)
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
	movies, err := s.AllMovies()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get movies: %v", err), ExitDataError)
	}

	// Determine output destination
	outputPath := c.String("output")
	var writer io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create output file: %v", err), ExitDataError)
		}
		defer file.Close()
		writer = file
	}

	if format == "csv" {
		err = export.WriteTable(writer, movies)
	} else {
		err = export.WriteJSON(writer, settings, movies)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to export: %v", err), ExitDataError)
	}

	// If outputting to file, also return JSON status
	if outputPath != "" {
		return outputJSON(map[string]interface{}{
			"success": true,
			"file":    outputPath,
			"format":  format,
			"count":   len(movies),
		})
	}

	return nil
}

func importMovies(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: alist-cli import <file>", ExitUsageError)
	}

	path := c.Args().Get(0)
	file, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open backup file: %v", err), ExitDataError)
	}
	defer file.Close()

	doc, err := export.ReadJSON(file)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to read backup: %v", err), ExitDataError)
	}

	s, _, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ReplaceMovies(doc.Movies); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to import movies: %v", err), ExitDataError)
	}
	if err := s.SaveSettings(doc.Settings); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to import settings: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success":  true,
		"imported": len(doc.Movies),
		"flagged":  model.CountFlagged(doc.Movies),
	})
}
