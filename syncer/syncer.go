// Package syncer pulls the diary feed and reconciles it into the store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/reconcile"
)

// ErrSyncInProgress is returned when a sync is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// DocumentFetcher retrieves the raw diary feed for a username.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, username string) (string, error)
}

// Repository is the persistence the sync needs.
type Repository interface {
	AllMovies() ([]model.WatchRecord, error)
	ReplaceMovies(records []model.WatchRecord) error
	GetSettings() (model.Settings, error)
	SaveSettings(settings model.Settings) error
}

// Result summarizes a completed sync.
type Result struct {
	Username string    `json:"username"`
	Fetched  int       `json:"fetched"`
	Added    int       `json:"added"`
	Updated  int       `json:"updated"`
	Total    int       `json:"total"`
	LastSync time.Time `json:"lastSync"`
}

// Service runs syncs. It is safe for concurrent use; overlapping calls fail
// fast with ErrSyncInProgress.
type Service struct {
	logger  zerolog.Logger
	fetcher DocumentFetcher
	parser  *feed.Parser
	repo    Repository
	busy    *semaphore.Weighted
	now     func() time.Time
}

// NewService creates a sync Service.
func NewService(logger zerolog.Logger, fetcher DocumentFetcher, repo Repository) *Service {
	return &Service{
		logger:  logger,
		fetcher: fetcher,
		parser:  feed.NewParser(),
		repo:    repo,
		busy:    semaphore.NewWeighted(1),
		now:     time.Now,
	}
}

// Sync fetches the feed for username (or the stored username when empty),
// merges it into the stored records and records the sync in the settings.
// Stored records are untouched when the fetch or the parse fails.
func (s *Service) Sync(ctx context.Context, username string) (Result, error) {
	if !s.busy.TryAcquire(1) {
		return Result{}, ErrSyncInProgress
	}
	defer s.busy.Release(1)

	settings, err := s.repo.GetSettings()
	if err != nil {
		return Result{}, fmt.Errorf("failed to load settings: %w", err)
	}

	username = feed.NormalizeUsername(username)
	if username == "" {
		username = feed.NormalizeUsername(settings.Letterboxd.Username)
	}
	if username == "" {
		return Result{}, feed.ErrNoUsername
	}

	logger := s.logger.With().Str("username", username).Logger()
	logger.Debug().Msg("fetching diary feed")

	doc, err := s.fetcher.FetchDocument(ctx, username)
	if err != nil {
		logger.Warn().Err(err).Msg("fetch failed")
		return Result{}, err
	}

	incoming, err := s.parser.Parse(doc)
	if err != nil {
		logger.Warn().Err(err).Msg("parse failed")
		return Result{}, err
	}

	existing, err := s.repo.AllMovies()
	if err != nil {
		return Result{}, fmt.Errorf("failed to load movies: %w", err)
	}

	merged := reconcile.Merge(incoming, existing)
	added, updated := reconcile.Diff(existing, merged)

	if err := s.repo.ReplaceMovies(merged); err != nil {
		return Result{}, fmt.Errorf("failed to store movies: %w", err)
	}

	syncedAt := s.now().UTC().Truncate(time.Second)
	settings.Letterboxd.Username = username
	settings.Letterboxd.LastSync = &syncedAt
	if err := s.repo.SaveSettings(settings); err != nil {
		return Result{}, fmt.Errorf("failed to record sync: %w", err)
	}

	result := Result{
		Username: username,
		Fetched:  len(incoming),
		Added:    added,
		Updated:  updated,
		Total:    len(merged),
		LastSync: syncedAt,
	}
	logger.Info().
		Int("fetched", result.Fetched).
		Int("added", result.Added).
		Int("updated", result.Updated).
		Int("total", result.Total).
		Msg("sync complete")

	return result, nil
}
