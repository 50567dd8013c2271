// Package store provides SQLite database operations for alist-cli.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robertmeta/alist-cli/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const settingsKey = "default"

// Store manages the SQLite database.
type Store struct {
	db *sql.DB
}

// QueryOptions specifies how to query watch records.
type QueryOptions struct {
	Limit       int
	Offset      int
	FlaggedOnly bool
	Since       *model.Date
}

// New creates a new Store with the given database path.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	// Initialize schema
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the database tables and indexes.
func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		watch_date TEXT NOT NULL,
		source_id TEXT NOT NULL DEFAULT '',
		counts_toward_membership INTEGER NOT NULL DEFAULT 0,
		rating REAL,
		added_manually INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		film_year INTEGER NOT NULL DEFAULT 0,
		rewatch INTEGER NOT NULL DEFAULT 0,
		tmdb_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_watch_date ON movies(watch_date DESC);
	CREATE INDEX IF NOT EXISTS idx_movies_counts ON movies(counts_toward_membership);
	`

	_, err := s.db.Exec(schema)
	return err
}

const movieColumns = "id, title, watch_date, source_id, counts_toward_membership, rating, added_manually, notes, link, film_year, rewatch, tmdb_id"

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertMovie(ex execer, r *model.WatchRecord, position int) error {
	_, err := ex.Exec(`
		INSERT INTO movies (id, position, title, watch_date, source_id, counts_toward_membership, rating, added_manually, notes, link, film_year, rewatch, tmdb_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			watch_date = excluded.watch_date,
			source_id = excluded.source_id,
			counts_toward_membership = excluded.counts_toward_membership,
			rating = excluded.rating,
			added_manually = excluded.added_manually,
			notes = excluded.notes,
			link = excluded.link,
			film_year = excluded.film_year,
			rewatch = excluded.rewatch,
			tmdb_id = excluded.tmdb_id`,
		r.ID, position, r.Title, r.WatchDate.String(), r.SourceID, boolToInt(r.CountsTowardMembership),
		ratingToNull(r.Rating), boolToInt(r.AddedManually), r.Notes, r.Link, r.FilmYear, boolToInt(r.Rewatch), r.TMDBID,
	)
	return err
}

// SaveMovie inserts a record or updates the one with the same ID.
func (s *Store) SaveMovie(r *model.WatchRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}

	var next int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(position), -1) + 1 FROM movies").Scan(&next); err != nil {
		return fmt.Errorf("failed to get next position: %w", err)
	}

	if err := upsertMovie(s.db, r, next); err != nil {
		return fmt.Errorf("failed to save movie: %w", err)
	}
	return nil
}

// GetMovie retrieves a record by ID.
func (s *Store) GetMovie(id string) (*model.WatchRecord, error) {
	row := s.db.QueryRow("SELECT "+movieColumns+" FROM movies WHERE id = ?", id)
	r, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movie %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return r, nil
}

// GetMovies retrieves records with optional filtering, pagination.
func (s *Store) GetMovies(opts QueryOptions) ([]model.WatchRecord, error) {
	query := "SELECT " + movieColumns + " FROM movies WHERE 1=1"
	args := []interface{}{}

	// Apply filters
	if opts.FlaggedOnly {
		query += " AND counts_toward_membership = 1"
	}

	if opts.Since != nil {
		query += " AND watch_date >= ?"
		args = append(args, opts.Since.String())
	}

	// Newest watches first; ties keep sync order
	query += " ORDER BY watch_date DESC, position ASC"

	// Apply pagination
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}

	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	records := []model.WatchRecord{}
	for rows.Next() {
		r, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		records = append(records, *r)
	}

	return records, rows.Err()
}

// AllMovies returns every record in merge order.
func (s *Store) AllMovies() ([]model.WatchRecord, error) {
	rows, err := s.db.Query("SELECT " + movieColumns + " FROM movies ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	records := []model.WatchRecord{}
	for rows.Next() {
		r, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// ReplaceMovies swaps the whole record set in one transaction, keeping the
// given order.
func (s *Store) ReplaceMovies(records []model.WatchRecord) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("movie %d: %w", i, err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM movies"); err != nil {
		return fmt.Errorf("failed to clear movies: %w", err)
	}
	for i := range records {
		if err := upsertMovie(tx, &records[i], i); err != nil {
			return fmt.Errorf("failed to insert movie %q: %w", records[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SetMembership sets the membership flag on every listed record and returns
// how many were updated.
func (s *Store) SetMembership(ids []string, counts bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := []interface{}{boolToInt(counts)}
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.Exec("UPDATE movies SET counts_toward_membership = ? WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update membership: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// ToggleMembership flips the membership flag and returns the updated record.
func (s *Store) ToggleMembership(id string) (*model.WatchRecord, error) {
	result, err := s.db.Exec("UPDATE movies SET counts_toward_membership = 1 - counts_toward_membership WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle membership: %w", err)
	}
	if err := requireAffected(result, id); err != nil {
		return nil, err
	}
	return s.GetMovie(id)
}

// SetNotes replaces a record's notes.
func (s *Store) SetNotes(id, notes string) error {
	result, err := s.db.Exec("UPDATE movies SET notes = ? WHERE id = ?", notes, id)
	if err != nil {
		return fmt.Errorf("failed to set notes: %w", err)
	}
	return requireAffected(result, id)
}

// DeleteMovie deletes a record by ID.
func (s *Store) DeleteMovie(id string) error {
	result, err := s.db.Exec("DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	return requireAffected(result, id)
}

// ClearMovies deletes every record and returns how many were removed.
func (s *Store) ClearMovies() (int, error) {
	result, err := s.db.Exec("DELETE FROM movies")
	if err != nil {
		return 0, fmt.Errorf("failed to clear movies: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// GetSettings returns the stored settings, or the defaults when none were
// saved yet or the stored document is unreadable.
func (s *Store) GetSettings() (model.Settings, error) {
	var raw string
	err := s.db.QueryRow("SELECT value_json FROM settings WHERE key = ?", settingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := model.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return model.DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings stores the settings document.
func (s *Store) SaveSettings(settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (key, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at`,
		settingsKey, string(b), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ResetSettings restores the default settings and returns them.
func (s *Store) ResetSettings() (model.Settings, error) {
	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", settingsKey); err != nil {
		return model.Settings{}, fmt.Errorf("failed to reset settings: %w", err)
	}
	return model.DefaultSettings(), nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMovie(sc scanner) (*model.WatchRecord, error) {
	r := &model.WatchRecord{}
	var watchDate string
	var counts, manual, rewatch int
	var rating sql.NullFloat64

	err := sc.Scan(&r.ID, &r.Title, &watchDate, &r.SourceID, &counts, &rating, &manual, &r.Notes, &r.Link, &r.FilmYear, &rewatch, &r.TMDBID)
	if err != nil {
		return nil, err
	}

	d, err := model.ParseDate(watchDate)
	if err != nil {
		return nil, err
	}
	r.WatchDate = d
	r.CountsTowardMembership = intToBool(counts)
	r.AddedManually = intToBool(manual)
	r.Rewatch = intToBool(rewatch)
	if rating.Valid {
		v := rating.Float64
		r.Rating = &v
	}
	return r, nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("movie %q: %w", id, ErrNotFound)
	}
	return nil
}

// Helper functions for boolean<->int conversion (SQLite doesn't have BOOLEAN type)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func ratingToNull(r *float64) sql.NullFloat64 {
	if r == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *r, Valid: true}
}
