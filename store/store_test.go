package store

import (
	"testing"
	"time"

	"github.com/robertmeta/alist-cli/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func movie(id, watched string) model.WatchRecord {
	return model.WatchRecord{ID: id, Title: "Film " + id, WatchDate: model.MustParseDate(watched)}
}

func TestNewStore(t *testing.T) {
	// Test creating a new in-memory database
	s, err := New(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()
}

func TestStore_SaveAndGetMovie(t *testing.T) {
	s := newTestStore(t)

	rating := 3.5
	r := model.WatchRecord{
		ID:                     "past-lives-2025-01-18",
		Title:                  "Past Lives",
		WatchDate:              model.NewDate(2025, 1, 18),
		SourceID:               "past-lives",
		CountsTowardMembership: true,
		Rating:                 &rating,
		Notes:                  "Dolby",
		Link:                   "https://letterboxd.com/me/film/past-lives/",
		FilmYear:               2023,
		Rewatch:                true,
		TMDBID:                 "666277",
	}

	require.NoError(t, s.SaveMovie(&r))

	got, err := s.GetMovie(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, *got)
}

func TestStore_SaveMovieRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveMovie(&model.WatchRecord{ID: "x"})
	assert.Error(t, err)
}

func TestStore_SaveMovieUpserts(t *testing.T) {
	s := newTestStore(t)

	r := movie("a", "2025-01-01")
	require.NoError(t, s.SaveMovie(&r))
	r.Title = "Renamed"
	require.NoError(t, s.SaveMovie(&r))

	all, err := s.AllMovies()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Title)
	assert.Nil(t, all[0].Rating)
}

func TestStore_GetMovieNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetMovie("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetMovies(t *testing.T) {
	s := newTestStore(t)

	records := []model.WatchRecord{
		movie("old", "2024-06-01"),
		movie("mid", "2024-12-24"),
		movie("new", "2025-01-15"),
	}
	records[1].CountsTowardMembership = true
	records[2].CountsTowardMembership = true
	require.NoError(t, s.ReplaceMovies(records))

	tests := []struct {
		name   string
		opts   QueryOptions
		expect []string
	}{
		{"all newest first", QueryOptions{}, []string{"new", "mid", "old"}},
		{"flagged only", QueryOptions{FlaggedOnly: true}, []string{"new", "mid"}},
		{"limit", QueryOptions{Limit: 1}, []string{"new"}},
		{"offset without limit", QueryOptions{Offset: 1}, []string{"mid", "old"}},
		{"limit and offset", QueryOptions{Limit: 1, Offset: 1}, []string{"mid"}},
		{"since", QueryOptions{Since: datePtr(model.NewDate(2024, 12, 24))}, []string{"new", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetMovies(tt.opts)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.expect, ids)
		})
	}
}

func TestStore_ReplaceMoviesKeepsOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.ReplaceMovies([]model.WatchRecord{movie("x", "2024-01-01"), movie("y", "2024-01-02")}))
	require.NoError(t, s.ReplaceMovies([]model.WatchRecord{movie("c", "2024-01-01"), movie("a", "2025-01-01"), movie("b", "2023-01-01")}))

	all, err := s.AllMovies()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "b", all[2].ID)
}

func TestStore_ReplaceMoviesIsAtomic(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.ReplaceMovies([]model.WatchRecord{movie("keep", "2024-01-01")}))
	err := s.ReplaceMovies([]model.WatchRecord{movie("new", "2024-01-01"), {ID: "bad"}})
	require.Error(t, err)

	all, err := s.AllMovies()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0].ID)
}

func TestStore_SetMembership(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceMovies([]model.WatchRecord{movie("a", "2024-01-01"), movie("b", "2024-01-02"), movie("c", "2024-01-03")}))

	n, err := s.SetMembership([]string{"a", "c", "missing"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	flagged, err := s.GetMovies(QueryOptions{FlaggedOnly: true})
	require.NoError(t, err)
	assert.Len(t, flagged, 2)

	n, err = s.SetMembership(nil, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ToggleMembership(t *testing.T) {
	s := newTestStore(t)
	r := movie("a", "2024-01-01")
	require.NoError(t, s.SaveMovie(&r))

	got, err := s.ToggleMembership("a")
	require.NoError(t, err)
	assert.True(t, got.CountsTowardMembership)

	got, err = s.ToggleMembership("a")
	require.NoError(t, err)
	assert.False(t, got.CountsTowardMembership)

	_, err = s.ToggleMembership("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SetNotesAndDelete(t *testing.T) {
	s := newTestStore(t)
	r := movie("a", "2024-01-01")
	require.NoError(t, s.SaveMovie(&r))

	require.NoError(t, s.SetNotes("a", "IMAX"))
	got, err := s.GetMovie("a")
	require.NoError(t, err)
	assert.Equal(t, "IMAX", got.Notes)

	assert.ErrorIs(t, s.SetNotes("missing", "x"), ErrNotFound)

	require.NoError(t, s.DeleteMovie("a"))
	_, err = s.GetMovie("a")
	assert.ErrorIs(t, err, ErrNotFound, "Should error when getting deleted movie")
	assert.ErrorIs(t, s.DeleteMovie("a"), ErrNotFound)
}

func TestStore_ClearMovies(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceMovies([]model.WatchRecord{movie("a", "2024-01-01"), movie("b", "2024-01-02")}))

	n, err := s.ClearMovies()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.AllMovies()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_Settings(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got, "defaults before anything is saved")

	start := model.NewDate(2024, 4, 15)
	synced := time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)
	settings := model.DefaultSettings()
	settings.Letterboxd = model.LetterboxdSettings{Username: "cinephile", LastSync: &synced}
	settings.AList.SubscriptionCost = decimal.RequireFromString("19.95")
	settings.AList.StartDate = &start
	settings.Preferences.DefaultView = model.ScopeMonth
	require.NoError(t, s.SaveSettings(settings))

	got, err = s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "cinephile", got.Letterboxd.Username)
	require.NotNil(t, got.Letterboxd.LastSync)
	assert.True(t, synced.Equal(*got.Letterboxd.LastSync))
	assert.True(t, got.AList.SubscriptionCost.Equal(decimal.RequireFromString("19.95")))
	assert.Equal(t, &start, got.AList.StartDate)
	assert.Equal(t, model.ScopeMonth, got.Preferences.DefaultView)

	reset, err := s.ResetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), reset)
	got, err = s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)
}

func TestStore_SaveSettingsRejectsNegative(t *testing.T) {
	s := newTestStore(t)
	settings := model.DefaultSettings()
	settings.AList.SubscriptionCost = decimal.NewFromInt(-5)
	assert.Error(t, s.SaveSettings(settings))
}

func TestStore_CorruptSettingsFallBackToDefaults(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec("INSERT INTO settings (key, value_json, updated_at) VALUES (?, ?, ?)", settingsKey, "{not json", "now")
	require.NoError(t, err)

	got, err := s.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)
}

func datePtr(d model.Date) *model.Date { return &d }
