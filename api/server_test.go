package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertmeta/alist-cli/export"
	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/store"
	"github.com/robertmeta/alist-cli/syncer"
)

type fakeSyncer struct {
	result syncer.Result
	err    error
	got    string
}

func (f *fakeSyncer) Sync(ctx context.Context, username string) (syncer.Result, error) {
	f.got = username
	return f.result, f.err
}

func newTestServer(t *testing.T, sy Syncer) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := NewServer(zerolog.Nop(), st, sy)
	srv.today = func() model.Date { return model.NewDate(2025, 3, 20) }
	return srv, st
}

func seed(t *testing.T, st *store.Store) {
	t.Helper()
	for _, m := range []model.WatchRecord{
		{ID: "dune-2025-03-10", Title: "Dune", WatchDate: model.NewDate(2025, 3, 10), CountsTowardMembership: true},
		{ID: "heat-2025-03-02", Title: "Heat", WatchDate: model.NewDate(2025, 3, 2), CountsTowardMembership: true},
		{ID: "alien-2024-11-20", Title: "Alien", WatchDate: model.NewDate(2024, 11, 20)},
	} {
		m := m
		require.NoError(t, st.SaveMovie(&m))
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListMovies(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)
	h := srv.Router()

	var body struct {
		Count  int                 `json:"count"`
		Movies []model.WatchRecord `json:"movies"`
	}
	rec := do(t, h, http.MethodGet, "/api/v1/movies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "dune-2025-03-10", body.Movies[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/movies?flagged=true&since=2025-03-05", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Dune", body.Movies[0].Title)

	rec = do(t, h, http.MethodGet, "/api/v1/movies?since=soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMovie(t *testing.T) {
	srv, st := newTestServer(t, nil)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/movies",
		`{"title":"Arrival","watchDate":"2025-03-15","rating":4.5,"countsTowardMembership":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got model.WatchRecord
	decode(t, rec, &got)
	assert.True(t, strings.HasPrefix(got.ID, "manual-"))
	assert.True(t, got.AddedManually)
	assert.True(t, got.CountsTowardMembership)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)

	stored, err := st.GetMovie(got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Arrival", stored.Title)

	rec = do(t, h, http.MethodPost, "/api/v1/movies", `{"id":"`+got.ID+`","title":"Again","watchDate":"2025-03-16"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/movies", `{"title":"","watchDate":"2025-03-16"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/movies", `{"title":"Arrival","watchDate":"2025-03-16","rating":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/movies", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchMovie(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)
	h := srv.Router()

	rec := do(t, h, http.MethodPatch, "/api/v1/movies/alien-2024-11-20", `{"countsTowardMembership":true,"notes":"70mm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.WatchRecord
	decode(t, rec, &got)
	assert.True(t, got.CountsTowardMembership)
	assert.Equal(t, "70mm", got.Notes)

	// Notes alone leave the flag untouched.
	rec = do(t, h, http.MethodPatch, "/api/v1/movies/alien-2024-11-20", `{"notes":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = model.WatchRecord{}
	decode(t, rec, &got)
	assert.True(t, got.CountsTowardMembership)
	assert.Empty(t, got.Notes)

	rec = do(t, h, http.MethodPatch, "/api/v1/movies/missing", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetMembershipBulk(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)

	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/movies/membership",
		`{"ids":["dune-2025-03-10","heat-2025-03-02","missing"],"countsTowardMembership":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())

	all, err := st.AllMovies()
	require.NoError(t, err)
	assert.Zero(t, model.CountFlagged(all))
}

func TestDeleteMovie(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)
	h := srv.Router()

	rec := do(t, h, http.MethodDelete, "/api/v1/movies/heat-2025-03-02", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := st.GetMovie("heat-2025-03-02")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = do(t, h, http.MethodDelete, "/api/v1/movies/heat-2025-03-02", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	var got model.Settings
	rec := do(t, h, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, "23.95", got.AList.SubscriptionCost.StringFixed(2))

	rec = do(t, h, http.MethodPut, "/api/v1/settings", `{"aList":{"subscriptionCost":"19.95","avgTicketPrice":"14.50","startDate":"2025-01-01","isActive":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, "19.95", got.AList.SubscriptionCost.StringFixed(2))
	require.NotNil(t, got.AList.StartDate)
	assert.Equal(t, "2025-01-01", got.AList.StartDate.String())
	assert.Equal(t, model.ScopeLifetime, got.Preferences.DefaultView, "untouched sections keep their values")

	rec = do(t, h, http.MethodPut, "/api/v1/settings", `{"aList":{"subscriptionCost":"-1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/settings/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Nil(t, got.AList.StartDate)
	assert.Equal(t, "23.95", got.AList.SubscriptionCost.StringFixed(2))
}

func TestStats(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)
	settings := model.DefaultSettings()
	start := model.NewDate(2025, 1, 1)
	settings.AList.StartDate = &start
	require.NoError(t, st.SaveSettings(settings))
	h := srv.Router()

	var body struct {
		Scope     model.Scope           `json:"scope"`
		Breakdown model.PeriodBreakdown `json:"breakdown"`
		Stats     model.Stats           `json:"stats"`
	}
	rec := do(t, h, http.MethodGet, "/api/v1/stats?scope=month", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, model.ScopeMonth, body.Scope)
	assert.Equal(t, 2, body.Breakdown.TripCount)
	assert.Equal(t, 2, body.Stats.TotalFlaggedMovies)
	assert.Equal(t, 3, body.Stats.Lifetime.ActiveMonths)

	rec = do(t, h, http.MethodGet, "/api/v1/stats?now=2025-04-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, model.ScopeLifetime, body.Scope)
	assert.Equal(t, 0, body.Stats.Monthly.TripCount)

	rec = do(t, h, http.MethodGet, "/api/v1/stats?scope=decade", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/v1/stats?now=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	srv, st := newTestServer(t, nil)
	seed(t, st)
	h := srv.Router()

	rec := do(t, h, http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := export.ReadJSON(rec.Body)
	require.NoError(t, err)
	assert.Len(t, doc.Movies, 3)

	rec = do(t, h, http.MethodGet, "/api/v1/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, strings.Join(export.TableHeader, ","), lines[0])
	assert.Len(t, lines, 4)
}

func TestSync(t *testing.T) {
	sy := &fakeSyncer{result: syncer.Result{Username: "cinephile", Fetched: 3, Added: 3, Total: 3}}
	srv, _ := newTestServer(t, sy)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/sync", `{"username":"cinephile"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cinephile", sy.got)

	rec = do(t, h, http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sy.got, "empty body falls back to the stored username")

	cases := []struct {
		err    error
		status int
	}{
		{syncer.ErrSyncInProgress, http.StatusConflict},
		{feed.ErrNoUsername, http.StatusBadRequest},
		{&feed.StatusError{StatusCode: 404}, http.StatusBadGateway},
		{feed.ErrUnreachable, http.StatusBadGateway},
	}
	for _, tc := range cases {
		sy.err = tc.err
		rec = do(t, h, http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestSyncNotRoutedWithoutSyncer(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
