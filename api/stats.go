package api

import (
	"errors"
	"net/http"

	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/savings"
	"github.com/robertmeta/alist-cli/syncer"
)

type scopeResponse struct {
	Scope     model.Scope           `json:"scope"`
	Breakdown model.PeriodBreakdown `json:"breakdown"`
	Stats     model.Stats           `json:"stats"`
}

// handleStats returns the aggregated stats. ?now=YYYY-MM-DD pins the clock;
// ?scope= adds the breakdown for that scope (default: the preferred view).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	now := s.today()
	if v := r.URL.Query().Get("now"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now = d
	}

	settings, err := s.store.GetSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scope := settings.Preferences.DefaultView
	if v := r.URL.Query().Get("scope"); v != "" {
		scope, err = model.ParseScope(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	movies, err := s.store.AllMovies()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats := savings.Aggregate(movies, settings.AList, now)
	writeJSON(w, http.StatusOK, scopeResponse{
		Scope:     scope,
		Breakdown: stats.Breakdown(scope),
		Stats:     stats,
	})
}

type syncRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	result, err := s.syncer.Sync(r.Context(), req.Username)
	if err != nil {
		var statusErr *feed.StatusError
		switch {
		case errors.Is(err, syncer.ErrSyncInProgress):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, feed.ErrNoUsername):
			writeError(w, http.StatusBadRequest, feed.UserMessage(err))
		case errors.As(err, &statusErr), errors.Is(err, feed.ErrUnreachable):
			writeError(w, http.StatusBadGateway, feed.UserMessage(err))
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}
