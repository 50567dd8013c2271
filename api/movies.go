package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robertmeta/alist-cli/model"
	"github.com/robertmeta/alist-cli/store"
)

type MoviesHandler struct {
	store Store
	today func() model.Date
}

func NewMoviesHandler(st Store, today func() model.Date) *MoviesHandler {
	return &MoviesHandler{store: st, today: today}
}

func (h *MoviesHandler) Routes(r chi.Router) {
	r.Get("/movies", h.list)
	r.Post("/movies", h.create)
	r.Post("/movies/membership", h.setMembership)
	r.Get("/movies/{id}", h.get)
	r.Patch("/movies/{id}", h.patch)
	r.Delete("/movies/{id}", h.delete)
}

func (h *MoviesHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	flagged, _ := strconv.ParseBool(q.Get("flagged"))

	opts, err := store.BuildQueryOptions(limit, offset, flagged, q.Get("since"), h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	movies, err := h.store.GetMovies(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(movies),
		"movies": movies,
	})
}

func (h *MoviesHandler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMovie(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type createMovieRequest struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	WatchDate              model.Date `json:"watchDate"`
	Rating                 *float64   `json:"rating"`
	CountsTowardMembership bool       `json:"countsTowardMembership"`
	Notes                  string     `json:"notes"`
}

func (h *MoviesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createMovieRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.ID != "" {
		if _, err := h.store.GetMovie(req.ID); err == nil {
			writeError(w, http.StatusConflict, "movie "+req.ID+" already exists")
			return
		}
	}

	m := model.NewManualRecord(req.ID, req.Title, req.WatchDate)
	m.Rating = req.Rating
	m.CountsTowardMembership = req.CountsTowardMembership
	m.Notes = req.Notes
	if err := m.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveMovie(&m); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// patchMovieRequest carries the user-owned fields; absent fields are left
// unchanged.
type patchMovieRequest struct {
	CountsTowardMembership *bool   `json:"countsTowardMembership"`
	Notes                  *string `json:"notes"`
}

func (h *MoviesHandler) patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchMovieRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if _, err := h.store.GetMovie(id); err != nil {
		writeStoreError(w, err)
		return
	}
	if req.CountsTowardMembership != nil {
		if _, err := h.store.SetMembership([]string{id}, *req.CountsTowardMembership); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Notes != nil {
		if err := h.store.SetNotes(id, *req.Notes); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	m, err := h.store.GetMovie(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type membershipRequest struct {
	IDs                    []string `json:"ids"`
	CountsTowardMembership bool     `json:"countsTowardMembership"`
}

func (h *MoviesHandler) setMembership(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	n, err := h.store.SetMembership(req.IDs, req.CountsTowardMembership)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *MoviesHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMovie(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
