package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robertmeta/alist-cli/export"
	"github.com/robertmeta/alist-cli/model"
)

type ExportHandler struct {
	store Store
}

func NewExportHandler(st Store) *ExportHandler {
	return &ExportHandler{store: st}
}

func (h *ExportHandler) Routes(r chi.Router) {
	r.Get("/export", h.json)
	r.Get("/export.csv", h.table)
}

func (h *ExportHandler) load() (model.Settings, []model.WatchRecord, error) {
	settings, err := h.store.GetSettings()
	if err != nil {
		return model.Settings{}, nil, err
	}
	movies, err := h.store.AllMovies()
	if err != nil {
		return model.Settings{}, nil, err
	}
	return settings, movies, nil
}

func (h *ExportHandler) json(w http.ResponseWriter, r *http.Request) {
	settings, movies, err := h.load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="alist-export.json"`)
	if err := export.WriteJSON(w, settings, movies); err != nil {
		hlogError(r, err)
	}
}

func (h *ExportHandler) table(w http.ResponseWriter, r *http.Request) {
	_, movies, err := h.load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="alist-movies.csv"`)
	if err := export.WriteTable(w, movies); err != nil {
		hlogError(r, err)
	}
}
