package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/matthewjhunter/plantdoc"
)

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *handlers) writeJSONError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// apiSuggest returns search suggestions for ?q=.
func (h *handlers) apiSuggest(w http.ResponseWriter, r *http.Request) {
	suggestions := h.engine.Suggest(r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []plantdoc.Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, suggestions)
}

func (h *handlers) apiGraph(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeJSONError(w, http.StatusBadRequest, "invalid disease ID")
		return
	}

	g, err := h.engine.Graph(id)
	if errors.Is(err, plantdoc.ErrNotFound) {
		h.writeJSONError(w, http.StatusNotFound, "disease not found")
		return
	}
	if err != nil {
		h.writeJSONError(w, http.StatusInternalServerError, "failed to build graph")
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

// apiGallery returns one gallery page for the crop, disease, type, search
// and page query parameters.
func (h *handlers) apiGallery(w http.ResponseWriter, r *http.Request) {
	page := h.engine.GalleryPage(galleryFilter(r.URL.Query()), parseIntParam(r, "page", 1))
	h.writeJSON(w, http.StatusOK, page)
}

func (h *handlers) apiStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Stats  plantdoc.Stats         `json:"stats"`
		Status plantdoc.DatasetStatus `json:"status"`
	}{h.engine.Stats(), h.engine.Status()})
}
