package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/effects"
)

const defaultEffectsLimit = 50

type effectFeed interface {
	Recent(limit int) []effects.Record
}

type EffectsHandler struct {
	feed effectFeed
}

func NewEffectsHandler(feed effectFeed) *EffectsHandler {
	return &EffectsHandler{feed: feed}
}

func (h *EffectsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultEffectsLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"effects": h.feed.Recent(limit)})
}
