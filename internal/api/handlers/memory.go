package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/go-chi/chi/v5"
)

const defaultEpisodeLimit = 20

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

func (h *MemoryHandler) Episodes(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultEpisodeLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"episodes": h.svc.RecentEpisodic(limit),
		"size":     h.svc.EpisodicSize(),
		"capacity": h.svc.Capacity(),
	})
}

func (h *MemoryHandler) GetSemantic(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok := h.svc.GetSemantic(key)
	if !ok {
		writeError(w, http.StatusNotFound, "semantic key not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (h *MemoryHandler) PutSemantic(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.SetSemantic(key, value); err != nil {
		if errors.Is(err, service.ErrSemanticKeyEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store semantic value")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear()
	w.WriteHeader(http.StatusNoContent)
}
