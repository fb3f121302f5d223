package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/go-chi/chi/v5"
)

type RitualHandler struct {
	svc      *service.RitualService
	sessions *service.SessionScheduler
}

func NewRitualHandler(svc *service.RitualService, sessions *service.SessionScheduler) *RitualHandler {
	return &RitualHandler{svc: svc, sessions: sessions}
}

type ritualResponse struct {
	*domain.Ritual
	State             domain.RitualState `json:"state"`
	CooldownRemaining float64            `json:"cooldown_remaining_sec"`
}

func (h *RitualHandler) List(w http.ResponseWriter, r *http.Request) {
	rituals := h.svc.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"rituals": rituals,
		"count":   len(rituals),
	})
}

func (h *RitualHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.Ritual
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ritual, err := h.svc.CreateRitual(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRitual):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRitualExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create ritual")
		}
		return
	}

	writeJSON(w, http.StatusCreated, ritual)
}

func (h *RitualHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": h.svc.History()})
}

func (h *RitualHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ritual, err := h.svc.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrRitualNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ritual")
		return
	}
	state, err := h.svc.State(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get ritual state")
		return
	}

	writeJSON(w, http.StatusOK, ritualResponse{
		Ritual:            ritual,
		State:             state,
		CooldownRemaining: h.svc.CooldownRemaining(id).Seconds(),
	})
}

func (h *RitualHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ritual, err := h.svc.TriggerByID(chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRitualNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrRitualInCooldown):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to trigger ritual")
		}
		return
	}

	writeJSON(w, http.StatusOK, ritual)
}

func (h *RitualHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.sessions.Active()})
}

// CancelSession stops a running breathing or meditation session. Unknown or
// already finished sessions are reported as not cancelled rather than as an
// error.
func (h *RitualHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"cancelled": h.sessions.Cancel(id),
	})
}
