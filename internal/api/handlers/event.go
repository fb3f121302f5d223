package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/service"
)

type EventHandler struct {
	engine *service.Engine
}

func NewEventHandler(engine *service.Engine) *EventHandler {
	return &EventHandler{engine: engine}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ev domain.MessageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.OnMessageEvent(ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage),
			errors.Is(err, service.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to process event")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
