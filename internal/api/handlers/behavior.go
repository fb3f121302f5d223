package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/go-chi/chi/v5"
)

type BehaviorHandler struct {
	svc *service.BehaviorService
}

func NewBehaviorHandler(svc *service.BehaviorService) *BehaviorHandler {
	return &BehaviorHandler{svc: svc}
}

type behaviorFeedbackRequest struct {
	Feedback string `json:"feedback"`
	Note     string `json:"note,omitempty"`
}

func (h *BehaviorHandler) Reflect(w http.ResponseWriter, r *http.Request) {
	reflection := h.svc.Reflect(service.TriggeredByManual)
	if reflection == nil {
		writeError(w, http.StatusUnprocessableEntity, "no conversation to reflect on")
		return
	}

	writeJSON(w, http.StatusOK, reflection)
}

func (h *BehaviorHandler) SelfReflection(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	writeJSON(w, http.StatusOK, map[string]string{
		"topic":      topic,
		"reflection": h.svc.SelfReflection(topic),
	})
}

func (h *BehaviorHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      h.svc.State(),
		"adjustment": h.svc.Adjustment(),
		"mood_trend": h.svc.MoodTrend(),
	})
}

func (h *BehaviorHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req behaviorFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Feedback == "" {
		writeError(w, http.StatusBadRequest, "feedback is required")
		return
	}

	h.svc.AddUserFeedback(req.Feedback, req.Note)
	w.WriteHeader(http.StatusNoContent)
}
