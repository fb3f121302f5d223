package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/go-chi/chi/v5"
)

type NarrativeHandler struct {
	svc     *service.NarrativeService
	guard   *service.RetrievalGuard
	distill *service.DistillService
}

func NewNarrativeHandler(svc *service.NarrativeService, guard *service.RetrievalGuard, distill *service.DistillService) *NarrativeHandler {
	return &NarrativeHandler{svc: svc, guard: guard, distill: distill}
}

type recallRequest struct {
	Message string `json:"message"`
	Emotion string `json:"emotion"`
}

type recallResponse struct {
	Memory *domain.NarrativeMemory `json:"memory"`
	Prompt string                  `json:"prompt,omitempty"`
}

type narrativeFeedbackRequest struct {
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment,omitempty"`
}

type resolveRequest struct {
	MemoryID string `json:"memory_id"`
	Message  string `json:"message"`
}

type resolveResponse struct {
	domain.RetrievalOutcome
	Focus     service.FocusMode `json:"focus"`
	SelfDoubt string            `json:"self_doubt,omitempty"`
}

func (h *NarrativeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.NarrativeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mem, err := h.svc.CreateMemory(req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidNarrative) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create narrative memory")
		return
	}

	writeJSON(w, http.StatusCreated, mem)
}

func (h *NarrativeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memories := h.svc.List(domain.EventType(q.Get("type")), q.Get("emotion"))
	writeJSON(w, http.StatusOK, map[string]any{
		"memories": memories,
		"count":    len(memories),
	})
}

func (h *NarrativeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	mem, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrNarrativeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get narrative memory")
		return
	}

	writeJSON(w, http.StatusOK, mem)
}

func (h *NarrativeHandler) Related(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	message := q.Get("message")
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	limit, ok := queryInt(r, "limit", service.DefaultRelatedLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"related": h.svc.FindRelated(message, q.Get("emotion"), limit),
	})
}

func (h *NarrativeHandler) Recall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp := recallResponse{Memory: h.svc.Recall(req.Message, req.Emotion)}
	if resp.Memory != nil {
		resp.Prompt = h.svc.RecallPrompt(resp.Memory)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *NarrativeHandler) Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Themes())
}

func (h *NarrativeHandler) Distill(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.distill.RunDistill(r.Context()))
}

func (h *NarrativeHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req narrativeFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.AddFeedback(id, req.Helpful, req.Comment); err != nil {
		if errors.Is(err, service.ErrNarrativeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NarrativeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MemoryID == "" {
		writeError(w, http.StatusBadRequest, "memory_id is required")
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		RetrievalOutcome: h.guard.Resolve(req.MemoryID, req.Message),
		Focus:            h.guard.FocusMode(),
		SelfDoubt:        h.guard.SelfDoubt(),
	})
}
