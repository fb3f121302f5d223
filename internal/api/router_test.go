package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mashaaer/internal/effects"
	"github.com/Harshitk-cp/mashaaer/internal/service"
	"github.com/Harshitk-cp/mashaaer/internal/store"
)

type testServer struct {
	t      *testing.T
	app    *App
	engine *service.Engine
	sink   *effects.LogSink
}

func newTestServer(t *testing.T, st any) *testServer {
	t.Helper()
	logger := zap.NewNop()
	sink := effects.NewLogSink(20, logger)
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	engine := service.NewEngine(service.EngineConfig{
		LoadDefaultRituals: true,
		Effects:            sink,
		Clock:              func() time.Time { return at },
		Rand:               rand.New(rand.NewSource(1)),
	}, logger)
	require.NoError(t, engine.Load(context.Background()))
	t.Cleanup(engine.Close)

	app := NewApp(Deps{Engine: engine, Effects: sink, Store: st}, logger)
	return &testServer{t: t, app: app, engine: engine, sink: sink}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type failingPinger struct{ store.MemoryStateStore }

func (*failingPinger) Ping(context.Context) error { return errors.New("db down") }

func TestHealth(t *testing.T) {
	ok := newTestServer(t, store.NewMemoryStateStore())
	assert.Equal(t, http.StatusOK, ok.do(http.MethodGet, "/health", nil).Code)

	down := newTestServer(t, &failingPinger{})
	rec := down.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestEvents_TriggerRitualThenCooldown(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/events", map[string]any{
		"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[map[string]any](t, rec)
	ritual, ok := first["ritual"].(map[string]any)
	require.True(t, ok, "expected a ritual in %v", first)
	assert.Equal(t, "feeling_off", ritual["id"])

	rec = s.do(http.MethodPost, "/v1/events", map[string]any{"message": "أشعر بتعب اليوم"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[map[string]any](t, rec)
	assert.Nil(t, second["ritual"])

	rec = s.do(http.MethodPost, "/v1/rituals/feeling_off/trigger", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/v1/rituals/feeling_off", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, "cooldown", detail["state"])
	assert.Equal(t, 3600.0, detail["cooldown_remaining_sec"])

	rec = s.do(http.MethodGet, "/v1/effects?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "affirmation")

	rec = s.do(http.MethodGet, "/v1/episodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode[map[string]any](t, rec)["size"])
}

func TestEvents_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty message", map[string]any{"message": "  "}, http.StatusBadRequest},
		{"bad role", map[string]any{"message": "hi", "role": "system"}, http.StatusBadRequest},
		{"assistant", map[string]any{"message": "hi", "role": "assistant"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(http.MethodPost, "/v1/events", tt.body).Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRituals_CreateAndList(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/v1/rituals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6.0, decode[map[string]any](t, rec)["count"])

	custom := map[string]any{
		"id":   "evening_walk",
		"name": "Evening walk",
		"triggers": []map[string]any{
			{"kind": "phrase", "value": "need a walk"},
		},
		"actions": []map[string]any{
			{"kind": "suggestActivity", "content": []string{"walk for ten minutes"}},
		},
	}
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/rituals", custom).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/v1/rituals", custom).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/rituals", map[string]any{"name": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/rituals/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/v1/rituals/nope/trigger", nil).Code)

	rec = s.do(http.MethodPost, "/v1/rituals/evening_walk/trigger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["usage_count"])

	rec = s.do(http.MethodGet, "/v1/rituals/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evening_walk")
}

func TestSessions_CancelUnknownIsNotAnError(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodDelete, "/v1/sessions/missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["cancelled"])
}

func TestSemanticMemory(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/semantic/name", nil).Code)

	rec := s.do(http.MethodPut, "/v1/semantic/name", "ليلى")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/v1/semantic/name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ليلى", decode[map[string]any](t, rec)["value"])

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/v1/memory", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/semantic/name", nil).Code)
}

func TestNarratives(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/v1/narratives", map[string]any{"message": "no type"}).Code)

	rec := s.do(http.MethodPost, "/v1/narratives", map[string]any{
		"type": "challenge", "message": "العمل صعب هذا الأسبوع", "emotion": "stressed", "intensity": 0.8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode[map[string]any](t, rec)["id"].(string)
	require.NotEmpty(t, id)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/narratives/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/narratives/mem_missing", nil).Code)

	rec = s.do(http.MethodGet, "/v1/narratives?type=challenge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["count"])

	q := url.Values{"message": {"العمل"}, "emotion": {"stressed"}}
	rec = s.do(http.MethodGet, "/v1/narratives/related?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/narratives/related", nil).Code)

	rec = s.do(http.MethodPost, "/v1/narratives/recall", map[string]any{"message": "العمل", "emotion": "stressed"})
	require.Equal(t, http.StatusOK, rec.Code)
	recall := decode[map[string]any](t, rec)
	assert.NotNil(t, recall["memory"])
	assert.NotEmpty(t, recall["prompt"])

	assert.Equal(t, http.StatusNoContent,
		s.do(http.MethodPost, "/v1/narratives/"+id+"/feedback", map[string]any{"helpful": true}).Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(http.MethodPost, "/v1/narratives/mem_missing/feedback", map[string]any{"helpful": true}).Code)

	rec = s.do(http.MethodGet, "/v1/narratives/themes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stressed")
}

func TestNarratives_ResolveMissingCountsFailures(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/narratives/resolve", map[string]any{"memory_id": "mem_gone", "message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]any](t, rec)
	assert.Equal(t, 1.0, out["failures"])
	assert.Nil(t, out["memory"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/narratives/resolve", map[string]any{}).Code)
}

func TestNarratives_Distill(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodPost, "/v1/events", map[string]any{"message": "أخيرا تغلبت على المشكلة", "emotion": "happy", "intensity": 0.9})

	rec := s.do(http.MethodPost, "/v1/narratives/distill", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["created"])
}

func TestBehavior(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/v1/reflect", nil).Code)

	s.do(http.MethodPost, "/v1/events", map[string]any{"message": "hello there", "emotion": "happy", "intensity": 0.3})
	rec := s.do(http.MethodPost, "/v1/reflect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manual", decode[map[string]any](t, rec)["triggered_by"])

	rec = s.do(http.MethodGet, "/v1/reflect/feelings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]any](t, rec)["reflection"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/behavior/feedback", map[string]any{}).Code)
	assert.Equal(t, http.StatusNoContent,
		s.do(http.MethodPost, "/v1/behavior/feedback", map[string]any{"feedback": "too long"}).Code)

	rec = s.do(http.MethodGet, "/v1/behavior", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "too long")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodGet, "/v1/rituals/nope", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	httpStats, ok := body["http"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, httpStats["client_error_count"])
}
