package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/store"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

var testEpoch = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// zeroSource makes every random draw return its minimum.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func zeroRand() *lockedRand {
	return newLockedRand(rand.New(zeroSource{}))
}

func seededRand(seed int64) *lockedRand {
	return newLockedRand(rand.New(rand.NewSource(seed)))
}

type effectCall struct {
	Kind string
	Args []any
}

// recordingEffects captures every effect in order. It also drives ambient
// effects.
type recordingEffects struct {
	mu        sync.Mutex
	calls     []effectCall
	cancelled int
}

func (r *recordingEffects) record(kind string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, effectCall{Kind: kind, Args: args})
}

func (r *recordingEffects) Calls() []effectCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]effectCall(nil), r.calls...)
}

func (r *recordingEffects) Kinds() []string {
	var kinds []string
	for _, c := range r.Calls() {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func (r *recordingEffects) Count(kind string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingEffects) Cancelled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *recordingEffects) Affirmation(text string) { r.record("affirmation", text) }
func (r *recordingEffects) BreathingGuide(instructions string, d time.Duration) {
	r.record("breathing", instructions, d)
}
func (r *recordingEffects) VoiceToneChange(tone string, pitch, rate float64) {
	r.record("voiceTone", tone, pitch, rate)
}
func (r *recordingEffects) UIThemeChange(colors []string, intensity float64) {
	r.record("uiTheme", colors, intensity)
}
func (r *recordingEffects) MeditationStart(instructions string, d time.Duration) domain.CancelFunc {
	r.record("meditation", instructions, d)
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.cancelled++
			r.mu.Unlock()
		})
	}
}
func (r *recordingEffects) ActivitySuggested(text string) { r.record("activity", text) }
func (r *recordingEffects) MusicPlay(track string, volume float64) {
	r.record("music", track, volume)
}
func (r *recordingEffects) LightingChange(colors []string, brightness float64) {
	r.record("lighting", colors, brightness)
}
func (r *recordingEffects) FeatureToggle(feature string, enabled bool) {
	r.record("feature", feature, enabled)
}

// basicEffects hides the ambient methods of the wrapped collaborator.
type basicEffects struct {
	domain.Effects
}

// syncSaver writes straight through to a state store.
type syncSaver struct {
	st domain.StateStore
}

func (s syncSaver) Save(namespace string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	if err := s.st.Save(context.Background(), namespace, data); err != nil {
		panic(err)
	}
}

// countingSaver counts saves per namespace.
type countingSaver struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingSaver() *countingSaver {
	return &countingSaver{counts: make(map[string]int)}
}

func (s *countingSaver) Save(namespace string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[namespace]++
}

func (s *countingSaver) Count(namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[namespace]
}

func newTestEngine(clock *fakeClock, effects domain.Effects, st domain.StateStore, defaults bool) *Engine {
	cfg := EngineConfig{
		LoadDefaultRituals: defaults,
		Store:              st,
		Effects:            effects,
		Clock:              clock.Now,
		Rand:               rand.New(rand.NewSource(7)),
	}
	if st != nil {
		cfg.Saver = syncSaver{st: st}
	}
	e := NewEngine(cfg, testLogger())
	if err := e.Load(context.Background()); err != nil {
		panic(err)
	}
	return e
}

func newMemoryStateStore() *store.MemoryStateStore {
	return store.NewMemoryStateStore()
}

// fixedSource makes Float64 return approximately v.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (fixedSource) Seed(int64)     {}

func fixedFloatRand(v float64) *rand.Rand {
	return rand.New(fixedSource{v: int64(v * (1 << 63))})
}
