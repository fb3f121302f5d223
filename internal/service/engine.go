package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrInvalidRole  = errors.New("role must be user or assistant")
)

// EngineConfig wires an Engine. Zero values select defaults; Effects, Store
// and Saver may be nil.
type EngineConfig struct {
	EpisodicCap        int
	RitualCooldown     time.Duration
	LoadDefaultRituals bool
	Catalog            []domain.Ritual

	Store   domain.StateStore
	Saver   domain.Saver
	Effects domain.Effects
	Clock   Clock
	Rand    *rand.Rand
}

// EventResult reports what a message event caused.
type EventResult struct {
	Ritual     *domain.Ritual        `json:"ritual,omitempty"`
	Adjustment domain.ToneAdjustment `json:"adjustment"`
}

// Engine is the emotional trigger-and-memory engine. Each instance owns its
// state; nothing is shared between engines.
type Engine struct {
	eventMu sync.Mutex

	cfg        EngineConfig
	memory     *MemoryService
	cooldowns  *CooldownRegistry
	sessions   *SessionScheduler
	rituals    *RitualService
	narratives *NarrativeService
	behavior   *BehaviorService
	retrieval  *RetrievalGuard

	now    Clock
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig, logger *zap.Logger) *Engine {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	effects := cfg.Effects
	if effects == nil {
		effects = nopEffects{}
	}
	rng := newLockedRand(cfg.Rand)

	e := &Engine{cfg: cfg, now: now, logger: logger}
	e.memory = NewMemoryService(cfg.EpisodicCap, cfg.Saver, now, logger)
	e.cooldowns = NewCooldownRegistry(cfg.RitualCooldown, now)
	e.sessions = NewSessionScheduler(now, logger)
	e.rituals = NewRitualService(e.cooldowns, e.sessions, effects, cfg.Saver, rng, now, logger)
	e.narratives = NewNarrativeService(cfg.Saver, rng, now, logger)
	e.behavior = NewBehaviorService(e.memory, cfg.Saver, rng, now, logger)
	e.retrieval = NewRetrievalGuard(e.narratives, e.memory, e.behavior, cfg.Saver, rng, now, logger)
	return e
}

// Load restores every component from the state store in parallel, then
// installs the built-in and configured rituals. Missing or corrupt state is
// never an error.
func (e *Engine) Load(ctx context.Context) error {
	st := e.cfg.Store
	var catalogFound bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { e.memory.Load(gctx, st); return nil })
	g.Go(func() error { catalogFound = e.rituals.Load(gctx, st); return nil })
	g.Go(func() error { e.narratives.Load(gctx, st); return nil })
	g.Go(func() error { e.behavior.Load(gctx, st); return nil })
	g.Go(func() error { e.retrieval.Load(gctx, st); return nil })
	if err := g.Wait(); err != nil {
		return err
	}

	if !catalogFound && e.cfg.LoadDefaultRituals {
		n := e.rituals.InstallDefaults()
		e.logger.Info("installed default rituals", zap.Int("count", n))
	}
	if len(e.cfg.Catalog) > 0 {
		n := e.rituals.Install(e.cfg.Catalog)
		e.logger.Info("installed catalog rituals", zap.Int("count", n))
	}

	e.logger.Info("engine state loaded",
		zap.Int("episodic", e.memory.EpisodicSize()),
		zap.Int("rituals", len(e.rituals.List())),
		zap.Int("narratives", e.narratives.Count()))
	return ctx.Err()
}

// OnMessageEvent records the event, updates the behaviour profile and, for
// user messages, runs the first matching ritual. Events are processed one
// at a time.
func (e *Engine) OnMessageEvent(ev domain.MessageEvent) (*EventResult, error) {
	if strings.TrimSpace(ev.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if ev.Role == "" {
		ev.Role = domain.RoleUser
	}
	if !domain.ValidRole(string(ev.Role)) {
		return nil, ErrInvalidRole
	}
	ev.Emotion = domain.NormalizeEmotion(ev.Emotion)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}

	e.eventMu.Lock()
	defer e.eventMu.Unlock()

	e.memory.AddEpisodic(domain.EpisodicEntry{
		Message:   ev.Message,
		Emotion:   ev.Emotion,
		Intensity: ev.Intensity,
		Timestamp: ev.Timestamp,
		Role:      ev.Role,
	})
	e.behavior.Observe(ev)

	result := &EventResult{}
	if ev.Role == domain.RoleUser {
		result.Ritual = e.rituals.HandleEventAt(ev.Timestamp, ev.Message, ev.Emotion, ev.Intensity)
	}
	result.Adjustment = e.behavior.Adjustment()
	return result, nil
}

// Close cancels running sessions.
func (e *Engine) Close() {
	e.sessions.Stop()
}

func (e *Engine) Memory() *MemoryService        { return e.memory }
func (e *Engine) Rituals() *RitualService       { return e.rituals }
func (e *Engine) Narratives() *NarrativeService { return e.narratives }
func (e *Engine) Behavior() *BehaviorService    { return e.behavior }
func (e *Engine) Retrieval() *RetrievalGuard    { return e.retrieval }
func (e *Engine) Sessions() *SessionScheduler   { return e.sessions }
func (e *Engine) Cooldowns() *CooldownRegistry  { return e.cooldowns }

type nopEffects struct{}

func (nopEffects) Affirmation(string)                                      {}
func (nopEffects) BreathingGuide(string, time.Duration)                    {}
func (nopEffects) VoiceToneChange(string, float64, float64)                {}
func (nopEffects) UIThemeChange([]string, float64)                         {}
func (nopEffects) MeditationStart(string, time.Duration) domain.CancelFunc { return func() {} }
func (nopEffects) ActivitySuggested(string)                                {}
