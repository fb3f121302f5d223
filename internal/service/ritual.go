package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxRitualHistory = 50

var (
	ErrRitualNotFound   = errors.New("ritual not found")
	ErrRitualExists     = errors.New("ritual already exists")
	ErrRitualInCooldown = errors.New("ritual is in cooldown")
	ErrInvalidRitual    = errors.New("invalid ritual")
)

// ValidateRitual checks the fields a caller must supply.
func ValidateRitual(r *domain.Ritual) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRitual)
	}
	if len(r.Triggers) == 0 {
		return fmt.Errorf("%w: at least one trigger is required", ErrInvalidRitual)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidRitual)
	}
	for _, t := range r.Triggers {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRitual, err)
		}
	}
	return nil
}

// RitualService owns the ritual catalog, the execution history and dispatch
// of ritual actions to the effects collaborator.
type RitualService struct {
	mu        sync.Mutex
	rituals   []*domain.Ritual
	index     map[string]*domain.Ritual
	history   []domain.RitualExecution
	executing map[string]int

	cooldowns *CooldownRegistry
	matcher   *TriggerMatcher
	sessions  *SessionScheduler
	effects   domain.Effects
	saver     domain.Saver
	rng       *lockedRand
	now       Clock
	logger    *zap.Logger
}

func NewRitualService(
	cooldowns *CooldownRegistry,
	sessions *SessionScheduler,
	effects domain.Effects,
	saver domain.Saver,
	rng *lockedRand,
	now Clock,
	logger *zap.Logger,
) *RitualService {
	return &RitualService{
		index:     make(map[string]*domain.Ritual),
		executing: make(map[string]int),
		cooldowns: cooldowns,
		matcher:   NewTriggerMatcher(cooldowns, now),
		sessions:  sessions,
		effects:   effects,
		saver:     saverOrNop(saver),
		rng:       rng,
		now:       now,
		logger:    logger,
	}
}

// Load restores the catalog and history. It reports whether a catalog was found.
func (s *RitualService) Load(ctx context.Context, st domain.StateStore) bool {
	var rituals []*domain.Ritual
	var history []domain.RitualExecution
	found := loadState(ctx, st, domain.NamespaceRituals, &rituals, s.logger)
	loadState(ctx, st, domain.NamespaceRitualHistory, &history, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rituals = s.rituals[:0]
	s.index = make(map[string]*domain.Ritual, len(rituals))
	for _, r := range rituals {
		if r == nil || r.ID == "" || s.index[r.ID] != nil {
			continue
		}
		if err := ValidateRitual(r); err != nil {
			s.logger.Warn("skipping stored ritual", zap.String("ritual_id", r.ID), zap.Error(err))
			continue
		}
		s.rituals = append(s.rituals, r)
		s.index[r.ID] = r
	}
	if len(history) > MaxRitualHistory {
		history = history[len(history)-MaxRitualHistory:]
	}
	s.history = history
	return found && len(s.rituals) > 0
}

// InstallDefaults adds any built-in ritual whose ID is not yet registered.
func (s *RitualService) InstallDefaults() int {
	return s.Install(DefaultRituals())
}

// Install registers rituals from a catalog, skipping IDs that already exist.
func (s *RitualService) Install(rituals []domain.Ritual) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i := range rituals {
		r := rituals[i]
		if r.ID == "" {
			r.ID = newRitualID()
		}
		if _, ok := s.index[r.ID]; ok {
			continue
		}
		if r.Created.IsZero() {
			r.Created = s.now()
		}
		s.appendLocked(&r)
		added++
	}
	if added > 0 {
		s.persistCatalogLocked()
	}
	return added
}

// CreateRitual validates and registers a custom ritual. Counters supplied by
// the caller are reset.
func (s *RitualService) CreateRitual(input domain.Ritual) (*domain.Ritual, error) {
	if err := ValidateRitual(&input); err != nil {
		s.logger.Warn("rejected ritual", zap.String("name", input.Name), zap.Error(err))
		return nil, err
	}
	r := input.Clone()
	if r.ID == "" {
		r.ID = newRitualID()
	}
	r.UsageCount = 0
	r.LastUsed = nil
	r.IsDefault = false
	r.Created = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[r.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRitualExists, r.ID)
	}
	s.appendLocked(r)
	s.persistCatalogLocked()

	s.logger.Info("ritual created", zap.String("ritual_id", r.ID), zap.String("name", r.Name))
	return r.Clone(), nil
}

func (s *RitualService) Get(id string) (*domain.Ritual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.index[id]
	if !ok {
		return nil, ErrRitualNotFound
	}
	return r.Clone(), nil
}

// List returns all rituals in declaration order.
func (s *RitualService) List() []*domain.Ritual {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Ritual, len(s.rituals))
	for i, r := range s.rituals {
		out[i] = r.Clone()
	}
	return out
}

// History returns the capped execution history, oldest first.
func (s *RitualService) History() []domain.RitualExecution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RitualExecution{}, s.history...)
}

func (s *RitualService) State(id string) (domain.RitualState, error) {
	s.mu.Lock()
	_, ok := s.index[id]
	executing := s.executing[id] > 0
	s.mu.Unlock()
	if !ok {
		return "", ErrRitualNotFound
	}
	switch {
	case executing:
		return domain.RitualExecuting, nil
	case s.cooldowns.IsInCooldown(id):
		return domain.RitualCooldown, nil
	}
	return domain.RitualIdle, nil
}

// Match returns the ritual the event would trigger without running it.
func (s *RitualService) Match(message, emotion string, intensity float64) *domain.Ritual {
	r := s.matcher.Match(s.snapshot(), message, emotion, intensity)
	if r == nil {
		return nil
	}
	return r.Clone()
}

// HandleEvent runs the first matching ritual, if any, and returns it.
func (s *RitualService) HandleEvent(message, emotion string, intensity float64) *domain.Ritual {
	return s.HandleEventAt(time.Time{}, message, emotion, intensity)
}

// HandleEventAt is HandleEvent for an event that happened at at. Cooldowns,
// LastUsed and history are stamped with at; a zero at means now.
func (s *RitualService) HandleEventAt(at time.Time, message, emotion string, intensity float64) *domain.Ritual {
	if at.IsZero() {
		at = s.now()
	}
	r := s.matcher.Acquire(s.snapshot(), at, message, emotion, intensity)
	if r == nil {
		return nil
	}
	return s.execute(r.ID, at)
}

// TriggerByID runs a ritual on demand. Cooldown still applies.
func (s *RitualService) TriggerByID(id string) (*domain.Ritual, error) {
	s.mu.Lock()
	_, ok := s.index[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrRitualNotFound
	}
	if !s.cooldowns.TryAcquire(id, 0) {
		return nil, ErrRitualInCooldown
	}
	return s.execute(id, s.now()), nil
}

// snapshot returns the live catalog pointers. Callers only read trigger
// fields, which never change after registration.
func (s *RitualService) snapshot() []*domain.Ritual {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Ritual(nil), s.rituals...)
}

// execute records the run at now and dispatches every action. The cooldown
// must already be held by the caller.
func (s *RitualService) execute(id string, now time.Time) *domain.Ritual {

	s.mu.Lock()
	r, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	r.UsageCount++
	r.LastUsed = &now
	s.history = append(s.history, domain.RitualExecution{RitualID: r.ID, Name: r.Name, Timestamp: now})
	if over := len(s.history) - MaxRitualHistory; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
	s.executing[id]++
	s.persistCatalogLocked()
	s.saver.Save(domain.NamespaceRitualHistory, s.history)
	snap := r.Clone()
	s.mu.Unlock()

	s.logger.Info("ritual triggered",
		zap.String("ritual_id", snap.ID),
		zap.String("name", snap.Name),
		zap.Int("usage_count", snap.UsageCount))

	s.dispatch(snap)

	s.mu.Lock()
	if s.executing[id]--; s.executing[id] <= 0 {
		delete(s.executing, id)
	}
	s.mu.Unlock()
	return snap
}

func (s *RitualService) dispatch(r *domain.Ritual) {
	ambient, hasAmbient := s.effects.(domain.AmbientEffects)

	for i, action := range r.Actions {
		effect, err := action.Decode()
		if err != nil {
			s.logger.Warn("skipping ritual action",
				zap.String("ritual_id", r.ID),
				zap.Int("action", i),
				zap.String("kind", string(action.Kind)),
				zap.Error(err))
			continue
		}

		switch e := effect.(type) {
		case domain.AffirmationEffect:
			if line := s.rng.pick(e.Lines); line != "" {
				s.effects.Affirmation(line)
			}
		case domain.BreathingEffect:
			s.effects.BreathingGuide(e.Instructions, e.Duration)
			s.sessions.Start(domain.ActionBreathing, r.ID, e.Duration, nil)
		case domain.MeditationEffect:
			cancel := s.effects.MeditationStart(e.Instructions, e.Duration)
			s.sessions.Start(domain.ActionMeditation, r.ID, e.Duration, cancel)
		case domain.VoiceToneEffect:
			s.effects.VoiceToneChange(e.Tone, e.Pitch, e.Rate)
		case domain.UIThemeEffect:
			s.effects.UIThemeChange(e.Colors, e.Intensity)
		case domain.ActivityEffect:
			if line := s.rng.pick(e.Options); line != "" {
				s.effects.ActivitySuggested(line)
			}
		case domain.MusicEffect:
			if hasAmbient {
				ambient.MusicPlay(e.Track, e.Volume)
			} else {
				s.logger.Debug("music not supported by effects collaborator", zap.String("ritual_id", r.ID))
			}
		case domain.LightingEffect:
			if hasAmbient {
				ambient.LightingChange(e.Colors, e.Brightness)
			} else {
				s.logger.Debug("lighting not supported by effects collaborator", zap.String("ritual_id", r.ID))
			}
		case domain.FeatureToggleEffect:
			if hasAmbient {
				ambient.FeatureToggle(e.Feature, e.Enabled)
			} else {
				s.logger.Debug("feature toggles not supported by effects collaborator", zap.String("ritual_id", r.ID))
			}
		}
	}
}

func (s *RitualService) appendLocked(r *domain.Ritual) {
	s.rituals = append(s.rituals, r)
	s.index[r.ID] = r
}

func (s *RitualService) persistCatalogLocked() {
	s.saver.Save(domain.NamespaceRituals, s.rituals)
}

// CooldownRemaining exposes the time left before id may trigger again.
func (s *RitualService) CooldownRemaining(id string) time.Duration {
	return s.cooldowns.Remaining(id)
}

func newRitualID() string {
	return "ritual_" + uuid.New().String()
}
