package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultRelatedLimit = 3
	recallCandidates    = 5

	keywordOverlapWeight = 2.0
	emotionMatchWeight   = 2.0
	recencyWeight        = 3.0
	recallFreshWeight    = 2.0
	typeWeightFactor     = 2.0

	recencyHorizonDays = 365.0
	recallSaturation   = 10.0
)

var (
	ErrNarrativeNotFound = errors.New("narrative memory not found")
	ErrInvalidNarrative  = errors.New("narrative memory requires message and type")
)

type narrativeState struct {
	LastRecalledID string `json:"last_recalled_id"`
}

// NarrativeService indexes significant emotional events and resurfaces them
// by relevance to the current conversation.
type NarrativeService struct {
	mu             sync.Mutex
	memories       []*domain.NarrativeMemory
	themes         domain.EmotionalThemes
	lastRecalledID string

	saver  domain.Saver
	rng    *lockedRand
	now    Clock
	logger *zap.Logger
}

func NewNarrativeService(saver domain.Saver, rng *lockedRand, now Clock, logger *zap.Logger) *NarrativeService {
	return &NarrativeService{
		themes: domain.NewEmotionalThemes(),
		saver:  saverOrNop(saver),
		rng:    rng,
		now:    now,
		logger: logger,
	}
}

// Load restores memories and rebuilds theme counters from them.
func (s *NarrativeService) Load(ctx context.Context, st domain.StateStore) {
	var memories []*domain.NarrativeMemory
	var state narrativeState
	loadState(ctx, st, domain.NamespaceNarratives, &memories, s.logger)
	loadState(ctx, st, domain.NamespaceNarrativeState, &state, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = s.memories[:0]
	s.themes = domain.NewEmotionalThemes()
	for _, m := range memories {
		if m == nil || m.ID == "" {
			continue
		}
		s.memories = append(s.memories, m)
		s.themes.Add(m)
	}
	s.lastRecalledID = state.LastRecalledID
}

// CreateMemory stores a new narrative memory. Message and type are required.
func (s *NarrativeService) CreateMemory(in domain.NarrativeInput) (*domain.NarrativeMemory, error) {
	if strings.TrimSpace(in.Message) == "" || in.Type == "" {
		return nil, ErrInvalidNarrative
	}
	now := s.now()
	at := in.Timestamp
	if at.IsZero() {
		at = now
	}
	m := &domain.NarrativeMemory{
		ID:                   "mem_" + ulid.Make().String(),
		Type:                 in.Type,
		Message:              in.Message,
		Emotion:              domain.NormalizeEmotion(in.Emotion),
		Intensity:            in.Intensity,
		Timestamp:            at,
		Keywords:             ExtractKeywords(in.Message),
		NarrativeDescription: NarrativeDescription(in.Type, strings.TrimSpace(in.Emotion), at, now),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories = append(s.memories, m)
	s.themes.Add(m)
	s.persistLocked()

	s.logger.Debug("narrative memory created", zap.String("memory_id", m.ID), zap.String("type", string(m.Type)))
	return cloneNarrative(m), nil
}

// FindRelated ranks every memory against the message and emotion and returns
// the top limit. Equal scores keep insertion order.
func (s *NarrativeService) FindRelated(message, emotion string, limit int) []domain.NarrativeWithScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	scored := s.rankLocked(message, emotion, limit)
	out := make([]domain.NarrativeWithScore, len(scored))
	for i, c := range scored {
		out[i] = domain.NarrativeWithScore{NarrativeMemory: *cloneNarrative(c.memory), Score: c.score}
	}
	return out
}

type scoredNarrative struct {
	memory *domain.NarrativeMemory
	score  float64
}

func (s *NarrativeService) rankLocked(message, emotion string, limit int) []scoredNarrative {
	if strings.TrimSpace(message) == "" || len(s.memories) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	query := make(map[string]struct{})
	for _, k := range ExtractKeywords(message) {
		query[k] = struct{}{}
	}
	if emotion != "" {
		emotion = domain.NormalizeEmotion(emotion)
	}
	now := s.now()

	scored := make([]scoredNarrative, len(s.memories))
	for i, m := range s.memories {
		scored[i] = scoredNarrative{memory: m, score: s.score(m, query, emotion, now.Sub(m.Timestamp).Hours()/24)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (s *NarrativeService) score(m *domain.NarrativeMemory, query map[string]struct{}, emotion string, ageDays float64) float64 {
	overlap := 0
	for _, k := range m.Keywords {
		if _, ok := query[k]; ok {
			overlap++
		}
	}
	emotionMatch := 0.0
	if emotion != "" && m.Emotion == emotion {
		emotionMatch = 1
	}
	recency := math.Max(0, 1-ageDays/recencyHorizonDays)
	fresh := math.Max(0, 1-float64(m.RecallCount)/recallSaturation)

	return keywordOverlapWeight*float64(overlap) +
		emotionMatchWeight*emotionMatch +
		recencyWeight*recency +
		recallFreshWeight*fresh +
		typeWeightFactor*recallWeight(m.Type)
}

// Recall picks one of the top related memories, biased toward the best,
// never returning the previously recalled memory when another candidate
// exists. It returns nil when nothing is related.
func (s *NarrativeService) Recall(message, emotion string) *domain.NarrativeMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.rankLocked(message, emotion, recallCandidates)
	n := len(candidates)
	if n == 0 {
		return nil
	}
	r := s.rng.Float64()
	idx := int(math.Floor(r * r * float64(n)))
	if idx > n-1 {
		idx = n - 1
	}
	if candidates[idx].memory.ID == s.lastRecalledID && n > 1 {
		idx = (idx + 1) % n
	}

	m := candidates[idx].memory
	now := s.now()
	m.RecallCount++
	m.LastRecalled = &now
	s.lastRecalledID = m.ID
	s.persistLocked()
	s.saver.Save(domain.NamespaceNarrativeState, narrativeState{LastRecalledID: m.ID})

	return cloneNarrative(m)
}

// RecallPrompt wraps a memory's description in a conversational prompt.
func (s *NarrativeService) RecallPrompt(m *domain.NarrativeMemory) string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf(s.rng.pick(recallPromptTemplates), m.NarrativeDescription)
}

// AddFeedback attaches (or replaces) the user's reaction to a memory.
func (s *NarrativeService) AddFeedback(id string, helpful bool, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findLocked(id)
	if m == nil {
		return ErrNarrativeNotFound
	}
	m.UserFeedback = &domain.NarrativeFeedback{Helpful: helpful, Comment: comment, Timestamp: s.now()}
	s.persistLocked()
	return nil
}

func (s *NarrativeService) Get(id string) (*domain.NarrativeMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findLocked(id)
	if m == nil {
		return nil, ErrNarrativeNotFound
	}
	return cloneNarrative(m), nil
}

// List returns memories filtered by type and emotion; empty filters match all.
func (s *NarrativeService) List(t domain.EventType, emotion string) []*domain.NarrativeMemory {
	if emotion != "" {
		emotion = domain.NormalizeEmotion(emotion)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.NarrativeMemory, 0)
	for _, m := range s.memories {
		if t != "" && m.Type != t {
			continue
		}
		if emotion != "" && m.Emotion != emotion {
			continue
		}
		out = append(out, cloneNarrative(m))
	}
	return out
}

func (s *NarrativeService) ByType(t domain.EventType) []*domain.NarrativeMemory {
	return s.List(t, "")
}

func (s *NarrativeService) ByEmotion(emotion string) []*domain.NarrativeMemory {
	return s.List("", domain.NormalizeEmotion(emotion))
}

func (s *NarrativeService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memories)
}

// Themes returns a copy of the per-emotion counters.
func (s *NarrativeService) Themes() domain.EmotionalThemes {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := domain.NewEmotionalThemes()
	for k, v := range s.themes.Counts {
		out.Counts[k] = v
	}
	for emotion, kw := range s.themes.Keywords {
		c := make(map[string]int, len(kw))
		for k, v := range kw {
			c[k] = v
		}
		out.Keywords[emotion] = c
	}
	return out
}

func (s *NarrativeService) findLocked(id string) *domain.NarrativeMemory {
	for _, m := range s.memories {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *NarrativeService) persistLocked() {
	s.saver.Save(domain.NamespaceNarratives, s.memories)
}

func cloneNarrative(m *domain.NarrativeMemory) *domain.NarrativeMemory {
	c := *m
	c.Keywords = append([]string(nil), m.Keywords...)
	if m.LastRecalled != nil {
		t := *m.LastRecalled
		c.LastRecalled = &t
	}
	if m.UserFeedback != nil {
		f := *m.UserFeedback
		c.UserFeedback = &f
	}
	return &c
}
