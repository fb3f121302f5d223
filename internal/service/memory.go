package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const DefaultEpisodicCap = 100

var ErrSemanticKeyEmpty = errors.New("semantic key is required")

// MemoryService holds the bounded episodic log and the semantic key/value store.
type MemoryService struct {
	mu       sync.RWMutex
	episodic []domain.EpisodicEntry
	semantic map[string]domain.SemanticEntry
	capacity int
	lastSeq  uint64

	saver  domain.Saver
	now    Clock
	logger *zap.Logger
}

func NewMemoryService(capacity int, saver domain.Saver, now Clock, logger *zap.Logger) *MemoryService {
	if capacity <= 0 {
		capacity = DefaultEpisodicCap
	}
	return &MemoryService{
		semantic: make(map[string]domain.SemanticEntry),
		capacity: capacity,
		saver:    saverOrNop(saver),
		now:      now,
		logger:   logger,
	}
}

// Load restores both stores. Corrupt or missing data leaves them empty.
func (s *MemoryService) Load(ctx context.Context, st domain.StateStore) {
	var episodic []domain.EpisodicEntry
	var semantic map[string]domain.SemanticEntry
	loadState(ctx, st, domain.NamespaceEpisodic, &episodic, s.logger)
	loadState(ctx, st, domain.NamespaceSemantic, &semantic, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(episodic) > s.capacity {
		episodic = episodic[len(episodic)-s.capacity:]
	}
	// Entries written before sequencing, or out of order, are renumbered.
	var last uint64
	for i := range episodic {
		if episodic[i].Seq <= last {
			episodic[i].Seq = last + 1
		}
		last = episodic[i].Seq
	}
	s.episodic = episodic
	if last > s.lastSeq {
		s.lastSeq = last
	}
	if semantic == nil {
		semantic = make(map[string]domain.SemanticEntry)
	}
	s.semantic = semantic
}

// AddEpisodic appends an entry, evicting the oldest beyond capacity. Any
// caller-supplied Seq is replaced.
func (s *MemoryService) AddEpisodic(entry domain.EpisodicEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Emotion = domain.NormalizeEmotion(entry.Emotion)
	if entry.Role == "" {
		entry.Role = domain.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	entry.Seq = s.lastSeq
	s.episodic = append(s.episodic, entry)
	if over := len(s.episodic) - s.capacity; over > 0 {
		s.episodic = append(s.episodic[:0:0], s.episodic[over:]...)
	}
	s.saver.Save(domain.NamespaceEpisodic, s.episodic)
}

// RecentEpisodic returns up to n most recent entries, oldest first.
func (s *MemoryService) RecentEpisodic(n int) []domain.EpisodicEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []domain.EpisodicEntry{}
	}
	if n > len(s.episodic) {
		n = len(s.episodic)
	}
	out := make([]domain.EpisodicEntry, n)
	copy(out, s.episodic[len(s.episodic)-n:])
	return out
}

// EpisodicSize is the current number of episodic entries.
func (s *MemoryService) EpisodicSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.episodic)
}

// Capacity is the configured episodic cap.
func (s *MemoryService) Capacity() int {
	return s.capacity
}

// SetSemantic stores value under key, overwriting any previous value.
func (s *MemoryService) SetSemantic(key string, value any) error {
	if key == "" {
		return ErrSemanticKeyEmpty
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode semantic %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.semantic[key] = domain.SemanticEntry{Value: raw, Timestamp: s.now()}
	s.saver.Save(domain.NamespaceSemantic, s.semantic)
	return nil
}

// GetSemantic returns the raw stored value and whether the key exists.
func (s *MemoryService) GetSemantic(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.semantic[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), e.Value...), true
}

// GetSemanticInto decodes the value under key into dst.
func (s *MemoryService) GetSemanticInto(key string, dst any) (bool, error) {
	raw, ok := s.GetSemantic(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode semantic %q: %w", key, err)
	}
	return true, nil
}

// AllSemantic returns a copy of the semantic store.
func (s *MemoryService) AllSemantic() map[string]domain.SemanticEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.SemanticEntry, len(s.semantic))
	for k, v := range s.semantic {
		out[k] = v
	}
	return out
}

// Clear empties both stores. Sequence numbers keep increasing.
func (s *MemoryService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodic = nil
	s.semantic = make(map[string]domain.SemanticEntry)
	s.saver.Save(domain.NamespaceEpisodic, []domain.EpisodicEntry{})
	s.saver.Save(domain.NamespaceSemantic, s.semantic)
	s.logger.Info("memory cleared")
}
