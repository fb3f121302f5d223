// Package effects holds presentation-side adapters for the engine's outbound
// effect ports.
package effects

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
)

const DefaultFeedSize = 200

// Record is one dispatched effect as shown in the presentation feed.
type Record struct {
	Seq    int64          `json:"seq"`
	Kind   string         `json:"kind"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// LogSink logs every effect and keeps the most recent ones in a bounded ring.
// It implements both domain.Effects and domain.AmbientEffects.
type LogSink struct {
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	ring []Record
	next int
	full bool
	seq  int64
}

func NewLogSink(size int, logger *zap.Logger) *LogSink {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &LogSink{
		logger: logger,
		now:    time.Now,
		ring:   make([]Record, size),
	}
}

// SetClock replaces the timestamp source.
func (s *LogSink) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *LogSink) emit(kind string, fields map[string]any) int64 {
	s.mu.Lock()
	s.seq++
	rec := Record{Seq: s.seq, Kind: kind, At: s.now(), Fields: fields}
	s.ring[s.next] = rec
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()

	s.logger.Info("effect dispatched",
		zap.Int64("seq", rec.Seq),
		zap.String("kind", kind),
		zap.Any("fields", fields),
	)
	return rec.Seq
}

// Recent returns up to limit records, newest first. limit <= 0 returns all
// retained records.
func (s *LogSink) Recent(limit int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.full {
		n = len(s.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

func (s *LogSink) Affirmation(text string) {
	s.emit("affirmation", map[string]any{"text": text})
}

func (s *LogSink) BreathingGuide(instructions string, duration time.Duration) {
	s.emit("breathing", map[string]any{
		"instructions": instructions,
		"duration_sec": duration.Seconds(),
	})
}

func (s *LogSink) VoiceToneChange(tone string, pitch, rate float64) {
	s.emit("voice_tone", map[string]any{"tone": tone, "pitch": pitch, "rate": rate})
}

func (s *LogSink) UIThemeChange(colors []string, intensity float64) {
	s.emit("ui_theme", map[string]any{"colors": colors, "intensity": intensity})
}

// MeditationStart records the start and returns a cancel that records the
// stop once. Repeated calls are no-ops.
func (s *LogSink) MeditationStart(instructions string, duration time.Duration) domain.CancelFunc {
	seq := s.emit("meditation_start", map[string]any{
		"instructions": instructions,
		"duration_sec": duration.Seconds(),
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			s.emit("meditation_stop", map[string]any{"start_seq": seq})
		})
	}
}

func (s *LogSink) ActivitySuggested(text string) {
	s.emit("activity", map[string]any{"text": text})
}

func (s *LogSink) MusicPlay(track string, volume float64) {
	s.emit("music", map[string]any{"track": track, "volume": volume})
}

func (s *LogSink) LightingChange(colors []string, brightness float64) {
	s.emit("lighting", map[string]any{"colors": colors, "brightness": brightness})
}

func (s *LogSink) FeatureToggle(feature string, enabled bool) {
	s.emit("feature_toggle", map[string]any{"feature": feature, "enabled": enabled})
}

var (
	_ domain.Effects        = (*LogSink)(nil)
	_ domain.AmbientEffects = (*LogSink)(nil)
)
