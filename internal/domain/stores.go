package domain

import (
	"context"
	"time"
)

// Persistence namespaces.
const (
	NamespaceEpisodic         = "memory.episodic"
	NamespaceSemantic         = "memory.semantic"
	NamespaceRituals          = "rituals.catalog"
	NamespaceRitualHistory    = "rituals.history"
	NamespaceNarratives       = "narrative.memories"
	NamespaceNarrativeState   = "narrative.state"
	NamespaceBehavior         = "behavior.state"
	NamespaceRetrievalFailure = "retrieval.failures"
)

// StateStore is the key-value persistence collaborator. Values are JSON
// documents; Load returns store.ErrNotFound for unknown namespaces.
type StateStore interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, value []byte) error
}

// Saver is the fire-and-forget save hook used by the engine's components.
// Implementations must keep per-namespace write order.
type Saver interface {
	Save(namespace string, value any)
}

// CancelFunc stops a running collaborator-side session. It must be safe to
// call more than once.
type CancelFunc func()

// Effects receives ritual actions. Calls are one-way notifications; the
// engine never waits on their outcome.
type Effects interface {
	Affirmation(text string)
	BreathingGuide(instructions string, duration time.Duration)
	VoiceToneChange(tone string, pitch, rate float64)
	UIThemeChange(colors []string, intensity float64)
	MeditationStart(instructions string, duration time.Duration) CancelFunc
	ActivitySuggested(text string)
}

// AmbientEffects is optionally implemented by an Effects collaborator that can
// also drive music, lighting and feature flags.
type AmbientEffects interface {
	MusicPlay(track string, volume float64)
	LightingChange(colors []string, brightness float64)
	FeatureToggle(feature string, enabled bool)
}
