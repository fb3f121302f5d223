package domain

import "time"

// EventType classifies a significant emotional event.
type EventType string

const (
	EventEmotionalDisclosure EventType = "emotional_disclosure"
	EventBreakthrough        EventType = "breakthrough"
	EventChallenge           EventType = "challenge"
	EventAchievement         EventType = "achievement"
	EventReflection          EventType = "reflection"
	EventForgiveness         EventType = "forgiveness"
	EventGratitude           EventType = "gratitude"
	EventFear                EventType = "fear"
	EventJoy                 EventType = "joy"
	EventSadness             EventType = "sadness"
	EventAnger               EventType = "anger"
	EventSurprise            EventType = "surprise"
)

func ValidEventType(s string) bool {
	switch EventType(s) {
	case EventEmotionalDisclosure, EventBreakthrough, EventChallenge, EventAchievement,
		EventReflection, EventForgiveness, EventGratitude, EventFear, EventJoy,
		EventSadness, EventAnger, EventSurprise:
		return true
	}
	return false
}

// NarrativeFeedback is the user's reaction to a recalled memory.
type NarrativeFeedback struct {
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NarrativeMemory is a scored, recallable record of a significant event.
// RecallCount and LastRecalled change only through recall.
type NarrativeMemory struct {
	ID                   string             `json:"id"`
	Type                 EventType          `json:"type"`
	Message              string             `json:"message"`
	Emotion              string             `json:"emotion"`
	Intensity            float64            `json:"intensity"`
	Timestamp            time.Time          `json:"timestamp"`
	Keywords             []string           `json:"keywords"`
	NarrativeDescription string             `json:"narrative_description"`
	RecallCount          int                `json:"recall_count"`
	LastRecalled         *time.Time         `json:"last_recalled,omitempty"`
	UserFeedback         *NarrativeFeedback `json:"user_feedback,omitempty"`
}

// NarrativeInput is the input for creating a narrative memory.
type NarrativeInput struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
}

// NarrativeWithScore pairs a memory with its recall score.
type NarrativeWithScore struct {
	NarrativeMemory
	Score float64 `json:"score"`
}

// EmotionalThemes holds per-emotion occurrence counts and keyword frequencies.
// It is derived data, rebuilt from the full narrative set on load.
type EmotionalThemes struct {
	Counts   map[string]int            `json:"counts"`
	Keywords map[string]map[string]int `json:"keywords"`
}

func NewEmotionalThemes() EmotionalThemes {
	return EmotionalThemes{
		Counts:   make(map[string]int),
		Keywords: make(map[string]map[string]int),
	}
}

// Add folds one memory into the counters.
func (t EmotionalThemes) Add(m *NarrativeMemory) {
	t.Counts[m.Emotion]++
	kw, ok := t.Keywords[m.Emotion]
	if !ok {
		kw = make(map[string]int)
		t.Keywords[m.Emotion] = kw
	}
	for _, k := range m.Keywords {
		kw[k]++
	}
}

// Glitch is the degraded response returned after repeated retrieval failures.
type Glitch struct {
	Message   string  `json:"message"`
	Tone      string  `json:"tone"`
	Intensity float64 `json:"intensity"`
}

// RetrievalOutcome is the result of resolving a narrative reference.
type RetrievalOutcome struct {
	Memory      *NarrativeMemory `json:"memory,omitempty"`
	FalseMemory *EpisodicEntry   `json:"false_memory,omitempty"`
	Confidence  float64          `json:"confidence"`
	Glitch      *Glitch          `json:"glitch,omitempty"`
	Failures    int              `json:"failures"`
}
