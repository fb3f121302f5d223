package domain

import (
	"sort"
	"time"
)

// ToneAdjustment is the voice tone the assistant should adopt.
type ToneAdjustment struct {
	Tone  string  `json:"tone"`
	Pitch float64 `json:"pitch"`
}

// NeutralAdjustment is the baseline tone.
var NeutralAdjustment = ToneAdjustment{Tone: "neutral", Pitch: 1.0}

// Histogram counts labelled occurrences and remembers first-seen order so
// ties resolve deterministically.
type Histogram struct {
	Counts map[string]int `json:"counts"`
	Order  []string       `json:"order"`
}

func NewHistogram() *Histogram {
	return &Histogram{Counts: make(map[string]int)}
}

func (h *Histogram) Inc(label string) {
	if h.Counts == nil {
		h.Counts = make(map[string]int)
	}
	if _, seen := h.Counts[label]; !seen {
		h.Order = append(h.Order, label)
	}
	h.Counts[label]++
}

// Repair makes Order list every counted label exactly once. Labels kept in
// Order stay first; labels known only to Counts follow in sorted order.
func (h *Histogram) Repair() {
	if h.Counts == nil {
		h.Counts = make(map[string]int)
	}
	seen := make(map[string]bool, len(h.Counts))
	order := h.Order[:0:0]
	for _, label := range h.Order {
		if _, ok := h.Counts[label]; ok && !seen[label] {
			seen[label] = true
			order = append(order, label)
		}
	}
	var missing []string
	for label := range h.Counts {
		if !seen[label] {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	h.Order = append(order, missing...)
}

func (h *Histogram) Empty() bool {
	return h == nil || len(h.Order) == 0
}

// Dominant returns the most frequent label, earliest first seen on ties.
func (h *Histogram) Dominant() (string, int) {
	if h.Empty() {
		return "", 0
	}
	best, bestCount := "", 0
	for _, label := range h.Order {
		if c := h.Counts[label]; c > bestCount {
			best, bestCount = label, c
		}
	}
	return best, bestCount
}

// BehaviorPatterns aggregates observed conversation behaviour.
type BehaviorPatterns struct {
	UserEmotions       *Histogram `json:"user_emotions"`
	TimeOfDay          *Histogram `json:"time_of_day"`
	MessageLengths     *Histogram `json:"message_lengths"`
	ResponseLengths    *Histogram `json:"response_lengths"`
	ResponseTendencies *Histogram `json:"response_tendencies"`
}

func NewBehaviorPatterns() BehaviorPatterns {
	return BehaviorPatterns{
		UserEmotions:       NewHistogram(),
		TimeOfDay:          NewHistogram(),
		MessageLengths:     NewHistogram(),
		ResponseLengths:    NewHistogram(),
		ResponseTendencies: NewHistogram(),
	}
}

// Reflection is one self-reflection produced by the profiler.
type Reflection struct {
	Reflection  string         `json:"reflection"`
	MoodTrend   string         `json:"mood_trend"`
	Count       int            `json:"count"`
	Adjustment  ToneAdjustment `json:"adjustment"`
	TriggeredBy string         `json:"triggered_by"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ReflectionRecord is one entry of the capped reflection history.
type ReflectionRecord struct {
	Reflection  string    `json:"reflection"`
	MoodTrend   string    `json:"mood_trend"`
	Timestamp   time.Time `json:"timestamp"`
	TriggeredBy string    `json:"triggered_by"`
}

// UserFeedback is free-form feedback about the assistant's behaviour.
type UserFeedback struct {
	Feedback  string    `json:"feedback"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BehaviorState is the full persisted state of the profiler.
type BehaviorState struct {
	Adjustment     ToneAdjustment     `json:"adjustment"`
	LastReflection *Reflection        `json:"last_reflection,omitempty"`
	Patterns       BehaviorPatterns   `json:"patterns"`
	Feedback       []UserFeedback     `json:"feedback"`
	History        []ReflectionRecord `json:"history"`
}
