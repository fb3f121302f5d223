package domain

import (
	"strings"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ValidRole(s string) bool {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

// EmotionNeutral is used whenever an event arrives without a detected emotion.
const EmotionNeutral = "neutral"

// NormalizeEmotion lower-cases and trims an emotion label, defaulting to neutral.
func NormalizeEmotion(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" {
		return EmotionNeutral
	}
	return e
}

// TimeBucket is a coarse time-of-day bucket.
type TimeBucket string

const (
	TimeMorning   TimeBucket = "morning"
	TimeAfternoon TimeBucket = "afternoon"
	TimeEvening   TimeBucket = "evening"
	TimeNight     TimeBucket = "night"
)

func ValidTimeBucket(s string) bool {
	switch TimeBucket(s) {
	case TimeMorning, TimeAfternoon, TimeEvening, TimeNight:
		return true
	}
	return false
}

// TimeBucketAt buckets t by local hour: [5,12) morning, [12,17) afternoon,
// [17,22) evening, everything else night.
func TimeBucketAt(t time.Time) TimeBucket {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// MessageEvent is the single inbound event driving the engine.
type MessageEvent struct {
	Message   string    `json:"message"`
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}
