package service

import (
	"strings"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
)

// TriggerMatcher decides which ritual, if any, an event activates.
type TriggerMatcher struct {
	cooldowns *CooldownRegistry
	now       Clock
}

func NewTriggerMatcher(cooldowns *CooldownRegistry, now Clock) *TriggerMatcher {
	return &TriggerMatcher{cooldowns: cooldowns, now: now}
}

// Matches reports whether any trigger of r fires for the given event fields.
// Cooldown is not considered.
func (m *TriggerMatcher) Matches(r *domain.Ritual, message, emotion string, intensity float64) bool {
	return m.matchesAt(r, m.now(), message, emotion, intensity)
}

func (m *TriggerMatcher) matchesAt(r *domain.Ritual, at time.Time, message, emotion string, intensity float64) bool {
	lowered := strings.ToLower(message)
	emotion = domain.NormalizeEmotion(emotion)
	bucket := domain.TimeBucketAt(at)

	for _, t := range r.Triggers {
		switch t.Kind {
		case domain.TriggerPhrase:
			if t.Value != "" && strings.Contains(lowered, strings.ToLower(t.Value)) {
				return true
			}
		case domain.TriggerEmotion:
			if strings.EqualFold(t.Value, emotion) && intensity >= t.Threshold() {
				return true
			}
		case domain.TriggerTime:
			if domain.TimeBucket(t.Value) == bucket {
				return true
			}
		}
	}
	return false
}

// Match returns the first ritual in declaration order that is not in
// cooldown and whose triggers fire. It does not start a cooldown.
func (m *TriggerMatcher) Match(rituals []*domain.Ritual, message, emotion string, intensity float64) *domain.Ritual {
	for _, r := range rituals {
		if m.cooldowns.IsInCooldown(r.ID) {
			continue
		}
		if m.Matches(r, message, emotion, intensity) {
			return r
		}
	}
	return nil
}

// Acquire is Match that also claims the winner's cooldown atomically. When a
// concurrent caller claims a candidate first, the search moves on. Cooldowns
// and the time-of-day bucket are evaluated at the event instant at; a zero
// at means now.
func (m *TriggerMatcher) Acquire(rituals []*domain.Ritual, at time.Time, message, emotion string, intensity float64) *domain.Ritual {
	if at.IsZero() {
		at = m.now()
	}
	for _, r := range rituals {
		if m.cooldowns.IsInCooldownAt(r.ID, at) {
			continue
		}
		if !m.matchesAt(r, at, message, emotion, intensity) {
			continue
		}
		if m.cooldowns.TryAcquireAt(r.ID, 0, at) {
			return r
		}
	}
	return nil
}
