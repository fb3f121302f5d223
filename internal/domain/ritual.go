package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TriggerKind enumerates the conditions that can activate a ritual.
type TriggerKind string

const (
	TriggerPhrase  TriggerKind = "phrase"
	TriggerEmotion TriggerKind = "emotion"
	TriggerTime    TriggerKind = "time"
)

func ValidTriggerKind(s string) bool {
	switch TriggerKind(s) {
	case TriggerPhrase, TriggerEmotion, TriggerTime:
		return true
	}
	return false
}

// DefaultMinIntensity applies to emotion triggers declared without a threshold.
const DefaultMinIntensity = 0.5

// TriggerCondition is one activation condition. Value holds the phrase, the
// emotion label or the time bucket depending on Kind; MinIntensity is only
// meaningful for emotion triggers.
type TriggerCondition struct {
	Kind         TriggerKind `json:"kind" yaml:"kind"`
	Value        string      `json:"value" yaml:"value"`
	MinIntensity float64     `json:"min_intensity,omitempty" yaml:"min_intensity,omitempty"`
}

// Threshold returns the effective minimum intensity of an emotion trigger.
func (t TriggerCondition) Threshold() float64 {
	if t.MinIntensity <= 0 {
		return DefaultMinIntensity
	}
	return t.MinIntensity
}

// Validate reports whether the trigger can ever match.
func (t TriggerCondition) Validate() error {
	if !ValidTriggerKind(string(t.Kind)) {
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("%s trigger has empty value", t.Kind)
	}
	if t.Kind == TriggerTime && !ValidTimeBucket(t.Value) {
		return fmt.Errorf("invalid time bucket %q", t.Value)
	}
	return nil
}

// ActionKind enumerates ritual action kinds.
type ActionKind string

const (
	ActionAffirmation     ActionKind = "affirmation"
	ActionBreathing       ActionKind = "breathing"
	ActionMusic           ActionKind = "music"
	ActionLighting        ActionKind = "lighting"
	ActionVoiceTone       ActionKind = "voiceTone"
	ActionUIChange        ActionKind = "uiChange"
	ActionDisableFeature  ActionKind = "disableFeature"
	ActionEnableFeature   ActionKind = "enableFeature"
	ActionSuggestActivity ActionKind = "suggestActivity"
	ActionMeditation      ActionKind = "meditation"
)

var actionKindAliases = map[string]ActionKind{
	"voice_tone": ActionVoiceTone,
	"ui_change":  ActionUIChange,
	"disable":    ActionDisableFeature,
	"enable":     ActionEnableFeature,
	"suggest":    ActionSuggestActivity,
}

// CanonicalActionKind maps legacy aliases onto the canonical kind name.
func CanonicalActionKind(k ActionKind) ActionKind {
	if alias, ok := actionKindAliases[string(k)]; ok {
		return alias
	}
	return k
}

func ValidActionKind(s string) bool {
	switch CanonicalActionKind(ActionKind(s)) {
	case ActionAffirmation, ActionBreathing, ActionMusic, ActionLighting, ActionVoiceTone,
		ActionUIChange, ActionDisableFeature, ActionEnableFeature, ActionSuggestActivity, ActionMeditation:
		return true
	}
	return false
}

// Lines is action content. It decodes from either a single string or a list.
type Lines []string

func (l *Lines) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = Lines{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("content must be a string or a list of strings: %w", err)
	}
	*l = many
	return nil
}

func (l *Lines) UnmarshalYAML(unmarshal func(any) error) error {
	var one string
	if err := unmarshal(&one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = Lines{one}
		}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// First returns the first line or "".
func (l Lines) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// Action is the stored form of a ritual step. Decode turns it into a typed Effect.
type Action struct {
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Content  Lines      `json:"content,omitempty" yaml:"content,omitempty"`
	Settings Settings   `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Ritual is a named, reusable sequence of actions. ID never changes once created.
type Ritual struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Triggers    []TriggerCondition `json:"triggers" yaml:"triggers"`
	Actions     []Action           `json:"actions" yaml:"actions"`
	UsageCount  int                `json:"usage_count" yaml:"-"`
	LastUsed    *time.Time         `json:"last_used,omitempty" yaml:"-"`
	Created     time.Time          `json:"created" yaml:"-"`
	IsDefault   bool               `json:"is_default" yaml:"-"`
}

// Clone returns a deep copy safe to hand outside the catalog lock.
func (r *Ritual) Clone() *Ritual {
	c := *r
	c.Triggers = append([]TriggerCondition(nil), r.Triggers...)
	c.Actions = make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		c.Actions[i] = Action{
			Kind:     a.Kind,
			Content:  append(Lines(nil), a.Content...),
			Settings: a.Settings.Clone(),
		}
	}
	if r.LastUsed != nil {
		t := *r.LastUsed
		c.LastUsed = &t
	}
	return &c
}

// RitualExecution is one entry of the capped execution history.
type RitualExecution struct {
	RitualID  string    `json:"ritual_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// RitualState is the lifecycle state of a ritual: Idle -> Executing -> Cooldown -> Idle.
type RitualState string

const (
	RitualIdle      RitualState = "idle"
	RitualExecuting RitualState = "executing"
	RitualCooldown  RitualState = "cooldown"
)
