package domain

import (
	"errors"
	"time"
)

var ErrUnknownActionKind = errors.New("unknown action kind")

var defaultThemeColors = []string{"#f8f8f2", "#6272a4", "#8be9fd"}

const (
	defaultBreathingDuration  = 60 * time.Second
	defaultMeditationDuration = 300 * time.Second
)

// Effect is the decoded, typed form of an Action. The set of implementations
// is closed; consumers switch over the concrete types.
type Effect interface {
	Kind() ActionKind
}

type AffirmationEffect struct {
	Lines Lines
	Voice string
	Speed float64
}

type BreathingEffect struct {
	Instructions string
	Duration     time.Duration
	Pace         string
}

type MusicEffect struct {
	Track  string
	Volume float64
}

type LightingEffect struct {
	Colors     []string
	Brightness float64
}

type VoiceToneEffect struct {
	Tone  string
	Pitch float64
	Rate  float64
}

type UIThemeEffect struct {
	Colors    []string
	Intensity float64
}

type FeatureToggleEffect struct {
	Feature string
	Enabled bool
}

type ActivityEffect struct {
	Options Lines
}

type MeditationEffect struct {
	Instructions string
	Duration     time.Duration
	Background   string
}

func (AffirmationEffect) Kind() ActionKind { return ActionAffirmation }
func (BreathingEffect) Kind() ActionKind   { return ActionBreathing }
func (MusicEffect) Kind() ActionKind       { return ActionMusic }
func (LightingEffect) Kind() ActionKind    { return ActionLighting }
func (VoiceToneEffect) Kind() ActionKind   { return ActionVoiceTone }
func (UIThemeEffect) Kind() ActionKind     { return ActionUIChange }
func (ActivityEffect) Kind() ActionKind    { return ActionSuggestActivity }
func (MeditationEffect) Kind() ActionKind  { return ActionMeditation }

func (e FeatureToggleEffect) Kind() ActionKind {
	if e.Enabled {
		return ActionEnableFeature
	}
	return ActionDisableFeature
}

// Decode converts a stored action into its typed effect, filling defaults
// from the original ritual definitions. Unknown kinds yield ErrUnknownActionKind.
func (a Action) Decode() (Effect, error) {
	s := a.Settings
	switch CanonicalActionKind(a.Kind) {
	case ActionAffirmation:
		return AffirmationEffect{
			Lines: a.Content,
			Voice: s.String("voice", ""),
			Speed: s.Float("speed", 1.0),
		}, nil
	case ActionBreathing:
		return BreathingEffect{
			Instructions: a.Content.First(),
			Duration:     seconds(s.Float("duration", 0), defaultBreathingDuration),
			Pace:         s.String("pace", "slow"),
		}, nil
	case ActionMusic:
		return MusicEffect{
			Track:  firstNonEmpty(a.Content.First(), s.String("track", "")),
			Volume: s.Float("volume", 0.5),
		}, nil
	case ActionLighting:
		return LightingEffect{
			Colors:     s.Strings("colors"),
			Brightness: s.Float("brightness", 1.0),
		}, nil
	case ActionVoiceTone:
		return VoiceToneEffect{
			Tone:  s.String("tone", "neutral"),
			Pitch: s.Float("pitch", 1.0),
			Rate:  s.Float("speed", s.Float("rate", 1.0)),
		}, nil
	case ActionUIChange:
		colors := s.Strings("colors")
		if len(colors) == 0 {
			colors = append([]string(nil), defaultThemeColors...)
		}
		return UIThemeEffect{
			Colors:    colors,
			Intensity: s.Float("intensity", s.Float("brightness", 0.5)),
		}, nil
	case ActionDisableFeature, ActionEnableFeature:
		return FeatureToggleEffect{
			Feature: firstNonEmpty(a.Content.First(), s.String("feature", "")),
			Enabled: CanonicalActionKind(a.Kind) == ActionEnableFeature,
		}, nil
	case ActionSuggestActivity:
		return ActivityEffect{Options: a.Content}, nil
	case ActionMeditation:
		return MeditationEffect{
			Instructions: a.Content.First(),
			Duration:     seconds(s.Float("duration", 0), defaultMeditationDuration),
			Background:   s.String("background", ""),
		}, nil
	}
	return nil, ErrUnknownActionKind
}

func seconds(v float64, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v * float64(time.Second))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
