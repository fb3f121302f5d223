package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRituals(t *testing.T) {
	rituals := DefaultRituals()

	var ids []string
	for _, r := range rituals {
		ids = append(ids, r.ID)
		assert.True(t, r.IsDefault)
		require.NoError(t, ValidateRitual(&r))
		for _, a := range r.Actions {
			_, err := a.Decode()
			assert.NoError(t, err, "ritual %s action %s", r.ID, a.Kind)
		}
	}
	want := []string{"feeling_off", "anger_cooldown", "breathing_exercise", "meditation", "physical_activity", "gratitude_practice"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("default ritual order mismatch (-want +got):\n%s", diff)
	}

	anger := rituals[1]
	assert.Equal(t, domain.TriggerCondition{Kind: domain.TriggerEmotion, Value: "anger", MinIntensity: 0.6}, anger.Triggers[0])
	effect, err := anger.Actions[0].Decode()
	require.NoError(t, err)
	breathing, ok := effect.(domain.BreathingEffect)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, breathing.Duration)
	assert.Equal(t, "slow", breathing.Pace)

	rituals[0].Name = "mutated"
	assert.NotEqual(t, "mutated", DefaultRituals()[0].Name)
}

func TestParseRitualCatalog(t *testing.T) {
	data := []byte(`
rituals:
  - id: evening_wind_down
    name: Wind down
    triggers:
      - {kind: time, value: evening}
      - {kind: emotion, value: tired}
    actions:
      - kind: music
        content: soft-piano
        settings: {volume: 0.3}
      - kind: ui_change
        settings: {colors: ["#111", "#222"], intensity: 0.4}
`)
	rituals, err := ParseRitualCatalog(data)
	require.NoError(t, err)
	require.Len(t, rituals, 1)

	r := rituals[0]
	assert.Equal(t, "evening_wind_down", r.ID)
	assert.Equal(t, 0.5, r.Triggers[1].Threshold())

	music, err := r.Actions[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, domain.MusicEffect{Track: "soft-piano", Volume: 0.3}, music)

	ui, err := r.Actions[1].Decode()
	require.NoError(t, err)
	assert.Equal(t, domain.UIThemeEffect{Colors: []string{"#111", "#222"}, Intensity: 0.4}, ui)
}

func TestParseRitualCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "rituals: [unclosed"},
		{"missing actions", "rituals:\n  - id: a\n    name: a\n    triggers: [{kind: phrase, value: x}]\n"},
		{"bad bucket", "rituals:\n  - id: a\n    name: a\n    triggers: [{kind: time, value: dusk}]\n    actions: [{kind: affirmation, content: hi}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRitualCatalog([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadRitualCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rituals.yaml")
	require.NoError(t, os.WriteFile(path, defaultRitualsYAML, 0o644))

	rituals, err := LoadRitualCatalog(path)
	require.NoError(t, err)
	assert.Len(t, rituals, 6)
	assert.False(t, rituals[0].IsDefault)

	_, err = LoadRitualCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
