package effects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink_RecentNewestFirst(t *testing.T) {
	sink := NewLogSink(10, zap.NewNop())
	sink.Affirmation("one")
	sink.ActivitySuggested("two")
	sink.MusicPlay("rain.mp3", 0.4)

	recs := sink.Recent(0)
	require.Len(t, recs, 3)
	assert.Equal(t, "music", recs[0].Kind)
	assert.Equal(t, "activity", recs[1].Kind)
	assert.Equal(t, "affirmation", recs[2].Kind)
	assert.Equal(t, int64(3), recs[0].Seq)

	assert.Len(t, sink.Recent(2), 2)
}

func TestLogSink_RingIsBounded(t *testing.T) {
	sink := NewLogSink(3, zap.NewNop())
	for i := 0; i < 7; i++ {
		sink.Affirmation("x")
	}
	recs := sink.Recent(100)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(7), recs[0].Seq)
	assert.Equal(t, int64(5), recs[2].Seq)
}

func TestLogSink_MeditationCancelIsIdempotent(t *testing.T) {
	sink := NewLogSink(10, zap.NewNop())
	cancel := sink.MeditationStart("close your eyes", 5*time.Minute)
	cancel()
	cancel()

	recs := sink.Recent(0)
	require.Len(t, recs, 2)
	assert.Equal(t, "meditation_stop", recs[0].Kind)
	assert.Equal(t, int64(1), recs[0].Fields["start_seq"])
	assert.Equal(t, 300.0, recs[1].Fields["duration_sec"])
}

func TestLogSink_LogsEachEffect(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(0, zap.New(core))
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	sink.SetClock(func() time.Time { return at })

	sink.LightingChange([]string{"#fff"}, 0.8)
	sink.FeatureToggle("notifications", false)

	assert.Equal(t, 2, logs.FilterMessage("effect dispatched").Len())
	recs := sink.Recent(1)
	require.Len(t, recs, 1)
	assert.Equal(t, at, recs[0].At)
	assert.Equal(t, "notifications", recs[0].Fields["feature"])
}
