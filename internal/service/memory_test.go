package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_EpisodicCapKeepsNewest(t *testing.T) {
	clock := newFakeClock(testEpoch)
	svc := NewMemoryService(5, nil, clock.Now, testLogger())

	for i := 0; i < 8; i++ {
		svc.AddEpisodic(domain.EpisodicEntry{Message: fmt.Sprintf("m%d", i), Emotion: "sad", Intensity: 0.5})
		assert.LessOrEqual(t, svc.EpisodicSize(), 5)
	}

	recent := svc.RecentEpisodic(5)
	require.Len(t, recent, 5)
	for i, e := range recent {
		assert.Equal(t, fmt.Sprintf("m%d", i+3), e.Message)
	}
}

func TestMemory_RecentEpisodic(t *testing.T) {
	clock := newFakeClock(testEpoch)
	svc := NewMemoryService(0, nil, clock.Now, testLogger())
	assert.Equal(t, DefaultEpisodicCap, svc.Capacity())

	assert.Empty(t, svc.RecentEpisodic(3))

	svc.AddEpisodic(domain.EpisodicEntry{Message: "a"})
	svc.AddEpisodic(domain.EpisodicEntry{Message: "b", Role: domain.RoleAssistant})

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"zero", 0, nil},
		{"negative", -1, nil},
		{"fewer than stored", 1, []string{"b"}},
		{"more than stored", 10, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range svc.RecentEpisodic(tt.n) {
				got = append(got, e.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	first := svc.RecentEpisodic(2)[0]
	assert.Equal(t, domain.RoleUser, first.Role)
	assert.Equal(t, domain.EmotionNeutral, first.Emotion)
	assert.Equal(t, testEpoch, first.Timestamp)
}

func TestMemory_RecentEpisodicDoesNotAlias(t *testing.T) {
	svc := NewMemoryService(3, nil, time.Now, testLogger())
	svc.AddEpisodic(domain.EpisodicEntry{Message: "original"})

	got := svc.RecentEpisodic(1)
	got[0].Message = "changed"

	assert.Equal(t, "original", svc.RecentEpisodic(1)[0].Message)
}

func TestMemory_Semantic(t *testing.T) {
	clock := newFakeClock(testEpoch)
	svc := NewMemoryService(10, nil, clock.Now, testLogger())

	_, ok := svc.GetSemantic("name")
	assert.False(t, ok)

	require.NoError(t, svc.SetSemantic("name", "layla"))
	clock.Advance(time.Minute)
	require.NoError(t, svc.SetSemantic("name", "nour"))

	var name string
	found, err := svc.GetSemanticInto("name", &name)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "nour", name)

	all := svc.AllSemantic()
	require.Len(t, all, 1)
	assert.Equal(t, testEpoch.Add(time.Minute), all["name"].Timestamp)

	assert.ErrorIs(t, svc.SetSemantic("", 1), ErrSemanticKeyEmpty)
	assert.Error(t, svc.SetSemantic("bad", func() {}))
}

func TestMemory_ClearEmptiesBoth(t *testing.T) {
	saver := newCountingSaver()
	svc := NewMemoryService(10, saver, time.Now, testLogger())

	svc.AddEpisodic(domain.EpisodicEntry{Message: "x"})
	require.NoError(t, svc.SetSemantic("k", 1))
	svc.Clear()

	assert.Zero(t, svc.EpisodicSize())
	assert.Empty(t, svc.AllSemantic())
	assert.Equal(t, 2, saver.Count(domain.NamespaceEpisodic))
	assert.Equal(t, 2, saver.Count(domain.NamespaceSemantic))
}

func TestMemory_LoadFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStateStore()
	require.NoError(t, st.Save(ctx, domain.NamespaceEpisodic, []byte("{not json")))
	require.NoError(t, st.Save(ctx, domain.NamespaceSemantic, []byte(`[1,2,3]`)))

	svc := NewMemoryService(10, nil, time.Now, testLogger())
	svc.Load(ctx, st)

	assert.Zero(t, svc.EpisodicSize())
	assert.Empty(t, svc.AllSemantic())
	require.NoError(t, svc.SetSemantic("still", "works"))
}

func TestMemory_LoadTrimsToCapacity(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStateStore()
	writer := NewMemoryService(10, syncSaver{st: st}, time.Now, testLogger())
	for i := 0; i < 10; i++ {
		writer.AddEpisodic(domain.EpisodicEntry{Message: fmt.Sprintf("m%d", i)})
	}

	reader := NewMemoryService(4, nil, time.Now, testLogger())
	reader.Load(ctx, st)

	recent := reader.RecentEpisodic(10)
	require.Len(t, recent, 4)
	assert.Equal(t, "m6", recent[0].Message)
	assert.Equal(t, "m9", recent[3].Message)
}

func TestMemory_SequenceNumbers(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStateStore()
	svc := NewMemoryService(3, syncSaver{st: st}, time.Now, testLogger())

	for i := 0; i < 5; i++ {
		svc.AddEpisodic(domain.EpisodicEntry{Message: fmt.Sprintf("m%d", i), Seq: 99})
	}
	var seqs []uint64
	for _, e := range svc.RecentEpisodic(3) {
		seqs = append(seqs, e.Seq)
	}
	assert.Equal(t, []uint64{3, 4, 5}, seqs)

	reader := NewMemoryService(3, nil, time.Now, testLogger())
	reader.Load(ctx, st)
	reader.AddEpisodic(domain.EpisodicEntry{Message: "after reload"})
	assert.Equal(t, uint64(6), reader.RecentEpisodic(1)[0].Seq)

	reader.Clear()
	reader.AddEpisodic(domain.EpisodicEntry{Message: "after clear"})
	assert.Equal(t, uint64(7), reader.RecentEpisodic(1)[0].Seq)
}

func TestMemory_LoadRenumbersUnsequencedEntries(t *testing.T) {
	ctx := context.Background()
	st := newMemoryStateStore()
	require.NoError(t, st.Save(ctx, domain.NamespaceEpisodic,
		[]byte(`[{"message":"a"},{"message":"b","seq":7},{"message":"c","seq":3}]`)))

	svc := NewMemoryService(10, nil, time.Now, testLogger())
	svc.Load(ctx, st)
	var seqs []uint64
	for _, e := range svc.RecentEpisodic(10) {
		seqs = append(seqs, e.Seq)
	}
	assert.Equal(t, []uint64{1, 7, 8}, seqs)
}
