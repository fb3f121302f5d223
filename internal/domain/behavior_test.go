package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogram_DominantPrefersFirstSeen(t *testing.T) {
	h := NewHistogram()
	for _, label := range []string{"sad", "happy", "happy", "sad"} {
		h.Inc(label)
	}
	label, count := h.Dominant()
	assert.Equal(t, "sad", label)
	assert.Equal(t, 2, count)
}

func TestHistogram_Repair(t *testing.T) {
	tests := []struct {
		name      string
		h         Histogram
		wantOrder []string
		wantTop   string
	}{
		{
			name:      "counts without order",
			h:         Histogram{Counts: map[string]int{"sad": 2, "angry": 2, "happy": 1}},
			wantOrder: []string{"angry", "happy", "sad"},
			wantTop:   "angry",
		},
		{
			name:      "partial order keeps its prefix",
			h:         Histogram{Counts: map[string]int{"sad": 3, "calm": 1, "angry": 3}, Order: []string{"sad"}},
			wantOrder: []string{"sad", "angry", "calm"},
			wantTop:   "sad",
		},
		{
			name:      "stale and duplicate labels dropped",
			h:         Histogram{Counts: map[string]int{"happy": 1}, Order: []string{"gone", "happy", "happy"}},
			wantOrder: []string{"happy"},
			wantTop:   "happy",
		},
		{
			name:      "nil counts",
			h:         Histogram{Order: []string{"sad"}},
			wantOrder: []string{},
			wantTop:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.h
			h.Repair()
			assert.Equal(t, tt.wantOrder, h.Order)
			top, _ := h.Dominant()
			assert.Equal(t, tt.wantTop, top)
		})
	}
}
