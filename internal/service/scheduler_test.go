package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSessionScheduler_CompletesAfterDuration(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSessionScheduler(time.Now, testLogger())
	var closed atomic.Int32
	s.Start(domain.ActionBreathing, "r", 10*time.Millisecond, func() { closed.Add(1) })

	require.Eventually(t, func() bool { return len(s.Active()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), closed.Load())
}

func TestSessionScheduler_StopCancelsAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSessionScheduler(time.Now, testLogger())
	var closed atomic.Int32
	for i := 0; i < 3; i++ {
		s.Start(domain.ActionMeditation, "r", time.Hour, func() { closed.Add(1) })
	}
	s.Start(domain.ActionBreathing, "r", time.Hour, nil)
	require.Len(t, s.Active(), 4)

	s.Stop()

	assert.Empty(t, s.Active())
	assert.Equal(t, int32(3), closed.Load())
	assert.False(t, s.Cancel("unknown"))
}
