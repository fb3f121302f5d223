package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/store"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests inject a fixed or stepping clock.
type Clock func() time.Time

// lockedRand serialises access to a seedable random source shared by services.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rng: rng}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// pick returns a random element, or "" for an empty slice.
func (r *lockedRand) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[r.Intn(len(options))]
}

type nopSaver struct{}

func (nopSaver) Save(string, any) {}

func saverOrNop(s domain.Saver) domain.Saver {
	if s == nil {
		return nopSaver{}
	}
	return s
}

// loadState decodes namespace into dst. Missing or corrupt state is logged
// and reported as false so callers start empty.
func loadState(ctx context.Context, st domain.StateStore, namespace string, dst any, logger *zap.Logger) bool {
	if st == nil {
		return false
	}
	data, err := st.Load(ctx, namespace)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("failed to load state, starting empty", zap.String("namespace", namespace), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("corrupt persisted state, starting empty", zap.String("namespace", namespace), zap.Error(err))
		return false
	}
	return true
}
