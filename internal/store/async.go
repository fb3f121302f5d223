package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const defaultSaveTimeout = 5 * time.Second

// AsyncSaver turns save-after-mutate into fire-and-forget writes. Values are
// snapshotted (marshalled) on the caller's goroutine, then written in
// submission order by a single writer. A namespace with a write still queued
// is overwritten in place, so the last writer wins.
type AsyncSaver struct {
	store   domain.StateStore
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  map[string][]byte
	order    []string
	inflight bool
	closed   bool
	idle     chan struct{}

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAsyncSaver(st domain.StateStore, logger *zap.Logger) *AsyncSaver {
	idle := make(chan struct{})
	close(idle)
	s := &AsyncSaver{
		store:   st,
		logger:  logger,
		timeout: defaultSaveTimeout,
		pending: make(map[string][]byte),
		idle:    idle,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Save snapshots value and queues it for namespace.
func (s *AsyncSaver) Save(namespace string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode state", zap.String("namespace", namespace), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.write(namespace, data)
		return
	}
	if len(s.order) == 0 && !s.inflight {
		s.idle = make(chan struct{})
	}
	if _, queued := s.pending[namespace]; !queued {
		s.order = append(s.order, namespace)
	}
	s.pending[namespace] = data
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every queued write has been attempted.
func (s *AsyncSaver) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the writer. Saves issued after Close are
// written synchronously.
func (s *AsyncSaver) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		for s.next() {
		}
	})
}

func (s *AsyncSaver) run() {
	defer s.wg.Done()
	for {
		for s.next() {
		}
		select {
		case <-s.wake:
		case <-s.stopCh:
			for s.next() {
			}
			return
		}
	}
}

// next writes one queued namespace. It reports false when the queue is empty.
func (s *AsyncSaver) next() bool {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return false
	}
	ns := s.order[0]
	s.order = s.order[1:]
	data := s.pending[ns]
	delete(s.pending, ns)
	s.inflight = true
	s.mu.Unlock()

	s.write(ns, data)

	s.mu.Lock()
	s.inflight = false
	if len(s.order) == 0 {
		select {
		case <-s.idle:
		default:
			close(s.idle)
		}
	}
	s.mu.Unlock()
	return true
}

func (s *AsyncSaver) write(namespace string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, namespace, data); err != nil {
		s.logger.Warn("failed to save state", zap.String("namespace", namespace), zap.Error(err))
	}
}
