package service

import (
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const defaultReflectInterval = 30 * time.Minute

type reflector interface {
	Reflect(triggeredBy string) *domain.Reflection
}

// ReflectionService runs periodic self-reflection.
type ReflectionService struct {
	behavior reflector
	logger   *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReflectionService(behavior reflector, logger *zap.Logger) *ReflectionService {
	return &ReflectionService{
		behavior: behavior,
		logger:   logger,
		interval: defaultReflectInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *ReflectionService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *ReflectionService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("reflection worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				if r := s.behavior.Reflect(TriggeredByPeriodic); r != nil {
					s.logger.Debug("periodic reflection", zap.String("mood_trend", r.MoodTrend))
				}
			case <-s.stopCh:
				s.logger.Info("reflection worker stopped")
				return
			}
		}
	}()
}

func (s *ReflectionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
