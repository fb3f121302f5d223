package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultDistillInterval     = 15 * time.Minute
	DefaultDistillMinIntensity = 0.6

	distillWatermarkKey = "distill.watermark"
)

type DistillResult struct {
	Scanned   int    `json:"scanned"`
	Created   int    `json:"created"`
	Watermark uint64 `json:"watermark"`
}

type distillMemory interface {
	RecentEpisodic(n int) []domain.EpisodicEntry
	Capacity() int
	GetSemanticInto(key string, dst any) (bool, error)
	SetSemantic(key string, value any) error
}

type narrativeCreator interface {
	CreateMemory(in domain.NarrativeInput) (*domain.NarrativeMemory, error)
}

// DistillService periodically promotes intense user messages from the
// episodic log into narrative memories.
type DistillService struct {
	mu           sync.Mutex
	memory       distillMemory
	narratives   narrativeCreator
	minIntensity float64
	logger       *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDistillService(memory distillMemory, narratives narrativeCreator, logger *zap.Logger) *DistillService {
	return &DistillService{
		memory:       memory,
		narratives:   narratives,
		minIntensity: DefaultDistillMinIntensity,
		logger:       logger,
		interval:     defaultDistillInterval,
		stopCh:       make(chan struct{}),
	}
}

func (s *DistillService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *DistillService) SetMinIntensity(v float64) {
	s.minIntensity = v
}

func (s *DistillService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("distill worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				s.RunDistill(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("distill worker stopped")
				return
			}
		}
	}()
}

func (s *DistillService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunDistill scans episodic entries whose sequence number is above the stored
// watermark. Runs are serialised so a manual trigger never races the ticker.
func (s *DistillService) RunDistill(ctx context.Context) *DistillResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &DistillResult{}
	var watermark uint64
	if _, err := s.memory.GetSemanticInto(distillWatermarkKey, &watermark); err != nil {
		s.logger.Warn("ignoring unreadable distill watermark", zap.Error(err))
		watermark = 0
	}
	result.Watermark = watermark

	for _, e := range s.memory.RecentEpisodic(s.memory.Capacity()) {
		if ctx.Err() != nil {
			break
		}
		if e.Seq <= watermark {
			continue
		}
		result.Scanned++
		if e.Seq > result.Watermark {
			result.Watermark = e.Seq
		}
		if e.Role == domain.RoleAssistant || e.Intensity < s.minIntensity {
			continue
		}

		_, err := s.narratives.CreateMemory(domain.NarrativeInput{
			Type:      DetectEventType(e.Message, e.Emotion),
			Message:   e.Message,
			Emotion:   e.Emotion,
			Intensity: e.Intensity,
			Timestamp: e.Timestamp,
		})
		if err != nil {
			s.logger.Warn("failed to distill episode", zap.Error(err))
			continue
		}
		result.Created++
	}

	if result.Watermark > watermark {
		if err := s.memory.SetSemantic(distillWatermarkKey, result.Watermark); err != nil {
			s.logger.Error("failed to store distill watermark", zap.Error(err))
		}
	}
	if result.Created > 0 {
		s.logger.Info("distill complete",
			zap.Int("scanned", result.Scanned),
			zap.Int("created", result.Created))
	}
	return result
}
