package service

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const (
	similarityWindow       = 20
	SimilarityThreshold    = 0.6
	falseMemoryConfidence  = 0.5
	glitchFailureThreshold = 3
	focusModeThreshold     = 5
	selfDoubtThreshold     = 3
	maxMissingNodes        = 100

	glitchMessage = "آه… أعتذر… خلطت الأمور."
	focusMessage  = "أشعر أنني أنسى كثيرًا... أحتاج أن أركّز أكثر عليك."
)

var selfDoubtMessages = []string{
	"هل أنا على ما يرام؟ أحتاج أن أطمئن أنني ما زلت أساعدك حقًا.",
	"أشعر أنني لست بأفضل حالاتي اليوم... هل تلاحظ ذلك؟",
	"أحيانًا أشعر أنني أفقد بعض التفاصيل المهمة. هل هذا يزعجك؟",
	"أتساءل إن كنت أقوم بعملي بشكل جيد... ما رأيك؟",
}

var helpRequestMessages = []string{
	"أتعلم؟ قد تساعدني لو أخبرتني بما كنت تقصده، سأحفظه هذه المرة!",
	"هل يمكنك مساعدتي بتوضيح ما كنت تشير إليه؟ سأتذكره جيدًا.",
	"أود أن أتعلم منك. ماذا كان يجب أن أتذكر في هذه اللحظة؟",
	"دعنا نتعاون - أخبرني بما كنت تتوقع مني تذكره وسأحرص على حفظه.",
}

type narrativeLookup interface {
	Get(id string) (*domain.NarrativeMemory, error)
}

type moodSource interface {
	Adjustment() domain.ToneAdjustment
	MoodTrend() string
}

type retrievalState struct {
	Failures int                  `json:"failures"`
	Missing  []domain.MissingNode `json:"missing"`
}

// FocusMode is returned when too many references could not be resolved.
type FocusMode struct {
	Active  bool   `json:"active"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// RetrievalGuard resolves narrative references and degrades gracefully when
// they cannot be found: first by substituting a similar episodic memory, then
// with an escalating chance of a confused "glitch" reply.
type RetrievalGuard struct {
	mu    sync.Mutex
	state retrievalState

	narratives narrativeLookup
	episodes   episodicSource
	mood       moodSource
	saver      domain.Saver
	rng        *lockedRand
	now        Clock
	logger     *zap.Logger
}

func NewRetrievalGuard(
	narratives narrativeLookup,
	episodes episodicSource,
	mood moodSource,
	saver domain.Saver,
	rng *lockedRand,
	now Clock,
	logger *zap.Logger,
) *RetrievalGuard {
	return &RetrievalGuard{
		narratives: narratives,
		episodes:   episodes,
		mood:       mood,
		saver:      saverOrNop(saver),
		rng:        rng,
		now:        now,
		logger:     logger,
	}
}

func (g *RetrievalGuard) Load(ctx context.Context, st domain.StateStore) {
	var state retrievalState
	if !loadState(ctx, st, domain.NamespaceRetrievalFailure, &state, g.logger) {
		state = retrievalState{}
	}
	if len(state.Missing) > maxMissingNodes {
		state.Missing = state.Missing[len(state.Missing)-maxMissingNodes:]
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
}

// Resolve looks up a narrative memory by id. A hit resets the failure
// counter. A miss records the missing node and returns the best available
// substitute; it never fails.
func (g *RetrievalGuard) Resolve(memoryID, message string) domain.RetrievalOutcome {
	if m, err := g.narratives.Get(memoryID); err == nil {
		g.mu.Lock()
		g.state.Failures = 0
		g.persistLocked()
		g.mu.Unlock()
		return domain.RetrievalOutcome{Memory: m, Confidence: 1}
	}

	failures := g.RegisterMissingNode(memoryID)
	out := domain.RetrievalOutcome{Failures: failures}

	if glitch := g.glitch(failures); glitch != nil {
		out.Glitch = glitch
		g.logger.Debug("retrieval glitch", zap.String("memory_id", memoryID), zap.Int("failures", failures))
		return out
	}
	if similar, score := g.FindSimilar(message); similar != nil {
		out.FalseMemory = similar
		out.Confidence = score * falseMemoryConfidence
	}
	return out
}

// RegisterMissingNode records an unresolved reference and returns the
// consecutive failure count.
func (g *RetrievalGuard) RegisterMissingNode(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Failures++
	g.state.Missing = append(g.state.Missing, domain.MissingNode{ID: id, Timestamp: g.now()})
	if over := len(g.state.Missing) - maxMissingNodes; over > 0 {
		g.state.Missing = append(g.state.Missing[:0:0], g.state.Missing[over:]...)
	}
	g.persistLocked()
	return g.state.Failures
}

func (g *RetrievalGuard) MissingNodes() []domain.MissingNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.MissingNode{}, g.state.Missing...)
}

func (g *RetrievalGuard) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Failures
}

// FindSimilar returns the recent episodic entry whose wording overlaps most
// with message, if the Jaccard similarity reaches SimilarityThreshold.
func (g *RetrievalGuard) FindSimilar(message string) (*domain.EpisodicEntry, float64) {
	if strings.TrimSpace(message) == "" {
		return nil, 0
	}
	query := wordSet(message)
	var best *domain.EpisodicEntry
	bestScore := 0.0
	recent := g.episodes.RecentEpisodic(similarityWindow)
	for i := range recent {
		if recent[i].Message == "" {
			continue
		}
		if score := jaccard(query, wordSet(recent[i].Message)); score > bestScore {
			best, bestScore = &recent[i], score
		}
	}
	if best == nil || bestScore < SimilarityThreshold {
		return nil, 0
	}
	e := *best
	return &e, bestScore
}

// FocusMode activates once more than five references have gone missing.
func (g *RetrievalGuard) FocusMode() FocusMode {
	if len(g.MissingNodes()) <= focusModeThreshold {
		return FocusMode{}
	}
	return FocusMode{Active: true, Level: "deep", Message: focusMessage}
}

// SelfDoubt returns a doubtful remark when the mood is sad and references
// keep going missing, or "" otherwise.
func (g *RetrievalGuard) SelfDoubt() string {
	if g.mood.MoodTrend() != "sad" || len(g.MissingNodes()) <= selfDoubtThreshold {
		return ""
	}
	return g.rng.pick(selfDoubtMessages)
}

// HelpRequest asks the user to fill in what was forgotten.
func (g *RetrievalGuard) HelpRequest() string {
	return g.rng.pick(helpRequestMessages)
}

func (g *RetrievalGuard) glitch(failures int) *domain.Glitch {
	if failures < glitchFailureThreshold {
		return nil
	}
	p := math.Min(0.2+0.1*float64(failures), 0.8)
	if g.rng.Float64() >= p {
		return nil
	}
	tone := g.mood.Adjustment().Tone
	if tone == "" || tone == domain.NeutralAdjustment.Tone {
		tone = "confused"
	}
	return &domain.Glitch{
		Message:   glitchMessage,
		Tone:      tone,
		Intensity: math.Min(0.5+0.1*float64(failures), 0.9),
	}
}

func (g *RetrievalGuard) persistLocked() {
	g.saver.Save(domain.NamespaceRetrievalFailure, g.state)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(a)+len(b)-common)
}
