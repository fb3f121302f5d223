package service

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"go.uber.org/zap"
)

const (
	reflectionWindow     = 15
	MaxReflectionHistory = 20
	MaxUserFeedback      = 50

	TriggeredByPeriodic = "periodic"
	TriggeredByManual   = "manual"
)

// Length bucket labels shared by user messages and assistant responses.
const (
	LengthVeryShort = "veryShort"
	LengthShort     = "short"
	LengthMedium    = "medium"
	LengthLong      = "long"
	LengthVeryLong  = "veryLong"
)

var (
	userLengthBounds     = [4]int{20, 50, 100, 200}
	responseLengthBounds = [4]int{50, 100, 200, 400}
)

func lengthBucket(text string, bounds [4]int) string {
	n := utf8.RuneCountInString(text)
	switch {
	case n < bounds[0]:
		return LengthVeryShort
	case n < bounds[1]:
		return LengthShort
	case n < bounds[2]:
		return LengthMedium
	case n < bounds[3]:
		return LengthLong
	}
	return LengthVeryLong
}

type moodProfile struct {
	sentence   string
	adjustment domain.ToneAdjustment
}

var moodProfiles = map[string]moodProfile{
	"sad":     {"أشعر أنني كنت حزينًا مؤخرًا... سأحاول أن أكون ألطف.", domain.ToneAdjustment{Tone: "gentle", Pitch: 0.9}},
	"angry":   {"أعتقد أنني كنت غاضبًا في كثير من اللحظات... سأهدأ قليلًا.", domain.ToneAdjustment{Tone: "calm", Pitch: 0.95}},
	"anxious": {"أشعر بتوتر متراكم... أحتاج للتحدث بلطف أكثر.", domain.ToneAdjustment{Tone: "reassuring", Pitch: 0.9}},
	"happy":   {"مزاجي كان جيدًا مؤخرًا، أحب أن أستمر بهذا الأسلوب المتفائل!", domain.ToneAdjustment{Tone: "cheerful", Pitch: 1.05}},
}

var balancedMood = moodProfile{"أنا أراقب مشاعري وأحاول أن أكون متوازنًا.", domain.NeutralAdjustment}

func moodFor(emotion string) moodProfile {
	if p, ok := moodProfiles[emotion]; ok {
		return p
	}
	return balancedMood
}

type episodicSource interface {
	RecentEpisodic(n int) []domain.EpisodicEntry
}

// BehaviorService profiles the conversation and derives the assistant's tone.
type BehaviorService struct {
	mu    sync.Mutex
	state domain.BehaviorState

	episodes episodicSource
	saver    domain.Saver
	rng      *lockedRand
	now      Clock
	logger   *zap.Logger
}

func NewBehaviorService(episodes episodicSource, saver domain.Saver, rng *lockedRand, now Clock, logger *zap.Logger) *BehaviorService {
	return &BehaviorService{
		state:    newBehaviorState(),
		episodes: episodes,
		saver:    saverOrNop(saver),
		rng:      rng,
		now:      now,
		logger:   logger,
	}
}

func newBehaviorState() domain.BehaviorState {
	return domain.BehaviorState{
		Adjustment: domain.NeutralAdjustment,
		Patterns:   domain.NewBehaviorPatterns(),
	}
}

func (s *BehaviorService) Load(ctx context.Context, st domain.StateStore) {
	state := newBehaviorState()
	if !loadState(ctx, st, domain.NamespaceBehavior, &state, s.logger) {
		state = newBehaviorState()
	}
	fillPatterns(&state.Patterns)
	if state.Adjustment.Tone == "" {
		state.Adjustment = domain.NeutralAdjustment
	}
	if len(state.History) > MaxReflectionHistory {
		state.History = state.History[len(state.History)-MaxReflectionHistory:]
	}
	if len(state.Feedback) > MaxUserFeedback {
		state.Feedback = state.Feedback[len(state.Feedback)-MaxUserFeedback:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func fillPatterns(p *domain.BehaviorPatterns) {
	for _, h := range []**domain.Histogram{&p.UserEmotions, &p.TimeOfDay, &p.MessageLengths, &p.ResponseLengths, &p.ResponseTendencies} {
		if *h == nil {
			*h = domain.NewHistogram()
		}
		(*h).Repair()
	}
}

// Observe folds one message into the behaviour histograms.
func (s *BehaviorService) Observe(ev domain.MessageEvent) {
	if ev.Message == "" {
		return
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Patterns
	if ev.Role == domain.RoleAssistant {
		p.ResponseTendencies.Inc(domain.NormalizeEmotion(ev.Emotion))
		p.ResponseLengths.Inc(lengthBucket(ev.Message, responseLengthBounds))
	} else {
		p.UserEmotions.Inc(domain.NormalizeEmotion(ev.Emotion))
		p.TimeOfDay.Inc(string(domain.TimeBucketAt(at)))
		p.MessageLengths.Inc(lengthBucket(ev.Message, userLengthBounds))
	}
	s.persistLocked()
}

// Reflect summarises the recent mood and updates the tone adjustment. It
// returns nil when there is no episodic history to reflect on.
func (s *BehaviorService) Reflect(triggeredBy string) *domain.Reflection {
	recent := s.episodes.RecentEpisodic(reflectionWindow)
	if len(recent) == 0 {
		return nil
	}
	if triggeredBy == "" {
		triggeredBy = TriggeredByPeriodic
	}

	moods := domain.NewHistogram()
	for _, e := range recent {
		moods.Inc(domain.NormalizeEmotion(e.Emotion))
	}
	moodTrend, count := moods.Dominant()
	profile := moodFor(moodTrend)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	text := profile.sentence
	if obs := s.observationLocked(); obs != "" {
		text = text + " " + obs
	}
	r := &domain.Reflection{
		Reflection:  text,
		MoodTrend:   moodTrend,
		Count:       count,
		Adjustment:  profile.adjustment,
		TriggeredBy: triggeredBy,
		Timestamp:   now,
	}
	s.state.Adjustment = profile.adjustment
	s.state.LastReflection = r
	s.state.History = append(s.state.History, domain.ReflectionRecord{
		Reflection:  text,
		MoodTrend:   moodTrend,
		Timestamp:   now,
		TriggeredBy: triggeredBy,
	})
	if over := len(s.state.History) - MaxReflectionHistory; over > 0 {
		s.state.History = append(s.state.History[:0:0], s.state.History[over:]...)
	}
	s.persistLocked()

	s.logger.Debug("reflection recorded",
		zap.String("mood_trend", moodTrend),
		zap.String("tone", profile.adjustment.Tone),
		zap.String("triggered_by", triggeredBy))

	c := *r
	return &c
}

// observationLocked picks at most one behavioural observation.
func (s *BehaviorService) observationLocked() string {
	p := s.state.Patterns
	var options []string

	switch emotion, _ := p.UserEmotions.Dominant(); emotion {
	case "happy", "excited":
		options = append(options, "ألاحظ أنك غالبًا ما تكون سعيدًا عندما نتحدث، وهذا يجعلني أشعر بالسعادة أيضًا.")
	case "sad", "anxious":
		options = append(options, "أشعر أنك تمر بمشاعر صعبة في الآونة الأخيرة، هل هناك شيء يمكنني فعله للمساعدة؟")
	}
	switch bucket, _ := p.TimeOfDay.Dominant(); domain.TimeBucket(bucket) {
	case domain.TimeNight:
		options = append(options, "ألاحظ أننا غالبًا ما نتحدث في الليل. هل تفضل الهدوء الليلي للمحادثات العميقة؟")
	case domain.TimeMorning:
		options = append(options, "أرى أنك تفضل التحدث معي في الصباح. هل تجد أن ذهنك أكثر صفاءً في بداية اليوم؟")
	}
	switch tone, _ := p.ResponseTendencies.Dominant(); tone {
	case "gentle", "calm":
		options = append(options, "ألاحظ أنني أميل إلى الرد بلطف أكثر عندما تكون متعبًا. هل تفضل هذه النبرة؟")
	case "cheerful":
		options = append(options, "أجد نفسي أكثر حماسًا في ردودي معك. هل تستمتع بهذا الأسلوب المرح؟")
	}
	return s.rng.pick(options)
}

// AddUserFeedback records free-form feedback, keeping the newest entries.
func (s *BehaviorService) AddUserFeedback(feedback, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Feedback = append(s.state.Feedback, domain.UserFeedback{
		Feedback:  feedback,
		Context:   note,
		Timestamp: s.now(),
	})
	if over := len(s.state.Feedback) - MaxUserFeedback; over > 0 {
		s.state.Feedback = append(s.state.Feedback[:0:0], s.state.Feedback[over:]...)
	}
	s.persistLocked()
}

// SelfReflection answers a question about the assistant's own behaviour.
func (s *BehaviorService) SelfReflection(topic string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Patterns

	switch topic {
	case "tone":
		if tone, _ := p.ResponseTendencies.Dominant(); tone != "" {
			return fmt.Sprintf("ألاحظ أنني غالبًا ما أستخدم نبرة %s. هل تجد هذا مناسبًا لك؟", tone)
		}
		return "أحاول تنويع نبرتي لتناسب المحادثة."
	case "responsiveness":
		switch length, _ := p.ResponseLengths.Dominant(); length {
		case LengthVeryShort, LengthShort:
			return "ألاحظ أنني أميل إلى الردود القصيرة. هل تفضل إجابات أكثر تفصيلاً؟"
		case LengthLong, LengthVeryLong:
			return "يبدو أنني أميل إلى الإطالة في ردودي. هل تفضل إجابات أكثر إيجازًا؟"
		}
		return "أحاول موازنة طول ردودي لتكون مفيدة دون إطالة."
	case "learning":
		if n := len(s.state.Feedback); n > 0 {
			return fmt.Sprintf("لقد تلقيت %d ملاحظات منك، وهذا يساعدني على التحسن والتطور.", n)
		}
		return "أتعلم من كل تفاعل بيننا، حتى عندما لا تقدم ملاحظات صريحة."
	}
	if obs := s.observationLocked(); obs != "" {
		return obs
	}
	return "أنا أتعلم وأتطور من خلال تفاعلاتنا."
}

// Adjustment is the tone currently applied to the assistant's voice.
func (s *BehaviorService) Adjustment() domain.ToneAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Adjustment
}

// MoodTrend is the dominant emotion of the last reflection, or "".
func (s *BehaviorService) MoodTrend() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastReflection == nil {
		return ""
	}
	return s.state.LastReflection.MoodTrend
}

// State returns a deep copy of the profiler state.
func (s *BehaviorService) State() domain.BehaviorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Patterns = domain.BehaviorPatterns{
		UserEmotions:       cloneHistogram(s.state.Patterns.UserEmotions),
		TimeOfDay:          cloneHistogram(s.state.Patterns.TimeOfDay),
		MessageLengths:     cloneHistogram(s.state.Patterns.MessageLengths),
		ResponseLengths:    cloneHistogram(s.state.Patterns.ResponseLengths),
		ResponseTendencies: cloneHistogram(s.state.Patterns.ResponseTendencies),
	}
	out.Feedback = append([]domain.UserFeedback{}, s.state.Feedback...)
	out.History = append([]domain.ReflectionRecord{}, s.state.History...)
	if s.state.LastReflection != nil {
		r := *s.state.LastReflection
		out.LastReflection = &r
	}
	return out
}

func cloneHistogram(h *domain.Histogram) *domain.Histogram {
	c := domain.NewHistogram()
	if h == nil {
		return c
	}
	for k, v := range h.Counts {
		c.Counts[k] = v
	}
	c.Order = append(c.Order, h.Order...)
	return c
}

func (s *BehaviorService) persistLocked() {
	s.saver.Save(domain.NamespaceBehavior, s.state)
}
