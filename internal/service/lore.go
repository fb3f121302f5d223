package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
)

const maxKeywords = 10

var keywordStopWords = map[string]struct{}{
	"و": {}, "أو": {}, "في": {}, "على": {}, "من": {}, "إلى": {}, "عن": {},
	"مع": {}, "هذا": {}, "هذه": {}, "ذلك": {}, "تلك": {}, "هناك": {}, "هنا": {},
}

var keywordPunctuation = strings.NewReplacer(
	".", "", ",", "", "/", "", "#", "", "!", "", "$", "", "%", "", "^", "",
	"&", "", "*", "", ";", "", ":", "", "{", "", "}", "", "=", "", "-", "",
	"_", "", "`", "", "~", "", "(", "", ")", "", "?", "",
	"،", "", "؛", "", "؟", "",
)

// ExtractKeywords lower-cases text, strips punctuation, drops stop words and
// tokens of two runes or fewer, and keeps at most ten tokens in order.
func ExtractKeywords(text string) []string {
	cleaned := keywordPunctuation.Replace(strings.ToLower(text))
	out := make([]string, 0, maxKeywords)
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if _, stop := keywordStopWords[word]; stop {
			continue
		}
		out = append(out, word)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// TimePhrase renders the whole-day distance between then and now in Arabic.
func TimePhrase(then, now time.Time) string {
	days := int(now.Sub(then).Hours() / 24)
	switch {
	case days <= 0:
		return "اليوم"
	case days == 1:
		return "بالأمس"
	case days < 7:
		return fmt.Sprintf("منذ %d أيام", days)
	case days < 30:
		return agoPhrase(days/7, "أسبوع", "أسابيع")
	case days < 365:
		return agoPhrase(days/30, "شهر", "أشهر")
	}
	return agoPhrase(days/365, "سنة", "سنوات")
}

func agoPhrase(n int, one, many string) string {
	unit := many
	if n == 1 {
		unit = one
	}
	return fmt.Sprintf("منذ %d %s", n, unit)
}

// NarrativeDescription builds the human-readable line used when a memory resurfaces.
func NarrativeDescription(t domain.EventType, emotion string, at, now time.Time) string {
	when := TimePhrase(at, now)
	switch t {
	case domain.EventEmotionalDisclosure:
		if emotion == "" {
			emotion = "مشاعرك"
		}
		return fmt.Sprintf("ذلك الوقت %s عندما فتحت قلبك وتحدثت عن %s", when, emotion)
	case domain.EventBreakthrough:
		return fmt.Sprintf("لحظة الاختراق %s عندما حققت تقدمًا كبيرًا", when)
	case domain.EventChallenge:
		return fmt.Sprintf("التحدي الذي واجهته %s", when)
	case domain.EventAchievement:
		return fmt.Sprintf("إنجازك %s الذي كنت فخورًا به", when)
	case domain.EventReflection:
		return fmt.Sprintf("تأملك العميق %s", when)
	case domain.EventForgiveness:
		return fmt.Sprintf("اللحظة %s عندما سامحت نفسك", when)
	case domain.EventGratitude:
		return fmt.Sprintf("عندما عبرت عن امتنانك %s", when)
	case domain.EventFear:
		return fmt.Sprintf("عندما تحدثت عن خوفك %s", when)
	case domain.EventJoy:
		return fmt.Sprintf("لحظة السعادة التي شاركتها %s", when)
	case domain.EventSadness:
		return fmt.Sprintf("عندما شعرت بالحزن %s", when)
	case domain.EventAnger:
		return fmt.Sprintf("عندما عبرت عن غضبك %s", when)
	case domain.EventSurprise:
		return fmt.Sprintf("لحظة المفاجأة %s", when)
	}
	return fmt.Sprintf("ذلك الوقت %s عندما تحدثنا", when)
}

var recallPromptTemplates = []string{
	"أتذكر %s. هل تود أن أذكرك بكيفية تجاوزك لذلك؟",
	"%s... هل تفكر في ذلك الآن؟",
	"يذكرني هذا بـ %s. هل ترى التشابه؟",
	"لقد مررت بهذا من قبل %s. هل تريد أن نتحدث عن ذلك؟",
}

// recallWeights is how readily each event type should resurface.
var recallWeights = map[domain.EventType]float64{
	domain.EventEmotionalDisclosure: 0.8,
	domain.EventBreakthrough:        0.7,
	domain.EventChallenge:           0.6,
	domain.EventAchievement:         0.7,
	domain.EventReflection:          0.5,
	domain.EventForgiveness:         0.6,
	domain.EventGratitude:           0.5,
	domain.EventFear:                0.7,
	domain.EventJoy:                 0.5,
	domain.EventSadness:             0.7,
	domain.EventAnger:               0.6,
	domain.EventSurprise:            0.4,
}

const defaultRecallWeight = 0.5

func recallWeight(t domain.EventType) float64 {
	if w, ok := recallWeights[t]; ok {
		return w
	}
	return defaultRecallWeight
}

type eventPattern struct {
	typ domain.EventType
	re  *regexp.Regexp
}

// Checked in order; the first pattern that matches wins.
var eventPatterns = []eventPattern{
	{domain.EventEmotionalDisclosure, regexp.MustCompile(`أشعر|مشاعر|عاطفة|قلق|خوف|حزن|سعادة|غضب`)},
	{domain.EventBreakthrough, regexp.MustCompile(`اكتشفت|فهمت|أدركت|وجدت الحل|نجحت أخيرًا|تغلبت|تجاوزت`)},
	{domain.EventChallenge, regexp.MustCompile(`صعب|تحدي|مشكلة|عقبة|صعوبة|يصعب علي|أواجه`)},
	{domain.EventAchievement, regexp.MustCompile(`نجحت|أنجزت|حققت|إنجاز|فخور|سعيد بـ`)},
	{domain.EventReflection, regexp.MustCompile(`أفكر|أتأمل|أتساءل|ربما|أعتقد أن|يبدو لي|أتصور`)},
	{domain.EventForgiveness, regexp.MustCompile(`سامحت|غفرت|تجاوزت عن|قبلت|تصالحت|تسامح`)},
	{domain.EventGratitude, regexp.MustCompile(`شكرًا|ممتن|أقدر|أشكر|شاكر|امتنان`)},
}

// DetectEventType classifies a message by keyword patterns, falling back to
// the emotion and finally to emotional disclosure.
func DetectEventType(message, emotion string) domain.EventType {
	lowered := strings.ToLower(message)
	for _, p := range eventPatterns {
		if p.re.MatchString(lowered) {
			return p.typ
		}
	}
	switch domain.NormalizeEmotion(emotion) {
	case "fear":
		return domain.EventFear
	case "joy", "happy":
		return domain.EventJoy
	case "sad", "sadness":
		return domain.EventSadness
	case "anger", "angry":
		return domain.EventAnger
	case "surprise":
		return domain.EventSurprise
	}
	return domain.EventEmotionalDisclosure
}
