package pronunciation

import (
	"math"
	"regexp"
	"strings"
)

const (
	ModeStrict  = "strict"  // target word i must match spoken word i
	ModeLenient = "lenient" // target word may appear anywhere in the transcript

	maxTips = 2
)

var (
	Modes = []string{ModeStrict, ModeLenient}

	punctuationRegex = regexp.MustCompile(`[^\w\s]`)
)

// Result is the outcome of comparing a transcript with the phrase to pronounce.
type Result struct {
	Accuracy int      `json:"accuracy"` // 0..100
	Feedback []string `json:"feedback"`
}

// Normalize lowers s, drops punctuation and splits it into words.
func Normalize(s string) []string {
	return strings.Fields(punctuationRegex.ReplaceAllString(strings.ToLower(s), ""))
}

// Accuracy returns the percentage of target words matched by the spoken ones.
func Accuracy(target, spoken, mode string) int {
	targetWords := Normalize(target)
	if len(targetWords) == 0 {
		return 0
	}
	spokenWords := Normalize(spoken)

	var matches int
	if mode == ModeLenient {
		said := make(map[string]struct{}, len(spokenWords))
		for _, w := range spokenWords {
			said[w] = struct{}{}
		}
		for _, w := range targetWords {
			if _, ok := said[w]; ok {
				matches++
			}
		}
	} else {
		for i, w := range targetWords {
			if i < len(spokenWords) && spokenWords[i] == w {
				matches++
			}
		}
	}
	return int(math.Round(float64(matches) / float64(len(targetWords)) * 100))
}

// FeedbackFor returns the message matching the accuracy tier.
func FeedbackFor(accuracy int) string {
	switch {
	case accuracy >= 100:
		return "Perfect pronunciation!"
	case accuracy >= 80:
		return "Great job! Minor improvements needed."
	case accuracy >= 60:
		return "Good effort! Focus on problem sounds."
	default:
		return "Keep practicing! Try speaking more slowly."
	}
}

// Score rates the transcript against the target phrase.
// Up to two exercise tips are appended to the feedback unless the pronunciation is perfect.
func Score(target, spoken, mode string, tips ...string) Result {
	accuracy := Accuracy(target, spoken, mode)
	feedback := []string{FeedbackFor(accuracy)}
	if accuracy < 100 {
		if len(tips) > maxTips {
			tips = tips[:maxTips]
		}
		feedback = append(feedback, tips...)
	}
	return Result{Accuracy: accuracy, Feedback: feedback}
}
