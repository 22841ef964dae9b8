package pronunciation

import (
	"math"
	"time"

	"github.com/trezcool/eslclass/core"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Attempt struct {
	ID         uint64    `json:"id"`
	StudentID  string    `json:"student_id"`
	Phrase     string    `json:"phrase"`
	Transcript string    `json:"transcript"`
	Mode       string    `json:"mode"`
	Accuracy   int       `json:"accuracy"`
	Feedback   []string  `json:"feedback"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// ScoreRequest is a transcript to rate against a phrase.
type ScoreRequest struct {
	Phrase     string   `json:"phrase" validate:"required,max=1000"`
	Transcript string   `json:"transcript" validate:"max=5000"`
	Mode       string   `json:"mode" validate:"omitempty,practicemode"`
	Tips       []string `json:"tips" validate:"omitempty,max=10,dive,max=500"`
}

func (sr *ScoreRequest) Validate() error {
	sr.Phrase = core.CleanString(sr.Phrase)
	sr.Transcript = core.CleanString(sr.Transcript)
	sr.Mode = core.CleanString(sr.Mode, true /* lower */)
	sr.Tips = core.CleanStrings(sr.Tips)
	if sr.Mode == "" {
		sr.Mode = ModeStrict
	}
	return core.Validate.Struct(sr)
}

// Progress summarizes a student's practice history.
type Progress struct {
	Attempts        int     `json:"attempts"`
	OverallAccuracy float64 `json:"overall_accuracy"` // mean, rounded to 1 decimal
	BestAccuracy    int     `json:"best_accuracy"`
	PerfectCount    int     `json:"perfect_count"`
}

func ProgressOf(attempts []Attempt) Progress {
	var p Progress
	if len(attempts) == 0 {
		return p
	}
	var total int
	for _, a := range attempts {
		total += a.Accuracy
		if a.Accuracy > p.BestAccuracy {
			p.BestAccuracy = a.Accuracy
		}
		if a.Accuracy == 100 {
			p.PerfectCount++
		}
	}
	p.Attempts = len(attempts)
	p.OverallAccuracy = math.Round(float64(total)/float64(len(attempts))*10) / 10
	return p
}
