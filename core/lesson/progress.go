package lesson

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/trezcool/eslclass/core"
)

var ErrScoreRange = errors.New("score must be between 0 and 100")

// Completion records a student finishing a lesson.
type Completion struct {
	ID          uint64    `json:"id"`
	StudentID   string    `json:"student_id"`
	LessonID    string    `json:"lesson_id"`
	Score       int       `json:"score"`        // percent
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// NewCompletion is what a student reports when finishing a lesson.
type NewCompletion struct {
	LessonID      string `json:"lesson_id" validate:"required"`
	// CamelLessonID is the camelCase spelling sent by the web client.
	CamelLessonID string `json:"lessonId,omitempty"`
	Score         *int   `json:"score" validate:"required"`
}

func (nc *NewCompletion) Validate() error {
	nc.LessonID = core.CleanString(nc.LessonID)
	if nc.LessonID == "" {
		nc.LessonID = core.CleanString(nc.CamelLessonID)
	}
	nc.CamelLessonID = ""
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if *nc.Score < 0 || *nc.Score > 100 {
		return core.NewValidationError(ErrScoreRange, core.FieldError{Field: "score", Error: ErrScoreRange.Error()})
	}
	return nil
}

type CompletionRepository interface {
	SaveCompletion(ctx context.Context, c Completion) (Completion, error)
	// QueryCompletions lists the student's completions, oldest first.
	QueryCompletions(ctx context.Context, studentID string) ([]Completion, error)
}

// Progress summarizes the lessons a student completed.
type Progress struct {
	CompletedLessons []string     `json:"completed_lessons"` // distinct, in completion order
	Scores           []Completion `json:"scores"`
	AverageScore     float64      `json:"average_score"` // rounded to 1 decimal
}

func ProgressOf(completions []Completion) Progress {
	p := Progress{CompletedLessons: []string{}, Scores: completions}
	if p.Scores == nil {
		p.Scores = []Completion{}
	}
	if len(completions) == 0 {
		return p
	}

	seen := make(map[string]bool, len(completions))
	var total int
	for _, c := range completions {
		total += c.Score
		if !seen[c.LessonID] {
			seen[c.LessonID] = true
			p.CompletedLessons = append(p.CompletedLessons, c.LessonID)
		}
	}
	p.AverageScore = math.Round(float64(total)/float64(len(completions))*10) / 10
	return p
}
