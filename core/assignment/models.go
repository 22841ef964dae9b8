package assignment

import (
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/class"
)

const (
	TypeEssay      = "essay"
	TypeGrammar    = "grammar"
	TypeVocabulary = "vocabulary"
	TypeListening  = "listening"
	TypeSpeaking   = "speaking"
	TypeReading    = "reading"

	DefaultPoints = 100
	MaxPoints     = 1000
)

var Types = []string{TypeEssay, TypeGrammar, TypeVocabulary, TypeListening, TypeSpeaking, TypeReading}

type Assignment struct {
	ID          string       `json:"id"`
	ClassID     string       `json:"class_id"`
	TeacherID   string       `json:"teacher_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Points      int          `json:"points"`
	DueDate     time.Time    `json:"due_date"` // UTC
	Attachments []string     `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	Submissions []Submission `json:"submissions"`
}

type Submission struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment_id"`
	Student      class.Member `json:"student"`
	Content      string       `json:"content"`
	Attachments  []string     `json:"attachments"`
	SubmittedAt  time.Time    `json:"submitted_at"` // UTC
	IsLate       bool         `json:"is_late"`
	Grade        null.Int     `json:"grade"`
	Feedback     string       `json:"feedback"`
	GradedAt     null.Time    `json:"graded_at"`
}

func (s Submission) IsGraded() bool {
	return s.Grade.Valid
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=10000"`
	Type        string     `json:"type" validate:"required,assignmenttype"`
	Points      int        `json:"points" validate:"gte=0,lte=1000"`
	DueDate     *time.Time `json:"due_date" validate:"required"`
	Attachments []string   `json:"attachments" validate:"omitempty,dive,url"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Type = core.CleanString(na.Type, true /* lower */)
	na.Attachments = core.CleanStrings(na.Attachments)
	if na.Points == 0 {
		na.Points = DefaultPoints
	}
	return core.Validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title       string     `json:"title" validate:"max=200"`
	Description string     `json:"description" validate:"max=10000"`
	Type        string     `json:"type" validate:"omitempty,assignmenttype"`
	Points      int        `json:"points" validate:"gte=0,lte=1000"`
	DueDate     *time.Time `json:"due_date"`
	Attachments *[]string  `json:"attachments" validate:"omitempty,dive,url"`
}

func (ua *UpdateAssignment) Validate(orig Assignment) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if desc := core.CleanString(ua.Description); desc != "" {
		ua.Description = desc
	} else {
		ua.Description = orig.Description
	}
	if typ := core.CleanString(ua.Type, true /* lower */); typ != "" {
		ua.Type = typ
	} else {
		ua.Type = orig.Type
	}
	if ua.Points == 0 {
		ua.Points = orig.Points
	}
	if ua.Attachments != nil {
		attachments := core.CleanStrings(*ua.Attachments)
		if attachments == nil {
			attachments = []string{}
		}
		ua.Attachments = &attachments
	}
	return core.Validate.Struct(ua)
}

// NewSubmission is what a student hands in; resubmitting replaces it until graded.
type NewSubmission struct {
	Content     string   `json:"content" validate:"max=50000"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,url"`
}

func (ns *NewSubmission) Validate() error {
	ns.Content = core.CleanString(ns.Content)
	ns.Attachments = core.CleanStrings(ns.Attachments)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if ns.Content == "" && len(ns.Attachments) == 0 {
		return core.NewValidationError(ErrEmptySubmission, core.FieldError{Field: "content", Error: ErrEmptySubmission.Error()})
	}
	return nil
}

type Grade struct {
	Grade    *int   `json:"grade" validate:"required"`
	Feedback string `json:"feedback" validate:"max=10000"`
}

// Validate checks the grade against the assignment's points.
func (g *Grade) Validate(points int) error {
	g.Feedback = core.CleanString(g.Feedback)
	if err := core.Validate.Struct(g); err != nil {
		return err
	}
	if *g.Grade < 0 || *g.Grade > points {
		msg := "grade must be between 0 and " + strconv.Itoa(points)
		return core.NewValidationError(ErrGradeOutOfRange, core.FieldError{Field: "grade", Error: msg})
	}
	return nil
}
