package lesson

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

const (
	ActivityWarmUp     = "warm-up"
	ActivityPresent    = "presentation"
	ActivityPractice   = "practice"
	ActivityProduction = "production"
	ActivityReview     = "review"
	ActivityGame       = "game"
)

var ActivityTypes = []string{ActivityWarmUp, ActivityPresent, ActivityPractice, ActivityProduction, ActivityReview, ActivityGame}

type Activity struct {
	Name        string `json:"name" validate:"required,max=200"`
	Type        string `json:"type" validate:"omitempty,activitytype"`
	Duration    int    `json:"duration" validate:"gte=0,lte=600"` // minutes
	Description string `json:"description" validate:"max=5000"`
}

// VocabularyItem is a word taught by a lesson; students review them as flashcards.
type VocabularyItem struct {
	Word          string `json:"word" validate:"required,max=200"`
	Translation   string `json:"translation" validate:"max=200"`
	Pronunciation string `json:"pronunciation" validate:"max=200"`
	Example       string `json:"example" validate:"max=1000"`
}

type Plan struct {
	ID         string           `json:"id"`
	TeacherID  string           `json:"teacher_id"`
	Title      string           `json:"title"`
	Level      string           `json:"level"`
	Duration   int              `json:"duration"` // minutes
	Objectives []string         `json:"objectives"`
	Materials  []string         `json:"materials"`
	Activities []Activity       `json:"activities"`
	Vocabulary []VocabularyItem `json:"vocabulary"`
	Homework   string           `json:"homework"`
	Notes      string           `json:"notes"`
	TimesUsed  int              `json:"times_used"`
	LastUsed   null.Time        `json:"last_used"`  // UTC
	CreatedAt  time.Time        `json:"created_at"` // UTC
	UpdatedAt  time.Time        `json:"updated_at"` // UTC
}

// ActivitiesDuration sums the planned activity durations.
func (p Plan) ActivitiesDuration() int {
	var total int
	for _, a := range p.Activities {
		total += a.Duration
	}
	return total
}

// NewPlan contains information needed to create a new lesson Plan.
type NewPlan struct {
	Title      string           `json:"title" validate:"required,max=200"`
	Level      string           `json:"level" validate:"omitempty,lessonlevel"`
	Duration   int              `json:"duration" validate:"gte=0,lte=600"`
	Objectives []string         `json:"objectives" validate:"omitempty,dive,max=500"`
	Materials  []string         `json:"materials" validate:"omitempty,dive,max=500"`
	Activities []Activity       `json:"activities" validate:"omitempty,dive"`
	Vocabulary []VocabularyItem `json:"vocabulary" validate:"omitempty,max=200,dive"`
	Homework   string           `json:"homework" validate:"max=5000"`
	Notes      string           `json:"notes" validate:"max=5000"`
}

func (np *NewPlan) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Level = core.CleanString(np.Level, true /* lower */)
	np.Objectives = core.CleanStrings(np.Objectives)
	np.Materials = core.CleanStrings(np.Materials)
	cleanActivities(np.Activities)
	cleanVocabulary(np.Vocabulary)
	np.Homework = core.CleanString(np.Homework)
	np.Notes = core.CleanString(np.Notes)
	if np.Level == "" {
		np.Level = user.LevelBeginner
	}
	return core.Validate.Struct(np)
}

// UpdatePlan replaces the provided fields of an existing Plan.
type UpdatePlan struct {
	Title      string            `json:"title" validate:"max=200"`
	Level      string            `json:"level" validate:"omitempty,lessonlevel"`
	Duration   *int              `json:"duration" validate:"omitempty,gte=0,lte=600"`
	Objectives *[]string         `json:"objectives" validate:"omitempty,dive,max=500"`
	Materials  *[]string         `json:"materials" validate:"omitempty,dive,max=500"`
	Activities *[]Activity       `json:"activities" validate:"omitempty,dive"`
	Vocabulary *[]VocabularyItem `json:"vocabulary" validate:"omitempty,max=200,dive"`
	Homework   *string           `json:"homework" validate:"omitempty,max=5000"`
	Notes      *string           `json:"notes" validate:"omitempty,max=5000"`
}

func (up *UpdatePlan) Validate(orig Plan) error {
	if title := core.CleanString(up.Title); title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}
	if level := core.CleanString(up.Level, true /* lower */); level != "" {
		up.Level = level
	} else {
		up.Level = orig.Level
	}
	if up.Objectives != nil {
		objectives := nonNil(core.CleanStrings(*up.Objectives))
		up.Objectives = &objectives
	}
	if up.Materials != nil {
		materials := nonNil(core.CleanStrings(*up.Materials))
		up.Materials = &materials
	}
	if up.Activities != nil {
		cleanActivities(*up.Activities)
	}
	if up.Vocabulary != nil {
		cleanVocabulary(*up.Vocabulary)
	}
	if up.Homework != nil {
		homework := core.CleanString(*up.Homework)
		up.Homework = &homework
	}
	if up.Notes != nil {
		notes := core.CleanString(*up.Notes)
		up.Notes = &notes
	}
	return core.Validate.Struct(up)
}

func cleanActivities(activities []Activity) {
	for i := range activities {
		activities[i].Name = core.CleanString(activities[i].Name)
		activities[i].Type = core.CleanString(activities[i].Type, true /* lower */)
		activities[i].Description = core.CleanString(activities[i].Description)
	}
}

func cleanVocabulary(items []VocabularyItem) {
	for i := range items {
		items[i].Word = core.CleanString(items[i].Word)
		items[i].Translation = core.CleanString(items[i].Translation)
		items[i].Pronunciation = core.CleanString(items[i].Pronunciation)
		items[i].Example = core.CleanString(items[i].Example)
	}
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

type QueryFilter struct {
	Level string `query:"level"`
}

func (qf *QueryFilter) Clean() {
	qf.Level = core.CleanString(qf.Level, true /* lower */)
}
