package lesson

import (
	"context"
	"errors"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("lesson plan not found")

	errPlanNotFound = core.NewNotFoundError(ErrNotFound.Error())
	errTeachersOnly = core.NewPermissionError("only teachers can manage lesson plans")
	errStudentsOnly = core.NewPermissionError("only students can complete lessons")
	errOwnProgress  = core.NewPermissionError("students can only record their own progress")
	errAccessDenied = core.NewPermissionError("access denied")

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		GetPlanByID(ctx context.Context, id string) (Plan, error)
		// QueryPlansByTeacher lists the teacher's plans, most recently updated first.
		QueryPlansByTeacher(ctx context.Context, teacherID string, filter QueryFilter) ([]Plan, error)
		UpdatePlan(ctx context.Context, p Plan) (Plan, error)
		DeletePlan(ctx context.Context, id string) error
		// MarkPlanUsed atomically increments times_used and sets last_used.
		MarkPlanUsed(ctx context.Context, id string, at time.Time) (Plan, error)
	}

	// Service manages teachers' lesson plans. Plans a user may not see are reported as not found.
	// Students see the plans of the teachers of their classes, read-only.
	Service interface {
		Create(ctx context.Context, usr user.User, np NewPlan) (Plan, error)
		List(ctx context.Context, usr user.User, filter QueryFilter) ([]Plan, error)
		Get(ctx context.Context, usr user.User, id string) (Plan, error)
		Update(ctx context.Context, usr user.User, id string, up UpdatePlan) (Plan, error)
		Delete(ctx context.Context, usr user.User, id string) error
		Use(ctx context.Context, usr user.User, id string) (Plan, error)
		// Complete records that usr, a student, finished the lesson.
		Complete(ctx context.Context, usr user.User, studentID string, nc NewCompletion) (Completion, error)
		// Progress is visible to the student, their teachers and admins.
		Progress(ctx context.Context, usr user.User, studentID string) (Progress, error)
	}

	service struct {
		repo        Repository
		completions CompletionRepository
		classSvc    class.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, completions CompletionRepository, classSvc class.Service) Service {
	return &service{repo: repo, completions: completions, classSvc: classSvc}
}

func (svc *service) Create(ctx context.Context, usr user.User, np NewPlan) (Plan, error) {
	if !usr.IsTeacher() {
		return Plan{}, errTeachersOnly
	}

	now := nowFunc()
	p := Plan{
		TeacherID:  usr.ID,
		Title:      np.Title,
		Level:      np.Level,
		Duration:   np.Duration,
		Objectives: nonNil(np.Objectives),
		Materials:  nonNil(np.Materials),
		Activities: np.Activities,
		Vocabulary: np.Vocabulary,
		Homework:   np.Homework,
		Notes:      np.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Activities == nil {
		p.Activities = []Activity{}
	}
	if p.Vocabulary == nil {
		p.Vocabulary = []VocabularyItem{}
	}
	if p.Duration == 0 {
		p.Duration = p.ActivitiesDuration()
	}

	p, err := svc.repo.CreatePlan(ctx, p)
	if err != nil {
		return Plan{}, pkgerrors.Wrap(err, "creating lesson plan")
	}
	return p, nil
}

func (svc *service) List(ctx context.Context, usr user.User, filter QueryFilter) ([]Plan, error) {
	filter.Clean()
	switch {
	case usr.IsTeacher():
		plans, err := svc.repo.QueryPlansByTeacher(ctx, usr.ID, filter)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "querying lesson plans")
		}
		if plans == nil {
			plans = []Plan{}
		}
		return plans, nil
	case usr.IsStudent():
		return svc.listForStudent(ctx, usr, filter)
	default:
		return nil, errTeachersOnly
	}
}

func (svc *service) listForStudent(ctx context.Context, student user.User, filter QueryFilter) ([]Plan, error) {
	teacherIDs, err := svc.teachersOf(ctx, student)
	if err != nil {
		return nil, err
	}
	plans := make([]Plan, 0)
	for _, id := range teacherIDs {
		ps, err := svc.repo.QueryPlansByTeacher(ctx, id, filter)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "querying lesson plans")
		}
		plans = append(plans, ps...)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].UpdatedAt.After(plans[j].UpdatedAt)
	})
	return plans, nil
}

// teachersOf lists the distinct teachers of the student's classes.
func (svc *service) teachersOf(ctx context.Context, student user.User) ([]string, error) {
	classes, err := svc.classSvc.ListForStudent(ctx, student)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing student classes")
	}
	seen := make(map[string]bool, len(classes))
	ids := make([]string, 0, len(classes))
	for _, cls := range classes {
		if !seen[cls.Teacher.ID] {
			seen[cls.Teacher.ID] = true
			ids = append(ids, cls.Teacher.ID)
		}
	}
	return ids, nil
}

func (svc *service) find(ctx context.Context, id string) (Plan, error) {
	p, err := svc.repo.GetPlanByID(ctx, id)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Plan{}, errPlanNotFound
		}
		return Plan{}, pkgerrors.Wrap(err, "finding lesson plan by ID")
	}
	return p, nil
}

// findOwned returns the plan if usr wrote it.
func (svc *service) findOwned(ctx context.Context, usr user.User, id string) (Plan, error) {
	p, err := svc.find(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if p.TeacherID != usr.ID {
		return Plan{}, errPlanNotFound
	}
	return p, nil
}

func (svc *service) Get(ctx context.Context, usr user.User, id string) (Plan, error) {
	p, err := svc.find(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if p.TeacherID == usr.ID {
		return p, nil
	}
	if !usr.IsStudent() {
		return Plan{}, errPlanNotFound
	}

	teacherIDs, err := svc.teachersOf(ctx, usr)
	if err != nil {
		return Plan{}, err
	}
	for _, tid := range teacherIDs {
		if tid == p.TeacherID {
			return p, nil
		}
	}
	return Plan{}, errPlanNotFound
}

func (svc *service) Update(ctx context.Context, usr user.User, id string, up UpdatePlan) (Plan, error) {
	p, err := svc.findOwned(ctx, usr, id)
	if err != nil {
		return Plan{}, err
	}
	if err = up.Validate(p); err != nil {
		return Plan{}, err
	}

	p.Title = up.Title
	p.Level = up.Level
	if up.Duration != nil {
		p.Duration = *up.Duration
	}
	if up.Objectives != nil {
		p.Objectives = *up.Objectives
	}
	if up.Materials != nil {
		p.Materials = *up.Materials
	}
	if up.Activities != nil {
		p.Activities = *up.Activities
	}
	if up.Vocabulary != nil {
		p.Vocabulary = *up.Vocabulary
	}
	if up.Homework != nil {
		p.Homework = *up.Homework
	}
	if up.Notes != nil {
		p.Notes = *up.Notes
	}
	p.UpdatedAt = nowFunc()

	if p, err = svc.repo.UpdatePlan(ctx, p); err != nil {
		return Plan{}, pkgerrors.Wrap(err, "updating lesson plan")
	}
	return p, nil
}

func (svc *service) Delete(ctx context.Context, usr user.User, id string) error {
	if _, err := svc.findOwned(ctx, usr, id); err != nil {
		return err
	}
	if err := svc.repo.DeletePlan(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "deleting lesson plan")
	}
	return nil
}

func (svc *service) Use(ctx context.Context, usr user.User, id string) (Plan, error) {
	if _, err := svc.findOwned(ctx, usr, id); err != nil {
		return Plan{}, err
	}
	p, err := svc.repo.MarkPlanUsed(ctx, id, nowFunc())
	if err != nil {
		return Plan{}, pkgerrors.Wrap(err, "marking lesson plan as used")
	}
	return p, nil
}

func (svc *service) Complete(ctx context.Context, usr user.User, studentID string, nc NewCompletion) (Completion, error) {
	if !usr.IsStudent() {
		return Completion{}, errStudentsOnly
	}
	if usr.ID != studentID {
		return Completion{}, errOwnProgress
	}
	p, err := svc.Get(ctx, usr, nc.LessonID)
	if err != nil {
		return Completion{}, err
	}

	c, err := svc.completions.SaveCompletion(ctx, Completion{
		StudentID:   usr.ID,
		LessonID:    p.ID,
		Score:       *nc.Score,
		CompletedAt: nowFunc(),
	})
	if err != nil {
		return Completion{}, pkgerrors.Wrap(err, "saving lesson completion")
	}
	return c, nil
}

func (svc *service) Progress(ctx context.Context, usr user.User, studentID string) (Progress, error) {
	if usr.ID != studentID && !usr.IsAdmin() {
		ok, err := svc.teaches(ctx, usr, studentID)
		if err != nil {
			return Progress{}, err
		}
		if !ok {
			return Progress{}, errAccessDenied
		}
	}

	completions, err := svc.completions.QueryCompletions(ctx, studentID)
	if err != nil {
		return Progress{}, pkgerrors.Wrap(err, "querying lesson completions")
	}
	return ProgressOf(completions), nil
}

// teaches tells whether usr teaches a class the student is enrolled in.
func (svc *service) teaches(ctx context.Context, usr user.User, studentID string) (bool, error) {
	if !usr.IsTeacher() {
		return false, nil
	}
	classes, err := svc.classSvc.ListForTeacher(ctx, usr)
	if err != nil {
		return false, pkgerrors.Wrap(err, "listing teacher classes")
	}
	for _, cls := range classes {
		if cls.HasStudent(studentID) {
			return true, nil
		}
	}
	return false, nil
}
