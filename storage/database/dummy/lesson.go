package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func copyPlan(p lesson.Plan) lesson.Plan {
	p.Objectives = append([]string{}, p.Objectives...)
	p.Materials = append([]string{}, p.Materials...)
	p.Activities = append([]lesson.Activity{}, p.Activities...)
	p.Vocabulary = append([]lesson.VocabularyItem{}, p.Vocabulary...)
	return p
}

func (repo *lessonRepository) CreatePlan(_ context.Context, p lesson.Plan) (lesson.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	stored := copyPlan(p)
	repo.db.lessons[p.ID] = &stored
	return copyPlan(p), nil
}

func (repo *lessonRepository) GetPlanByID(_ context.Context, id string) (lesson.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.lessons[id]; ok {
		return copyPlan(*p), nil
	}
	return lesson.Plan{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryPlansByTeacher(_ context.Context, teacherID string, filter lesson.QueryFilter) ([]lesson.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	plans := make([]lesson.Plan, 0)
	for _, p := range repo.db.lessons {
		if p.TeacherID == teacherID && (filter.Level == "" || p.Level == filter.Level) {
			plans = append(plans, copyPlan(*p))
		}
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].UpdatedAt.After(plans[j].UpdatedAt)
	})
	return plans, nil
}

func (repo *lessonRepository) UpdatePlan(_ context.Context, p lesson.Plan) (lesson.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.lessons[p.ID]
	if !ok {
		return lesson.Plan{}, lesson.ErrNotFound
	}
	p.TeacherID, p.CreatedAt = orig.TeacherID, orig.CreatedAt
	p.TimesUsed, p.LastUsed = orig.TimesUsed, orig.LastUsed
	stored := copyPlan(p)
	repo.db.lessons[p.ID] = &stored
	return copyPlan(p), nil
}

func (repo *lessonRepository) DeletePlan(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return lesson.ErrNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}

func (repo *lessonRepository) MarkPlanUsed(_ context.Context, id string, at time.Time) (lesson.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.lessons[id]
	if !ok {
		return lesson.Plan{}, lesson.ErrNotFound
	}
	p.TimesUsed++
	p.LastUsed = null.TimeFrom(at)
	return copyPlan(*p), nil
}
