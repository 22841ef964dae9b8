package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/lesson"
)

const lessonColumns = `id, teacher_id, title, level, duration, objectives, materials, activities, vocabulary,
	homework, notes, times_used, last_used, created_at, updated_at`

type lessonRow struct {
	ID         string         `db:"id"`
	TeacherID  string         `db:"teacher_id"`
	Title      string         `db:"title"`
	Level      string         `db:"level"`
	Duration   int            `db:"duration"`
	Objectives pq.StringArray `db:"objectives"`
	Materials  pq.StringArray `db:"materials"`
	Activities null.JSON      `db:"activities"`
	Vocabulary null.JSON      `db:"vocabulary"`
	Homework   string         `db:"homework"`
	Notes      string         `db:"notes"`
	TimesUsed  int            `db:"times_used"`
	LastUsed   null.Time      `db:"last_used"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func toLessonRow(p lesson.Plan) (lessonRow, error) {
	activities := p.Activities
	if activities == nil {
		activities = []lesson.Activity{}
	}
	data, err := json.Marshal(activities)
	if err != nil {
		return lessonRow{}, errors.Wrap(err, "encoding activities")
	}
	vocabulary := p.Vocabulary
	if vocabulary == nil {
		vocabulary = []lesson.VocabularyItem{}
	}
	vocab, err := json.Marshal(vocabulary)
	if err != nil {
		return lessonRow{}, errors.Wrap(err, "encoding vocabulary")
	}
	return lessonRow{
		ID:         p.ID,
		TeacherID:  p.TeacherID,
		Title:      p.Title,
		Level:      p.Level,
		Duration:   p.Duration,
		Objectives: nonNilStrings(p.Objectives),
		Materials:  nonNilStrings(p.Materials),
		Activities: null.JSONFrom(data),
		Vocabulary: null.JSONFrom(vocab),
		Homework:   p.Homework,
		Notes:      p.Notes,
		TimesUsed:  p.TimesUsed,
		LastUsed:   p.LastUsed,
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
	}, nil
}

func (row lessonRow) plan() (lesson.Plan, error) {
	activities := []lesson.Activity{}
	if row.Activities.Valid {
		if err := row.Activities.Unmarshal(&activities); err != nil {
			return lesson.Plan{}, errors.Wrap(err, "decoding activities")
		}
	}
	vocabulary := []lesson.VocabularyItem{}
	if row.Vocabulary.Valid {
		if err := row.Vocabulary.Unmarshal(&vocabulary); err != nil {
			return lesson.Plan{}, errors.Wrap(err, "decoding vocabulary")
		}
	}
	lastUsed := row.LastUsed
	if lastUsed.Valid {
		lastUsed.Time = lastUsed.Time.UTC()
	}
	return lesson.Plan{
		ID:         row.ID,
		TeacherID:  row.TeacherID,
		Title:      row.Title,
		Level:      row.Level,
		Duration:   row.Duration,
		Objectives: nonNilStrings(row.Objectives),
		Materials:  nonNilStrings(row.Materials),
		Activities: activities,
		Vocabulary: vocabulary,
		Homework:   row.Homework,
		Notes:      row.Notes,
		TimesUsed:  row.TimesUsed,
		LastUsed:   lastUsed,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}, nil
}

type lessonRepository struct {
	exec core.DBExecutor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) lesson.Repository {
	return &lessonRepository{exec: exec}
}

func (repo *lessonRepository) CreatePlan(ctx context.Context, p lesson.Plan) (lesson.Plan, error) {
	p.ID = uuid.New().String()
	row, err := toLessonRow(p)
	if err != nil {
		return lesson.Plan{}, err
	}
	q := `INSERT INTO lesson_plan (` + lessonColumns + `)
		VALUES (:id, :teacher_id, :title, :level, :duration, :objectives, :materials, :activities, :vocabulary,
			:homework, :notes, :times_used, :last_used, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		return lesson.Plan{}, errors.Wrap(err, "inserting lesson plan")
	}
	return p, nil
}

func (repo *lessonRepository) GetPlanByID(ctx context.Context, id string) (lesson.Plan, error) {
	if !validID(id) {
		return lesson.Plan{}, lesson.ErrNotFound
	}
	var row lessonRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+lessonColumns+` FROM lesson_plan WHERE id = $1`, id); err != nil {
		return lesson.Plan{}, trapNoRowsErr(err, lesson.ErrNotFound, "finding lesson plan")
	}
	return row.plan()
}

func (repo *lessonRepository) QueryPlansByTeacher(ctx context.Context, teacherID string, filter lesson.QueryFilter) ([]lesson.Plan, error) {
	if !validID(teacherID) {
		return []lesson.Plan{}, nil
	}

	q := `SELECT ` + lessonColumns + ` FROM lesson_plan WHERE teacher_id = $1`
	args := []interface{}{teacherID}
	if filter.Level != "" {
		q += ` AND level = $2`
		args = append(args, filter.Level)
	}
	q += ` ORDER BY updated_at DESC`

	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lesson plans")
	}
	plans := make([]lesson.Plan, 0, len(rows))
	for _, row := range rows {
		p, err := row.plan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (repo *lessonRepository) UpdatePlan(ctx context.Context, p lesson.Plan) (lesson.Plan, error) {
	row, err := toLessonRow(p)
	if err != nil {
		return lesson.Plan{}, err
	}
	q := `UPDATE lesson_plan SET title = :title, level = :level, duration = :duration, objectives = :objectives,
		materials = :materials, activities = :activities, vocabulary = :vocabulary, homework = :homework, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, row)
	if err != nil {
		return lesson.Plan{}, errors.Wrap(err, "updating lesson plan")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lesson.Plan{}, lesson.ErrNotFound
	}
	return repo.GetPlanByID(ctx, p.ID)
}

func (repo *lessonRepository) DeletePlan(ctx context.Context, id string) error {
	if !validID(id) {
		return lesson.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM lesson_plan WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson plan")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lesson.ErrNotFound
	}
	return nil
}

func (repo *lessonRepository) MarkPlanUsed(ctx context.Context, id string, at time.Time) (lesson.Plan, error) {
	if !validID(id) {
		return lesson.Plan{}, lesson.ErrNotFound
	}
	var row lessonRow
	q := `UPDATE lesson_plan SET times_used = times_used + 1, last_used = $2 WHERE id = $1 RETURNING ` + lessonColumns
	if err := sqlx.GetContext(ctx, repo.exec, &row, q, id, at.UTC()); err != nil {
		return lesson.Plan{}, trapNoRowsErr(err, lesson.ErrNotFound, "marking lesson plan as used")
	}
	return row.plan()
}
