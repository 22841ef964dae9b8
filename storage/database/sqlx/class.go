package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/class"
)

const (
	classSelect = `SELECT c.id, c.name, c.description, c.teacher_id, c.enrollment_code, c.level,
		c.schedule_days, c.schedule_time, c.schedule_duration, c.max_students, c.is_active, c.created_at,
		t.name AS teacher_name, t.email AS teacher_email
		FROM class c JOIN "user" t ON t.id = c.teacher_id`

	classStudentPkey = "class_student_pkey"
)

type classRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	TeacherID        string         `db:"teacher_id"`
	EnrollmentCode   string         `db:"enrollment_code"`
	Level            string         `db:"level"`
	ScheduleDays     pq.StringArray `db:"schedule_days"`
	ScheduleTime     string         `db:"schedule_time"`
	ScheduleDuration int            `db:"schedule_duration"`
	MaxStudents      int            `db:"max_students"`
	IsActive         bool           `db:"is_active"`
	CreatedAt        time.Time      `db:"created_at"`

	// joined
	TeacherName  string `db:"teacher_name"`
	TeacherEmail string `db:"teacher_email"`
}

func toClassRow(cls class.Class) classRow {
	return classRow{
		ID:               cls.ID,
		Name:             cls.Name,
		Description:      cls.Description,
		TeacherID:        cls.Teacher.ID,
		EnrollmentCode:   cls.EnrollmentCode,
		Level:            cls.Level,
		ScheduleDays:     nonNilStrings(cls.Schedule.Days),
		ScheduleTime:     cls.Schedule.Time,
		ScheduleDuration: cls.Schedule.Duration,
		MaxStudents:      cls.MaxStudents,
		IsActive:         cls.IsActive,
		CreatedAt:        cls.CreatedAt.UTC(),
	}
}

func (row classRow) class(students []class.Member) class.Class {
	if students == nil {
		students = []class.Member{}
	}
	return class.Class{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		Teacher:        class.Member{ID: row.TeacherID, Name: row.TeacherName, Email: row.TeacherEmail},
		Students:       students,
		EnrollmentCode: row.EnrollmentCode,
		Level:          row.Level,
		Schedule: class.Schedule{
			Days:     nonNilStrings(row.ScheduleDays),
			Time:     row.ScheduleTime,
			Duration: row.ScheduleDuration,
		},
		MaxStudents: row.MaxStudents,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type memberRow struct {
	ClassID string `db:"class_id"`
	class.Member
}

type classRepository struct {
	db core.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db core.DB) class.Repository {
	return &classRepository{db: db}
}

// students returns the enrolled students of each class, in join order.
func (repo *classRepository) students(ctx context.Context, exec core.DBExecutor, classIDs ...string) (map[string][]class.Member, error) {
	members := make(map[string][]class.Member, len(classIDs))
	if len(classIDs) == 0 {
		return members, nil
	}

	q, args, err := sqlx.In(`SELECT cs.class_id, u.id, u.name, u.email, u.level, cs.joined_at
		FROM class_student cs JOIN "user" u ON u.id = cs.student_id
		WHERE cs.class_id IN (?) ORDER BY cs.joined_at, u.name`, classIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building students query")
	}

	var rows []memberRow
	if err = sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	for _, row := range rows {
		if row.JoinedAt != nil {
			joinedAt := row.JoinedAt.UTC()
			row.JoinedAt = &joinedAt
		}
		members[row.ClassID] = append(members[row.ClassID], row.Member)
	}
	return members, nil
}

func (repo *classRepository) getOne(ctx context.Context, exec core.DBExecutor, where string, arg interface{}) (class.Class, error) {
	var row classRow
	if err := sqlx.GetContext(ctx, exec, &row, classSelect+" WHERE "+where, arg); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	members, err := repo.students(ctx, exec, row.ID)
	if err != nil {
		return class.Class{}, err
	}
	return row.class(members[row.ID]), nil
}

func (repo *classRepository) queryMany(ctx context.Context, where string, arg interface{}) ([]class.Class, error) {
	var rows []classRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, classSelect+" WHERE "+where+" ORDER BY c.created_at DESC", arg); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	members, err := repo.students(ctx, repo.db, ids...)
	if err != nil {
		return nil, err
	}

	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class(members[row.ID]))
	}
	return classes, nil
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	q := `INSERT INTO class (id, name, description, teacher_id, enrollment_code, level,
			schedule_days, schedule_time, schedule_duration, max_students, is_active, created_at)
		VALUES (:id, :name, :description, :teacher_id, :enrollment_code, :level,
			:schedule_days, :schedule_time, :schedule_duration, :max_students, :is_active, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toClassRow(cls)); err != nil {
		if _, ok := constraintViolated(err, pqUniqueViolation); ok {
			return class.Class{}, class.ErrCodeExists
		}
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return repo.getOne(ctx, repo.db, "c.id = $1", cls.ID)
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	if !validID(id) {
		return class.Class{}, class.ErrNotFound
	}
	return repo.getOne(ctx, repo.db, "c.id = $1", id)
}

func (repo *classRepository) GetClassByCode(ctx context.Context, code string) (class.Class, error) {
	return repo.getOne(ctx, repo.db, "c.enrollment_code = $1", code)
}

func (repo *classRepository) QueryClassesByTeacher(ctx context.Context, teacherID string) ([]class.Class, error) {
	if !validID(teacherID) {
		return []class.Class{}, nil
	}
	return repo.queryMany(ctx, "c.teacher_id = $1", teacherID)
}

func (repo *classRepository) QueryClassesByStudent(ctx context.Context, studentID string) ([]class.Class, error) {
	if !validID(studentID) {
		return []class.Class{}, nil
	}
	return repo.queryMany(ctx, "c.id IN (SELECT class_id FROM class_student WHERE student_id = $1)", studentID)
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `UPDATE class SET name = :name, description = :description, enrollment_code = :enrollment_code,
		level = :level, schedule_days = :schedule_days, schedule_time = :schedule_time,
		schedule_duration = :schedule_duration, max_students = :max_students, is_active = :is_active
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, toClassRow(cls))
	if err != nil {
		if _, ok := constraintViolated(err, pqUniqueViolation); ok {
			return class.Class{}, class.ErrCodeExists
		}
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return repo.getOne(ctx, repo.db, "c.id = $1", cls.ID)
}

// DeleteClass relies on ON DELETE CASCADE for enrollments, assignments and submissions.
func (repo *classRepository) DeleteClass(ctx context.Context, id string) error {
	if !validID(id) {
		return class.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return class.ErrNotFound
	}
	return nil
}

// EnrollStudent locks the class row so concurrent joins cannot exceed max_students.
func (repo *classRepository) EnrollStudent(ctx context.Context, classID, studentID string) (cls class.Class, err error) {
	if !validID(classID) {
		return class.Class{}, class.ErrNotFound
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxStudents int
	if err = tx.GetContext(ctx, &maxStudents, `SELECT max_students FROM class WHERE id = $1 FOR UPDATE`, classID); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "locking class")
	}

	var enrolled bool
	if err = tx.GetContext(ctx, &enrolled,
		`SELECT EXISTS (SELECT 1 FROM class_student WHERE class_id = $1 AND student_id = $2)`, classID, studentID); err != nil {
		return class.Class{}, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return class.Class{}, class.ErrAlreadyEnrolled
	}

	var count int
	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM class_student WHERE class_id = $1`, classID); err != nil {
		return class.Class{}, errors.Wrap(err, "counting students")
	}
	if count >= maxStudents {
		return class.Class{}, class.ErrClassFull
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO class_student (class_id, student_id, joined_at) VALUES ($1, $2, $3)`,
		classID, studentID, time.Now().UTC())
	if err != nil {
		if constraint, ok := constraintViolated(err, pqUniqueViolation); ok && constraint == classStudentPkey {
			return class.Class{}, class.ErrAlreadyEnrolled
		}
		return class.Class{}, errors.Wrap(err, "inserting enrollment")
	}

	if cls, err = repo.getOne(ctx, tx, "c.id = $1", classID); err != nil {
		return class.Class{}, err
	}
	if err = tx.Commit(); err != nil {
		return class.Class{}, errors.Wrap(err, "committing enrollment")
	}
	return cls, nil
}

func (repo *classRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	if !validID(classID) || !validID(studentID) {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM class_student WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	return nil
}
