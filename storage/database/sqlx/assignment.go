package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
)

const (
	assignmentColumns = `id, class_id, teacher_id, title, description, type, points, due_date, attachments, created_at`

	submissionSelect = `SELECT s.id, s.assignment_id, s.student_id, s.content, s.attachments, s.submitted_at,
		s.is_late, s.grade, s.feedback, s.graded_at, u.name AS student_name, u.email AS student_email
		FROM submission s JOIN "user" u ON u.id = s.student_id`
)

type assignmentRow struct {
	ID          string         `db:"id"`
	ClassID     string         `db:"class_id"`
	TeacherID   string         `db:"teacher_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Type        string         `db:"type"`
	Points      int            `db:"points"`
	DueDate     time.Time      `db:"due_date"`
	Attachments pq.StringArray `db:"attachments"`
	CreatedAt   time.Time      `db:"created_at"`
}

func toAssignmentRow(asg assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:          asg.ID,
		ClassID:     asg.ClassID,
		TeacherID:   asg.TeacherID,
		Title:       asg.Title,
		Description: asg.Description,
		Type:        asg.Type,
		Points:      asg.Points,
		DueDate:     asg.DueDate.UTC(),
		Attachments: nonNilStrings(asg.Attachments),
		CreatedAt:   asg.CreatedAt.UTC(),
	}
}

func (row assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		ClassID:     row.ClassID,
		TeacherID:   row.TeacherID,
		Title:       row.Title,
		Description: row.Description,
		Type:        row.Type,
		Points:      row.Points,
		DueDate:     row.DueDate.UTC(),
		Attachments: nonNilStrings(row.Attachments),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type submissionRow struct {
	ID           string         `db:"id"`
	AssignmentID string         `db:"assignment_id"`
	StudentID    string         `db:"student_id"`
	Content      string         `db:"content"`
	Attachments  pq.StringArray `db:"attachments"`
	SubmittedAt  time.Time      `db:"submitted_at"`
	IsLate       bool           `db:"is_late"`
	Grade        null.Int       `db:"grade"`
	Feedback     string         `db:"feedback"`
	GradedAt     null.Time      `db:"graded_at"`

	// joined
	StudentName  string `db:"student_name"`
	StudentEmail string `db:"student_email"`
}

func toSubmissionRow(sub assignment.Submission) submissionRow {
	return submissionRow{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		StudentID:    sub.Student.ID,
		Content:      sub.Content,
		Attachments:  nonNilStrings(sub.Attachments),
		SubmittedAt:  sub.SubmittedAt.UTC(),
		IsLate:       sub.IsLate,
		Grade:        sub.Grade,
		Feedback:     sub.Feedback,
		GradedAt:     sub.GradedAt,
	}
}

func (row submissionRow) submission() assignment.Submission {
	gradedAt := row.GradedAt
	if gradedAt.Valid {
		gradedAt.Time = gradedAt.Time.UTC()
	}
	return assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		Student:      class.Member{ID: row.StudentID, Name: row.StudentName, Email: row.StudentEmail},
		Content:      row.Content,
		Attachments:  nonNilStrings(row.Attachments),
		SubmittedAt:  row.SubmittedAt.UTC(),
		IsLate:       row.IsLate,
		Grade:        row.Grade,
		Feedback:     row.Feedback,
		GradedAt:     gradedAt,
	}
}

type assignmentRepository struct {
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) assignment.Repository {
	return &assignmentRepository{exec: exec}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.New().String()
	q := `INSERT INTO assignment (` + assignmentColumns + `)
		VALUES (:id, :class_id, :teacher_id, :title, :description, :type, :points, :due_date, :attachments, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toAssignmentRow(asg)); err != nil {
		if _, ok := constraintViolated(err, pqForeignKeyViolation); ok {
			return assignment.Assignment{}, class.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	if !validID(id) {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+assignmentColumns+` FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.assignment(), nil
}

func (repo *assignmentRepository) QueryAssignmentsByClass(ctx context.Context, classID string) ([]assignment.Assignment, error) {
	if !validID(classID) {
		return []assignment.Assignment{}, nil
	}
	var rows []assignmentRow
	q := `SELECT ` + assignmentColumns + ` FROM assignment WHERE class_id = $1 ORDER BY due_date, created_at`
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asgs = append(asgs, row.assignment())
	}
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	var row assignmentRow
	q := `UPDATE assignment SET title = :title, description = :description, type = :type, points = :points,
		due_date = :due_date, attachments = :attachments
		WHERE id = :id RETURNING ` + assignmentColumns
	stmt, err := sqlx.NamedQueryContext(ctx, repo.exec, q, toAssignmentRow(asg))
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	defer func() { _ = stmt.Close() }()
	if !stmt.Next() {
		if err = stmt.Err(); err != nil {
			return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
		}
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if err = stmt.StructScan(&row); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "scanning assignment")
	}
	return row.assignment(), nil
}

// DeleteAssignment relies on ON DELETE CASCADE for submissions.
func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if !validID(id) {
		return assignment.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

// SaveSubmission upserts in a single statement: the conflict update only applies while ungraded.
func (repo *assignmentRepository) SaveSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	sub.ID = uuid.New().String()
	q := `INSERT INTO submission (id, assignment_id, student_id, content, attachments, submitted_at, is_late)
		VALUES (:id, :assignment_id, :student_id, :content, :attachments, :submitted_at, :is_late)
		ON CONFLICT (assignment_id, student_id) DO UPDATE SET
			content = EXCLUDED.content, attachments = EXCLUDED.attachments,
			submitted_at = EXCLUDED.submitted_at, is_late = EXCLUDED.is_late
		WHERE submission.grade IS NULL
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, repo.exec, q, toSubmissionRow(sub))
	if err != nil {
		if _, ok := constraintViolated(err, pqForeignKeyViolation); ok {
			return assignment.Submission{}, assignment.ErrNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "saving submission")
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return assignment.Submission{}, errors.Wrap(err, "saving submission")
		}
		return assignment.Submission{}, assignment.ErrAlreadyGraded
	}
	var id string
	if err = rows.Scan(&id); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "scanning submission id")
	}
	_ = rows.Close()
	return repo.GetSubmissionByID(ctx, id)
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	if !validID(id) {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	var row submissionRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, submissionSelect+` WHERE s.id = $1`, id); err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return row.submission(), nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID, studentID string) ([]assignment.Submission, error) {
	if !validID(assignmentID) || (studentID != "" && !validID(studentID)) {
		return []assignment.Submission{}, nil
	}

	var rows []submissionRow
	var err error
	if studentID == "" {
		err = sqlx.SelectContext(ctx, repo.exec, &rows, submissionSelect+` WHERE s.assignment_id = $1 ORDER BY s.submitted_at`, assignmentID)
	} else {
		err = sqlx.SelectContext(ctx, repo.exec, &rows, submissionSelect+` WHERE s.assignment_id = $1 AND s.student_id = $2`, assignmentID, studentID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]assignment.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}

func (repo *assignmentRepository) GradeSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	q := `UPDATE submission SET grade = :grade, feedback = :feedback, graded_at = :graded_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toSubmissionRow(sub))
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "grading submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return repo.GetSubmissionByID(ctx, sub.ID)
}
