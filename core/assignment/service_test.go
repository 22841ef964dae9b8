package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/user"
	emailsvc "github.com/trezcool/eslclass/services/email"
	dummydb "github.com/trezcool/eslclass/storage/database/dummy"
	testutil "github.com/trezcool/eslclass/tests"
)

var due = time.Date(2030, time.March, 1, 17, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	svc     assignment.Service
	cls     class.Class
	teacher user.User
	alice   user.User
	bob     user.User // not enrolled
}

func setup(t *testing.T) fixture {
	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	clsRepo := dummydb.NewClassRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()

	f := fixture{ctx: context.Background()}
	f.svc = assignment.NewService(dummydb.NewAssignmentRepository(db), class.NewService(clsRepo, mailSvc), mailSvc)
	f.teacher = testutil.CreateTeacher(t, usrRepo, "Ms Teacher", "teacher@school.test")
	f.alice = testutil.CreateStudent(t, usrRepo, "Alice", "alice@school.test")
	f.bob = testutil.CreateStudent(t, usrRepo, "Bob", "bob@school.test")
	f.cls = testutil.CreateClass(t, clsRepo, f.teacher, "Morning English", "ABC123", 10)
	f.cls = testutil.Enroll(t, clsRepo, f.cls, f.alice)
	return f
}

func newAssignment(t *testing.T, f fixture) assignment.Assignment {
	dueDate := due
	na := assignment.NewAssignment{Title: " Essay ", Description: "My holidays", Type: "Essay", DueDate: &dueDate}
	require.NoError(t, na.Validate())
	asg, err := f.svc.Create(f.ctx, f.teacher, f.cls.ID, na)
	require.NoError(t, err)
	return asg
}

func submit(t *testing.T, f fixture, asg assignment.Assignment, usr user.User, content string) (assignment.Submission, error) {
	ns := assignment.NewSubmission{Content: content}
	require.NoError(t, ns.Validate())
	return f.svc.Submit(f.ctx, usr, asg.ID, ns)
}

func TestNewAssignmentValidation(t *testing.T) {
	dueDate := due
	na := assignment.NewAssignment{Title: "Quiz", Description: "Past tense", Type: "grammar", DueDate: &dueDate}
	require.NoError(t, na.Validate())
	assert.Equal(t, assignment.DefaultPoints, na.Points)

	na.Type = "poetry"
	assert.Error(t, na.Validate())

	na.Type = "grammar"
	na.DueDate = nil
	assert.Error(t, na.Validate())

	na.DueDate = &dueDate
	na.Points = assignment.MaxPoints + 1
	assert.Error(t, na.Validate())
}

func TestNewSubmissionValidation(t *testing.T) {
	ns := assignment.NewSubmission{Content: "   "}
	err := ns.Validate()
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "content", vErr.Fields[0].Field)

	ns = assignment.NewSubmission{Attachments: []string{"https://cdn.school.test/essay.pdf"}}
	assert.NoError(t, ns.Validate())
}

func TestService_Create(t *testing.T) {
	f := setup(t)

	asg := newAssignment(t, f)
	assert.NotEmpty(t, asg.ID)
	assert.Equal(t, "Essay", asg.Title)
	assert.Equal(t, assignment.TypeEssay, asg.Type)
	assert.Equal(t, f.cls.ID, asg.ClassID)
	assert.Equal(t, f.teacher.ID, asg.TeacherID)
	assert.Empty(t, asg.Submissions)

	dueDate := due
	na := assignment.NewAssignment{Title: "Hack", Description: "x", Type: "essay", DueDate: &dueDate}
	_, err := f.svc.Create(f.ctx, f.alice, f.cls.ID, na)
	require.Error(t, err)
	assert.Equal(t, "only the teacher can manage this class", err.Error())
}

func TestService_Submit(t *testing.T) {
	f := setup(t)
	asg := newAssignment(t, f)

	defer assignment.SetNow(due.Add(-time.Hour))()
	sub, err := submit(t, f, asg, f.alice, "First draft")
	require.NoError(t, err)
	assert.False(t, sub.IsLate)
	assert.Equal(t, f.alice.ID, sub.Student.ID)
	assert.False(t, sub.IsGraded())

	// resubmitting replaces the content, late this time
	defer assignment.SetNow(due.Add(time.Hour))()
	resub, err := submit(t, f, asg, f.alice, "Final draft")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resub.ID)
	assert.Equal(t, "Final draft", resub.Content)
	assert.True(t, resub.IsLate)

	subs, err := f.svc.ListSubmissions(f.ctx, f.teacher, asg.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Final draft", subs[0].Content)

	// only enrolled students
	_, err = submit(t, f, asg, f.bob, "Let me in")
	require.Error(t, err)
	_, err = submit(t, f, asg, f.teacher, "Teacher answer")
	require.Error(t, err)
	assert.Equal(t, "only enrolled students can submit", err.Error())

	_, err = f.svc.Submit(f.ctx, f.alice, "00000000-0000-0000-0000-000000000000", assignment.NewSubmission{Content: "x"})
	require.Error(t, err)
	assert.Equal(t, "assignment not found", err.Error())
}

func TestService_Grade(t *testing.T) {
	f := setup(t)
	asg := newAssignment(t, f)
	sub, err := submit(t, f, asg, f.alice, "My essay")
	require.NoError(t, err)
	emailsvc.ClearSentMessages()

	grade := func(usr user.User, subID string, g int) (assignment.Submission, error) {
		return f.svc.Grade(f.ctx, usr, asg.ID, subID, assignment.Grade{Grade: &g, Feedback: "Well done"})
	}

	_, err = grade(f.alice, sub.ID, 100)
	require.Error(t, err)
	assert.Equal(t, "only the teacher can manage this assignment", err.Error())

	_, err = grade(f.teacher, sub.ID, asg.Points+1)
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "grade must be between 0 and 100", vErr.Fields[0].Error)

	_, err = grade(f.teacher, "00000000-0000-0000-0000-000000000000", 50)
	require.Error(t, err)
	assert.Equal(t, "submission not found", err.Error())

	graded, err := grade(f.teacher, sub.ID, 85)
	require.NoError(t, err)
	assert.True(t, graded.IsGraded())
	assert.Equal(t, 85, graded.Grade.Int)
	assert.Equal(t, "Well done", graded.Feedback)
	assert.True(t, graded.GradedAt.Valid)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@school.test", sent[0].To[0].Address)

	// graded submissions are final
	_, err = submit(t, f, asg, f.alice, "Another try")
	require.Error(t, err)
	assert.Equal(t, "submission already graded", err.Error())
}

func TestService_ListForClass(t *testing.T) {
	f := setup(t)
	asg := newAssignment(t, f)
	_, err := submit(t, f, asg, f.alice, "Alice's essay")
	require.NoError(t, err)

	asgs, err := f.svc.ListForClass(f.ctx, f.teacher, f.cls.ID)
	require.NoError(t, err)
	require.Len(t, asgs, 1)
	assert.Len(t, asgs[0].Submissions, 1)

	asgs, err = f.svc.ListForClass(f.ctx, f.alice, f.cls.ID)
	require.NoError(t, err)
	require.Len(t, asgs, 1)
	require.Len(t, asgs[0].Submissions, 1)
	assert.Equal(t, f.alice.ID, asgs[0].Submissions[0].Student.ID)

	_, err = f.svc.ListForClass(f.ctx, f.bob, f.cls.ID)
	require.Error(t, err)
	assert.Equal(t, "access denied", err.Error())
}

func TestService_StudentsSeeOwnSubmissionOnly(t *testing.T) {
	db := dummydb.Open()
	usrRepo := dummydb.NewUserRepository(db)
	clsRepo := dummydb.NewClassRepository(db)
	svc := assignment.NewService(dummydb.NewAssignmentRepository(db), class.NewService(clsRepo, nil), nil)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, usrRepo, "Teacher", "t@school.test")
	alice := testutil.CreateStudent(t, usrRepo, "Alice", "a@school.test")
	carl := testutil.CreateStudent(t, usrRepo, "Carl", "c@school.test")
	cls := testutil.CreateClass(t, clsRepo, teacher, "Evening", "XYZ789", 5)
	testutil.Enroll(t, clsRepo, cls, alice, carl)

	dueDate := due
	asg, err := svc.Create(ctx, teacher, cls.ID, assignment.NewAssignment{Title: "Quiz", Description: "x", Type: "grammar", Points: 10, DueDate: &dueDate})
	require.NoError(t, err)
	for _, s := range []user.User{alice, carl} {
		_, err = svc.Submit(ctx, s, asg.ID, assignment.NewSubmission{Content: s.Name})
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, carl, asg.ID)
	require.NoError(t, err)
	require.Len(t, got.Submissions, 1)
	assert.Equal(t, "Carl", got.Submissions[0].Content)

	got, err = svc.Get(ctx, teacher, asg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Submissions, 2)
}

func TestService_UpdateAndDelete(t *testing.T) {
	f := setup(t)
	asg := newAssignment(t, f)

	_, err := f.svc.Update(f.ctx, f.alice, asg.ID, assignment.UpdateAssignment{Title: "Mine"})
	require.Error(t, err)

	attachments := []string{"https://cdn.school.test/rubric.pdf"}
	updated, err := f.svc.Update(f.ctx, f.teacher, asg.ID, assignment.UpdateAssignment{Points: 50, Attachments: &attachments})
	require.NoError(t, err)
	assert.Equal(t, asg.Title, updated.Title)
	assert.Equal(t, 50, updated.Points)
	assert.Equal(t, attachments, updated.Attachments)

	err = f.svc.Delete(f.ctx, f.alice, asg.ID)
	require.Error(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, f.teacher, asg.ID))
	_, err = f.svc.Get(f.ctx, f.teacher, asg.ID)
	require.Error(t, err)
	assert.Equal(t, "assignment not found", err.Error())
}

func TestService_UpdateKeepsGradesWithinPoints(t *testing.T) {
	f := setup(t)
	asg := newAssignment(t, f)
	sub, err := submit(t, f, asg, f.alice, "My essay")
	require.NoError(t, err)
	g := 90
	_, err = f.svc.Grade(f.ctx, f.teacher, asg.ID, sub.ID, assignment.Grade{Grade: &g})
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, f.teacher, asg.ID, assignment.UpdateAssignment{Points: 10})
	require.Error(t, err)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, assignment.ErrPointsBelowGrade, vErr.Err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "points", vErr.Fields[0].Field)
	assert.Equal(t, "points cannot be lower than a grade already given (90)", vErr.Fields[0].Error)

	got, err := f.svc.Get(f.ctx, f.teacher, asg.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.DefaultPoints, got.Points)

	// lowering down to the best grade is fine
	updated, err := f.svc.Update(f.ctx, f.teacher, asg.ID, assignment.UpdateAssignment{Points: 90})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Points)
	require.Len(t, updated.Submissions, 1)
	assert.Equal(t, 90, updated.Submissions[0].Grade.Int)
}
