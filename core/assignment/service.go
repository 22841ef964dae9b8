package assignment

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyGraded      = errors.New("submission already graded")
	ErrEmptySubmission    = errors.New("content or attachments are required")
	ErrGradeOutOfRange    = errors.New("grade out of range")
	ErrPointsBelowGrade   = errors.New("points cannot be lower than a grade already given")

	errAssignmentNotFound = core.NewNotFoundError(ErrNotFound.Error())
	errSubmissionNotFound = core.NewNotFoundError(ErrSubmissionNotFound.Error())
	errAssignmentTeacher  = core.NewPermissionError("only the teacher can manage this assignment")
	errEnrolledOnly       = core.NewPermissionError("only enrolled students can submit")

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// GetAssignmentByID does not load submissions.
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		QueryAssignmentsByClass(ctx context.Context, classID string) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// DeleteAssignment also deletes its submissions.
		DeleteAssignment(ctx context.Context, id string) error

		// SaveSubmission creates the student's submission or replaces its content.
		// It reports ErrAlreadyGraded when the existing submission has been graded.
		SaveSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// QuerySubmissions lists an assignment's submissions, restricted to one student unless studentID is empty.
		QuerySubmissions(ctx context.Context, assignmentID, studentID string) ([]Submission, error)
		GradeSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, usr user.User, classID string, na NewAssignment) (Assignment, error)
		// ListForClass returns the class assignments; students only see their own submission.
		ListForClass(ctx context.Context, usr user.User, classID string) ([]Assignment, error)
		Get(ctx context.Context, usr user.User, id string) (Assignment, error)
		Update(ctx context.Context, usr user.User, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, usr user.User, id string) error
		Submit(ctx context.Context, usr user.User, id string, ns NewSubmission) (Submission, error)
		ListSubmissions(ctx context.Context, usr user.User, id string) ([]Submission, error)
		Grade(ctx context.Context, usr user.User, id, submissionID string, g Grade) (Submission, error)
	}

	service struct {
		repo     Repository
		classSvc class.Service
		mailSvc  core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classSvc class.Service, mailSvc core.EmailService) Service {
	return &service{repo: repo, classSvc: classSvc, mailSvc: mailSvc}
}

func (svc *service) Create(ctx context.Context, usr user.User, classID string, na NewAssignment) (Assignment, error) {
	cls, err := svc.classSvc.GetForTeacher(ctx, usr, classID)
	if err != nil {
		return Assignment{}, err
	}

	asg := Assignment{
		ClassID:     cls.ID,
		TeacherID:   usr.ID,
		Title:       na.Title,
		Description: na.Description,
		Type:        na.Type,
		Points:      na.Points,
		DueDate:     na.DueDate.UTC(),
		Attachments: na.Attachments,
		CreatedAt:   nowFunc(),
	}
	if asg.Attachments == nil {
		asg.Attachments = []string{}
	}

	asg, err = svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, pkgerrors.Wrap(err, "creating assignment")
	}
	asg.Submissions = []Submission{}
	return asg, nil
}

// submissionsFor loads what usr may see of the assignment's submissions.
func (svc *service) submissionsFor(ctx context.Context, usr user.User, cls class.Class, asg Assignment) ([]Submission, error) {
	var studentID string
	if !cls.IsTeacher(usr.ID) && !usr.IsAdmin() {
		studentID = usr.ID
	}
	subs, err := svc.repo.QuerySubmissions(ctx, asg.ID, studentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}

func (svc *service) ListForClass(ctx context.Context, usr user.User, classID string) ([]Assignment, error) {
	cls, err := svc.classSvc.Get(ctx, usr, classID)
	if err != nil {
		return nil, err
	}

	asgs, err := svc.repo.QueryAssignmentsByClass(ctx, cls.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying assignments")
	}
	for i := range asgs {
		if asgs[i].Submissions, err = svc.submissionsFor(ctx, usr, cls, asgs[i]); err != nil {
			return nil, err
		}
	}
	if asgs == nil {
		asgs = []Assignment{}
	}
	return asgs, nil
}

func (svc *service) find(ctx context.Context, id string) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Assignment{}, errAssignmentNotFound
		}
		return Assignment{}, pkgerrors.Wrap(err, "finding assignment by ID")
	}
	return asg, nil
}

// findForTeacher returns the assignment if usr teaches it.
func (svc *service) findForTeacher(ctx context.Context, usr user.User, id string) (Assignment, error) {
	asg, err := svc.find(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if asg.TeacherID != usr.ID {
		return Assignment{}, errAssignmentTeacher
	}
	return asg, nil
}

func (svc *service) Get(ctx context.Context, usr user.User, id string) (Assignment, error) {
	asg, err := svc.find(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	cls, err := svc.classSvc.Get(ctx, usr, asg.ClassID)
	if err != nil {
		return Assignment{}, err
	}
	if asg.Submissions, err = svc.submissionsFor(ctx, usr, cls, asg); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

func (svc *service) Update(ctx context.Context, usr user.User, id string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.findForTeacher(ctx, usr, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(asg); err != nil {
		return Assignment{}, err
	}

	subs, err := svc.repo.QuerySubmissions(ctx, asg.ID, "")
	if err != nil {
		return Assignment{}, pkgerrors.Wrap(err, "querying submissions")
	}
	if ua.Points < asg.Points {
		for _, sub := range subs {
			if sub.IsGraded() && sub.Grade.Int > ua.Points {
				msg := ErrPointsBelowGrade.Error() + " (" + strconv.Itoa(sub.Grade.Int) + ")"
				return Assignment{}, core.NewValidationError(ErrPointsBelowGrade, core.FieldError{Field: "points", Error: msg})
			}
		}
	}

	asg.Title = ua.Title
	asg.Description = ua.Description
	asg.Type = ua.Type
	asg.Points = ua.Points
	if ua.DueDate != nil {
		asg.DueDate = ua.DueDate.UTC()
	}
	if ua.Attachments != nil {
		asg.Attachments = *ua.Attachments
	}

	if asg, err = svc.repo.UpdateAssignment(ctx, asg); err != nil {
		return Assignment{}, pkgerrors.Wrap(err, "updating assignment")
	}
	if subs == nil {
		subs = []Submission{}
	}
	asg.Submissions = subs
	return asg, nil
}

func (svc *service) Delete(ctx context.Context, usr user.User, id string) error {
	if _, err := svc.findForTeacher(ctx, usr, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteAssignment(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "deleting assignment")
	}
	return nil
}

func (svc *service) Submit(ctx context.Context, usr user.User, id string, ns NewSubmission) (Submission, error) {
	asg, err := svc.find(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	cls, err := svc.classSvc.Get(ctx, usr, asg.ClassID)
	if err != nil {
		return Submission{}, err
	}
	if !cls.HasStudent(usr.ID) {
		return Submission{}, errEnrolledOnly
	}

	now := nowFunc()
	sub := Submission{
		AssignmentID: asg.ID,
		Student:      class.MemberFrom(usr),
		Content:      ns.Content,
		Attachments:  ns.Attachments,
		SubmittedAt:  now,
		IsLate:       now.After(asg.DueDate),
	}
	if sub.Attachments == nil {
		sub.Attachments = []string{}
	}
	sub.Student.Level = ""

	sub, err = svc.repo.SaveSubmission(ctx, sub)
	if err != nil {
		if pkgerrors.Cause(err) == ErrAlreadyGraded {
			return Submission{}, core.NewValidationError(ErrAlreadyGraded)
		}
		return Submission{}, pkgerrors.Wrap(err, "saving submission")
	}
	return sub, nil
}

func (svc *service) ListSubmissions(ctx context.Context, usr user.User, id string) ([]Submission, error) {
	asg, err := svc.findForTeacher(ctx, usr, id)
	if err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissions(ctx, asg.ID, "")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []Submission{}
	}
	return subs, nil
}

func (svc *service) Grade(ctx context.Context, usr user.User, id, submissionID string, g Grade) (Submission, error) {
	asg, err := svc.findForTeacher(ctx, usr, id)
	if err != nil {
		return Submission{}, err
	}
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrSubmissionNotFound {
			return Submission{}, errSubmissionNotFound
		}
		return Submission{}, pkgerrors.Wrap(err, "finding submission by ID")
	}
	if sub.AssignmentID != asg.ID {
		return Submission{}, errSubmissionNotFound
	}
	if err = g.Validate(asg.Points); err != nil {
		return Submission{}, err
	}

	sub.Grade = null.IntFrom(*g.Grade)
	sub.Feedback = g.Feedback
	sub.GradedAt = null.TimeFrom(nowFunc())
	if sub, err = svc.repo.GradeSubmission(ctx, sub); err != nil {
		return Submission{}, pkgerrors.Wrap(err, "grading submission")
	}

	svc.notifyStudent(asg, sub)
	return sub, nil
}

func (svc *service) notifyStudent(asg Assignment, sub Submission) {
	if svc.mailSvc == nil || sub.Student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: sub.Student.Name, Address: sub.Student.Email}},
		Subject:      "Your submission for " + asg.Title + " was graded",
		TemplateName: "submission_graded",
		TemplateData: map[string]interface{}{
			"StudentName":     sub.Student.Name,
			"AssignmentTitle": asg.Title,
			"Grade":           sub.Grade.Int,
			"Points":          asg.Points,
			"Feedback":        sub.Feedback,
		},
	})
}
