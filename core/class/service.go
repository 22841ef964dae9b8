package class

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

const maxCodeAttempts = 5

var (
	// errors
	ErrNotFound         = errors.New("class not found")
	ErrInvalidCode      = errors.New("invalid enrollment code")
	ErrCodeExists       = errors.New("enrollment code already in use")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this class")
	ErrClassFull        = errors.New("class is full")
	ErrInactive         = errors.New("class is not active")
	ErrMaxBelowEnrolled = errors.New("max_students cannot be lower than the number of enrolled students")

	errTeachersOnly    = core.NewPermissionError("only teachers can create classes")
	errStudentsOnly    = core.NewPermissionError("only students can join classes")
	errAccessDenied    = core.NewPermissionError("access denied")
	errClassTeacher    = core.NewPermissionError("only the teacher can manage this class")
	errRemoveStudent   = core.NewPermissionError("only the teacher can remove students")
	errClassNotFound   = core.NewNotFoundError(ErrNotFound.Error())
	errInvalidCodeResp = core.NewNotFoundError(ErrInvalidCode.Error())
)

type (
	Repository interface {
		// CreateClass reports ErrCodeExists when the enrollment code is taken.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		GetClassByCode(ctx context.Context, code string) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherID string) ([]Class, error)
		QueryClassesByStudent(ctx context.Context, studentID string) ([]Class, error)
		// UpdateClass saves every scalar field, enrollment code included; students are left untouched.
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		// EnrollStudent atomically adds the student to the class.
		// It reports ErrAlreadyEnrolled or ErrClassFull instead of breaking the class invariants.
		EnrollStudent(ctx context.Context, classID, studentID string) (Class, error)
		RemoveStudent(ctx context.Context, classID, studentID string) error
	}

	Service interface {
		Create(ctx context.Context, teacher user.User, nc NewClass) (Class, error)
		ListForTeacher(ctx context.Context, teacher user.User) ([]Class, error)
		ListForStudent(ctx context.Context, student user.User) ([]Class, error)
		Join(ctx context.Context, student user.User, code string) (Class, error)
		// Get returns the class if usr may view it.
		Get(ctx context.Context, usr user.User, id string) (Class, error)
		// GetForTeacher returns the class if usr teaches it.
		GetForTeacher(ctx context.Context, usr user.User, id string) (Class, error)
		Update(ctx context.Context, usr user.User, id string, uc UpdateClass) (Class, error)
		RegenerateCode(ctx context.Context, usr user.User, id string) (Class, error)
		Delete(ctx context.Context, usr user.User, id string) error
		RemoveStudent(ctx context.Context, usr user.User, classID, studentID string) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) Create(ctx context.Context, teacher user.User, nc NewClass) (Class, error) {
	if !teacher.IsTeacher() {
		return Class{}, errTeachersOnly
	}

	cls := Class{
		Name:        nc.Name,
		Description: nc.Description,
		Teacher:     MemberFrom(teacher),
		Students:    []Member{},
		Level:       nc.Level,
		Schedule:    nc.Schedule,
		MaxStudents: nc.MaxStudents,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if cls.Schedule.Days == nil {
		cls.Schedule.Days = []string{}
	}

	for attempt := 1; ; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return Class{}, pkgerrors.Wrap(err, "generating enrollment code")
		}
		cls.EnrollmentCode = code

		created, err := svc.repo.CreateClass(ctx, cls)
		if err == nil {
			return created, nil
		}
		if pkgerrors.Cause(err) != ErrCodeExists || attempt >= maxCodeAttempts {
			return Class{}, pkgerrors.Wrap(err, "creating class")
		}
	}
}

func (svc *service) ListForTeacher(ctx context.Context, teacher user.User) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(ctx, teacher.ID)
}

func (svc *service) ListForStudent(ctx context.Context, student user.User) ([]Class, error) {
	return svc.repo.QueryClassesByStudent(ctx, student.ID)
}

func (svc *service) Join(ctx context.Context, student user.User, code string) (Class, error) {
	if !student.IsStudent() {
		return Class{}, errStudentsOnly
	}

	code = NormalizeCode(code)
	if !IsValidCode(code) {
		return Class{}, errInvalidCodeResp
	}
	cls, err := svc.repo.GetClassByCode(ctx, code)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Class{}, errInvalidCodeResp
		}
		return Class{}, pkgerrors.Wrap(err, "finding class by enrollment code")
	}
	if !cls.IsActive {
		return Class{}, core.NewValidationError(ErrInactive)
	}

	cls, err = svc.repo.EnrollStudent(ctx, cls.ID, student.ID)
	if err != nil {
		switch cause := pkgerrors.Cause(err); cause {
		case ErrAlreadyEnrolled, ErrClassFull:
			return Class{}, core.NewValidationError(cause)
		case ErrNotFound:
			return Class{}, errInvalidCodeResp
		}
		return Class{}, pkgerrors.Wrap(err, "enrolling student")
	}

	svc.notifyTeacher(cls, student)
	return cls, nil
}

func (svc *service) notifyTeacher(cls Class, student user.User) {
	if svc.mailSvc == nil || cls.Teacher.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cls.Teacher.Name, Address: cls.Teacher.Email}},
		Subject:      "New student in " + cls.Name,
		TemplateName: "class_joined",
		TemplateData: map[string]interface{}{
			"TeacherName":  cls.Teacher.Name,
			"StudentName":  student.Name,
			"StudentEmail": student.Email,
			"ClassName":    cls.Name,
			"Enrolled":     len(cls.Students),
			"MaxStudents":  cls.MaxStudents,
		},
	})
}

func (svc *service) find(ctx context.Context, id string) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Class{}, errClassNotFound
		}
		return Class{}, pkgerrors.Wrap(err, "finding class by ID")
	}
	return cls, nil
}

func (svc *service) Get(ctx context.Context, usr user.User, id string) (Class, error) {
	cls, err := svc.find(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if !cls.CanView(usr) {
		return Class{}, errAccessDenied
	}
	return cls, nil
}

func (svc *service) GetForTeacher(ctx context.Context, usr user.User, id string) (Class, error) {
	cls, err := svc.find(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if !cls.IsTeacher(usr.ID) {
		return Class{}, errClassTeacher
	}
	return cls, nil
}

func (svc *service) Update(ctx context.Context, usr user.User, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.GetForTeacher(ctx, usr, id)
	if err != nil {
		return Class{}, err
	}
	if err = uc.Validate(cls); err != nil {
		return Class{}, err
	}

	cls.Name = uc.Name
	if uc.Description != nil {
		cls.Description = *uc.Description
	}
	cls.Level = uc.Level
	if uc.Schedule != nil {
		cls.Schedule = *uc.Schedule
		if cls.Schedule.Days == nil {
			cls.Schedule.Days = []string{}
		}
	}
	cls.MaxStudents = uc.MaxStudents
	if uc.IsActive != nil {
		cls.IsActive = *uc.IsActive
	}
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *service) RegenerateCode(ctx context.Context, usr user.User, id string) (Class, error) {
	cls, err := svc.GetForTeacher(ctx, usr, id)
	if err != nil {
		return Class{}, err
	}
	for attempt := 1; ; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return Class{}, pkgerrors.Wrap(err, "generating enrollment code")
		}
		if code == cls.EnrollmentCode {
			continue
		}
		cls.EnrollmentCode = code

		updated, err := svc.repo.UpdateClass(ctx, cls)
		if err == nil {
			return updated, nil
		}
		if pkgerrors.Cause(err) != ErrCodeExists || attempt >= maxCodeAttempts {
			return Class{}, pkgerrors.Wrap(err, "updating enrollment code")
		}
	}
}

func (svc *service) Delete(ctx context.Context, usr user.User, id string) error {
	if _, err := svc.GetForTeacher(ctx, usr, id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *service) RemoveStudent(ctx context.Context, usr user.User, classID, studentID string) error {
	cls, err := svc.find(ctx, classID)
	if err != nil {
		return err
	}
	if !cls.IsTeacher(usr.ID) {
		return errRemoveStudent
	}
	if err = svc.repo.RemoveStudent(ctx, cls.ID, studentID); err != nil {
		return pkgerrors.Wrap(err, "removing student")
	}
	return nil
}
