package class

import (
	"strings"
	"time"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

const (
	DefaultLevel       = user.LevelBeginner
	DefaultMaxStudents = 30
	MaxStudentsLimit   = 500
)

var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Member is the public view of a User inside a Class.
type Member struct {
	ID       string     `json:"id" db:"id"`
	Name     string     `json:"name" db:"name"`
	Email    string     `json:"email" db:"email"`
	Level    string     `json:"level,omitempty" db:"level"`
	JoinedAt *time.Time `json:"joined_at,omitempty" db:"joined_at"`
}

func MemberFrom(usr user.User) Member {
	return Member{ID: usr.ID, Name: usr.Name, Email: usr.Email, Level: usr.Level}
}

type Schedule struct {
	Days     []string `json:"days" validate:"omitempty,dive,weekday"`
	Time     string   `json:"time" validate:"omitempty,classtime"`
	Duration int      `json:"duration" validate:"gte=0,lte=600"` // minutes
}

type Class struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Teacher        Member    `json:"teacher"`
	Students       []Member  `json:"students"`
	EnrollmentCode string    `json:"enrollment_code"`
	Level          string    `json:"level"`
	Schedule       Schedule  `json:"schedule"`
	MaxStudents    int       `json:"max_students"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

func (c Class) IsTeacher(userID string) bool {
	return c.Teacher.ID == userID
}

func (c Class) HasStudent(userID string) bool {
	for _, s := range c.Students {
		if s.ID == userID {
			return true
		}
	}
	return false
}

func (c Class) IsFull() bool {
	return len(c.Students) >= c.MaxStudents
}

// CanView tells whether the user may see the class: its teacher, an enrolled student or an admin.
func (c Class) CanView(usr user.User) bool {
	return c.IsTeacher(usr.ID) || c.HasStudent(usr.ID) || usr.IsAdmin()
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Level       string   `json:"level" validate:"omitempty,classlevel"`
	Schedule    Schedule `json:"schedule"`
	MaxStudents int      `json:"max_students" validate:"gte=0,lte=500"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	nc.Schedule.clean()
	if nc.Level == "" {
		nc.Level = DefaultLevel
	}
	if nc.MaxStudents == 0 {
		nc.MaxStudents = DefaultMaxStudents
	}
	return core.Validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name        string    `json:"name" validate:"max=120"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Level       string    `json:"level" validate:"omitempty,classlevel"`
	Schedule    *Schedule `json:"schedule"`
	MaxStudents int       `json:"max_students" validate:"gte=0,lte=500"`
	IsActive    *bool     `json:"is_active"`
}

func (uc *UpdateClass) Validate(orig Class) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	if level := core.CleanString(uc.Level, true /* lower */); level != "" {
		uc.Level = level
	} else {
		uc.Level = orig.Level
	}
	if uc.Schedule != nil {
		uc.Schedule.clean()
	}
	if uc.MaxStudents == 0 {
		uc.MaxStudents = orig.MaxStudents
	}

	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	if uc.MaxStudents < len(orig.Students) {
		return core.NewValidationError(ErrMaxBelowEnrolled, core.FieldError{Field: "max_students", Error: ErrMaxBelowEnrolled.Error()})
	}
	return nil
}

func (s *Schedule) clean() {
	s.Time = core.CleanString(s.Time)
	days := core.CleanStrings(s.Days, true /* lower */)
	for i, day := range days {
		days[i] = strings.ToUpper(day[:1]) + day[1:] // "monday" -> "Monday"
	}
	s.Days = days
}

type JoinRequest struct {
	EnrollmentCode string `json:"enrollment_code" validate:"required"`
	// CamelCode is the camelCase spelling sent by the web client.
	CamelCode      string `json:"enrollmentCode,omitempty"`
}

func (jr *JoinRequest) Validate() error {
	jr.EnrollmentCode = NormalizeCode(jr.EnrollmentCode)
	if jr.EnrollmentCode == "" {
		jr.EnrollmentCode = NormalizeCode(jr.CamelCode)
	}
	jr.CamelCode = ""
	return core.Validate.Struct(jr)
}
