// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo user.Repository, name, email string) user.User {
	t.Helper()
	return CreateUser(t, repo, name, "", email, "", []string{user.RoleTeacher}, true)
}

func CreateStudent(t *testing.T, repo user.Repository, name, email string) user.User {
	t.Helper()
	return CreateUser(t, repo, name, "", email, "", []string{user.RoleStudent}, true)
}

// CreateClass stores an active class taught by teacher.
func CreateClass(t *testing.T, repo class.Repository, teacher user.User, name, code string, maxStudents int) class.Class {
	t.Helper()

	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:           name,
		Teacher:        class.MemberFrom(teacher),
		Students:       []class.Member{},
		EnrollmentCode: code,
		Level:          class.DefaultLevel,
		Schedule:       class.Schedule{Days: []string{}},
		MaxStudents:    maxStudents,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

// Enroll adds the students to the class and returns the refreshed class.
func Enroll(t *testing.T, repo class.Repository, cls class.Class, students ...user.User) class.Class {
	t.Helper()

	var err error
	for _, s := range students {
		if cls, err = repo.EnrollStudent(context.Background(), cls.ID, s.ID); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
	return cls
}
