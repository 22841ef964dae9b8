// Package dummydb is an in-memory implementation of the repositories, for tests and local hacking.
package dummydb

import (
	"sync"
	"time"

	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/lesson"
	"github.com/trezcool/eslclass/core/user"
)

type (
	// DB holds every table behind a single lock: class reads join users and enrollments.
	DB struct {
		sync.RWMutex

		users       map[string]*user.User
		classes     map[string]*classRow
		enrollments map[string][]enrollment // {classID: enrollments in join order}
		assignments map[string]*assignment.Assignment
		submissions map[string]*assignment.Submission
		lessons     map[string]*lesson.Plan
	}

	enrollment struct {
		studentID string
		joinedAt  time.Time
	}
)

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		classes:     make(map[string]*classRow),
		enrollments: make(map[string][]enrollment),
		assignments: make(map[string]*assignment.Assignment),
		submissions: make(map[string]*assignment.Submission),
		lessons:     make(map[string]*lesson.Plan),
	}
}
