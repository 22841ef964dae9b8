package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/eslclass/core/class"
)

// classRow is a Class without its joined members.
type classRow struct {
	class.Class
	teacherID string
}

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

// populate joins teacher and students. The caller must hold the lock.
func (repo *classRepository) populate(row *classRow) class.Class {
	cls := row.Class
	cls.Schedule.Days = append([]string{}, row.Schedule.Days...)
	if usr, ok := repo.db.users[row.teacherID]; ok {
		cls.Teacher = class.MemberFrom(*usr)
	} else {
		cls.Teacher = class.Member{ID: row.teacherID}
	}

	cls.Students = []class.Member{}
	for _, e := range repo.db.enrollments[row.ID] {
		usr, ok := repo.db.users[e.studentID]
		if !ok {
			continue
		}
		m := class.MemberFrom(*usr)
		joinedAt := e.joinedAt
		m.JoinedAt = &joinedAt
		cls.Students = append(cls.Students, m)
	}
	return cls
}

func (repo *classRepository) codeTaken(code, excludedID string) bool {
	for _, row := range repo.db.classes {
		if row.ID != excludedID && row.EnrollmentCode == code {
			return true
		}
	}
	return false
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.codeTaken(cls.EnrollmentCode, "") {
		return class.Class{}, class.ErrCodeExists
	}

	cls.ID = uuid.New().String()
	row := &classRow{Class: cls, teacherID: cls.Teacher.ID}
	row.Students = nil
	repo.db.classes[cls.ID] = row
	return repo.populate(row), nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row, ok := repo.db.classes[id]; ok {
		return repo.populate(row), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassByCode(_ context.Context, code string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, row := range repo.db.classes {
		if row.EnrollmentCode == code {
			return repo.populate(row), nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) filter(keep func(row *classRow) bool) []class.Class {
	classes := make([]class.Class, 0)
	for _, row := range repo.db.classes {
		if keep(row) {
			classes = append(classes, repo.populate(row))
		}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].CreatedAt.After(classes[j].CreatedAt)
	})
	return classes
}

func (repo *classRepository) QueryClassesByTeacher(_ context.Context, teacherID string) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(row *classRow) bool { return row.teacherID == teacherID }), nil
}

func (repo *classRepository) QueryClassesByStudent(_ context.Context, studentID string) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(func(row *classRow) bool {
		return indexOfStudent(repo.db.enrollments[row.ID], studentID) >= 0
	}), nil
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.classes[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if repo.codeTaken(cls.EnrollmentCode, cls.ID) {
		return class.Class{}, class.ErrCodeExists
	}

	updated := &classRow{Class: cls, teacherID: row.teacherID}
	updated.Students = nil
	updated.CreatedAt = row.CreatedAt
	repo.db.classes[cls.ID] = updated
	return repo.populate(updated), nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return class.ErrNotFound
	}
	delete(repo.db.classes, id)
	delete(repo.db.enrollments, id)

	// cascade to assignments and their submissions
	for aID, asg := range repo.db.assignments {
		if asg.ClassID == id {
			delete(repo.db.assignments, aID)
			for sID, sub := range repo.db.submissions {
				if sub.AssignmentID == aID {
					delete(repo.db.submissions, sID)
				}
			}
		}
	}
	return nil
}

func (repo *classRepository) EnrollStudent(_ context.Context, classID, studentID string) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.classes[classID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	enrolled := repo.db.enrollments[classID]
	if indexOfStudent(enrolled, studentID) >= 0 {
		return class.Class{}, class.ErrAlreadyEnrolled
	}
	if len(enrolled) >= row.MaxStudents {
		return class.Class{}, class.ErrClassFull
	}

	repo.db.enrollments[classID] = append(enrolled, enrollment{studentID: studentID, joinedAt: time.Now().UTC()})
	return repo.populate(row), nil
}

func (repo *classRepository) RemoveStudent(_ context.Context, classID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return class.ErrNotFound
	}
	repo.db.enrollments[classID] = withoutStudent(repo.db.enrollments[classID], studentID)
	return nil
}

func indexOfStudent(enrolled []enrollment, studentID string) int {
	for i, e := range enrolled {
		if e.studentID == studentID {
			return i
		}
	}
	return -1
}

func withoutStudent(enrolled []enrollment, studentID string) []enrollment {
	if i := indexOfStudent(enrolled, studentID); i >= 0 {
		return append(enrolled[:i:i], enrolled[i+1:]...)
	}
	return enrolled
}
