package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func copyAssignment(asg assignment.Assignment) assignment.Assignment {
	asg.Attachments = append([]string{}, asg.Attachments...)
	asg.Submissions = nil
	return asg
}

// populateSubmission joins the student. The caller must hold the lock.
func (repo *assignmentRepository) populateSubmission(sub assignment.Submission) assignment.Submission {
	sub.Attachments = append([]string{}, sub.Attachments...)
	if usr, ok := repo.db.users[sub.Student.ID]; ok {
		sub.Student = class.Member{ID: usr.ID, Name: usr.Name, Email: usr.Email}
	}
	return sub
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[asg.ClassID]; !ok {
		return assignment.Assignment{}, class.ErrNotFound
	}
	asg.ID = uuid.New().String()
	stored := copyAssignment(asg)
	repo.db.assignments[asg.ID] = &stored
	return copyAssignment(asg), nil
}

func (repo *assignmentRepository) GetAssignmentByID(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return copyAssignment(*asg), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignmentsByClass(_ context.Context, classID string) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.ClassID == classID {
			asgs = append(asgs, copyAssignment(*asg))
		}
	}
	sort.SliceStable(asgs, func(i, j int) bool {
		return asgs[i].DueDate.Before(asgs[j].DueDate)
	})
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assignments[asg.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	asg.ClassID, asg.TeacherID, asg.CreatedAt = orig.ClassID, orig.TeacherID, orig.CreatedAt
	stored := copyAssignment(asg)
	repo.db.assignments[asg.ID] = &stored
	return copyAssignment(asg), nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.assignments, id)
	for subID, sub := range repo.db.submissions {
		if sub.AssignmentID == id {
			delete(repo.db.submissions, subID)
		}
	}
	return nil
}

func (repo *assignmentRepository) SaveSubmission(_ context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[sub.AssignmentID]; !ok {
		return assignment.Submission{}, assignment.ErrNotFound
	}

	for _, existing := range repo.db.submissions {
		if existing.AssignmentID == sub.AssignmentID && existing.Student.ID == sub.Student.ID {
			if existing.IsGraded() {
				return assignment.Submission{}, assignment.ErrAlreadyGraded
			}
			existing.Content = sub.Content
			existing.Attachments = append([]string{}, sub.Attachments...)
			existing.SubmittedAt = sub.SubmittedAt
			existing.IsLate = sub.IsLate
			return repo.populateSubmission(*existing), nil
		}
	}

	sub.ID = uuid.New().String()
	stored := sub
	stored.Attachments = append([]string{}, sub.Attachments...)
	repo.db.submissions[sub.ID] = &stored
	return repo.populateSubmission(sub), nil
}

func (repo *assignmentRepository) GetSubmissionByID(_ context.Context, id string) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return repo.populateSubmission(*sub), nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissions(_ context.Context, assignmentID, studentID string) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.submissions {
		if sub.AssignmentID == assignmentID && (studentID == "" || sub.Student.ID == studentID) {
			subs = append(subs, repo.populateSubmission(*sub))
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs, nil
}

func (repo *assignmentRepository) GradeSubmission(_ context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, ok := repo.db.submissions[sub.ID]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	existing.Grade = sub.Grade
	existing.Feedback = sub.Feedback
	existing.GradedAt = sub.GradedAt
	return repo.populateSubmission(*existing), nil
}
