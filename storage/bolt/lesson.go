package boltdb

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/trezcool/eslclass/core/lesson"
)

type completionRepository struct {
	store *Store
}

var _ lesson.CompletionRepository = (*completionRepository)(nil) // interface compliance check

func NewCompletionRepository(store *Store) lesson.CompletionRepository {
	return &completionRepository{store: store}
}

func (repo *completionRepository) SaveCompletion(_ context.Context, c lesson.Completion) (lesson.Completion, error) {
	err := repo.store.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(completionsBucket).CreateBucketIfNotExists([]byte(c.StudentID))
		if err != nil {
			return err
		}
		if c.ID, err = b.NextSequence(); err != nil {
			return err
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put(itob(c.ID), data)
	})
	if err != nil {
		return lesson.Completion{}, wrapErr(err, "saving completion")
	}
	return c, nil
}

func (repo *completionRepository) QueryCompletions(_ context.Context, studentID string) ([]lesson.Completion, error) {
	completions := make([]lesson.Completion, 0)
	err := repo.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(completionsBucket).Bucket([]byte(studentID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var c lesson.Completion
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			completions = append(completions, c)
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr(err, "querying completions")
	}
	return completions, nil
}
