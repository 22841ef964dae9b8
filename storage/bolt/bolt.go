// Package boltdb stores practice attempts and lesson completions in an embedded bbolt file.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/pronunciation"
)

// one nested bucket per student
var (
	attemptsBucket    = []byte("PracticeAttempts")
	completionsBucket = []byte("LessonCompletions")
)

type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the bbolt file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating bolt directory")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt file")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{attemptsBucket, completionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// wrapErr reports a closed store as a shutdown error: nothing can be saved until a restart.
func wrapErr(err error, msg string) error {
	if errors.Cause(err) == bbolt.ErrDatabaseNotOpen {
		return core.NewShutdownError(msg + ": bolt store is closed")
	}
	return errors.Wrap(err, msg)
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

type practiceRepository struct {
	store *Store
}

var _ pronunciation.Repository = (*practiceRepository)(nil) // interface compliance check

func NewPracticeRepository(store *Store) pronunciation.Repository {
	return &practiceRepository{store: store}
}

func (repo *practiceRepository) SaveAttempt(_ context.Context, a pronunciation.Attempt) (pronunciation.Attempt, error) {
	err := repo.store.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(attemptsBucket).CreateBucketIfNotExists([]byte(a.StudentID))
		if err != nil {
			return err
		}
		if a.ID, err = b.NextSequence(); err != nil {
			return err
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return b.Put(itob(a.ID), data)
	})
	if err != nil {
		return pronunciation.Attempt{}, wrapErr(err, "saving attempt")
	}
	return a, nil
}

func (repo *practiceRepository) QueryAttempts(_ context.Context, studentID string, limit int) ([]pronunciation.Attempt, error) {
	attempts := make([]pronunciation.Attempt, 0)
	err := repo.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(attemptsBucket).Bucket([]byte(studentID))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var a pronunciation.Attempt
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			attempts = append(attempts, a)
			if limit > 0 && len(attempts) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "querying attempts")
	}
	return attempts, nil
}
