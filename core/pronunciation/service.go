package pronunciation

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

var (
	errStudentsOnly = core.NewPermissionError("only students can record practice attempts")

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		// SaveAttempt assigns the attempt a per-student increasing ID.
		SaveAttempt(ctx context.Context, a Attempt) (Attempt, error)
		// QueryAttempts returns the student's attempts newest first; limit <= 0 returns them all.
		QueryAttempts(ctx context.Context, studentID string, limit int) ([]Attempt, error)
	}

	Service interface {
		Score(sr ScoreRequest) Result
		Record(ctx context.Context, usr user.User, sr ScoreRequest) (Attempt, error)
		ListAttempts(ctx context.Context, usr user.User, limit int) ([]Attempt, error)
		Progress(ctx context.Context, usr user.User) (Progress, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Score(sr ScoreRequest) Result {
	return Score(sr.Phrase, sr.Transcript, sr.Mode, sr.Tips...)
}

func (svc *service) Record(ctx context.Context, usr user.User, sr ScoreRequest) (Attempt, error) {
	if !usr.IsStudent() {
		return Attempt{}, errStudentsOnly
	}

	res := svc.Score(sr)
	a, err := svc.repo.SaveAttempt(ctx, Attempt{
		StudentID:  usr.ID,
		Phrase:     sr.Phrase,
		Transcript: sr.Transcript,
		Mode:       sr.Mode,
		Accuracy:   res.Accuracy,
		Feedback:   res.Feedback,
		CreatedAt:  nowFunc(),
	})
	if err != nil {
		return Attempt{}, pkgerrors.Wrap(err, "saving practice attempt")
	}
	return a, nil
}

func (svc *service) ListAttempts(ctx context.Context, usr user.User, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	attempts, err := svc.repo.QueryAttempts(ctx, usr.ID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying practice attempts")
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}

func (svc *service) Progress(ctx context.Context, usr user.User) (Progress, error) {
	attempts, err := svc.repo.QueryAttempts(ctx, usr.ID, 0)
	if err != nil {
		return Progress{}, pkgerrors.Wrap(err, "querying practice attempts")
	}
	return ProgressOf(attempts), nil
}
