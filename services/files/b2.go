package filesvc

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
)

type b2Storage struct {
	bucket *b2.Bucket
}

var _ core.FileStorage = (*b2Storage)(nil)

// NewB2Storage connects to the Backblaze B2 bucket.
func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (core.FileStorage, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &b2Storage{bucket: bucket}, nil
}

func (s *b2Storage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx).WithAttrs(&b2.Attrs{ContentType: contentType})

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return obj.URL(), nil
}

func (s *b2Storage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
