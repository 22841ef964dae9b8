// Package filesvc implements core.FileStorage on the local disk or Backblaze B2.
package filesvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
)

var errInvalidKey = errors.New("invalid file key")

type localStorage struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*localStorage)(nil)

// NewLocalStorage stores files under dir; they are expected to be served at baseURL.
func NewLocalStorage(dir, baseURL string) core.FileStorage {
	return &localStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *localStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errInvalidKey
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *localStorage) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return "", errors.Wrap(err, "creating upload directory")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + key, nil
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
