package filesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/eslclass/core"
)

// New returns the storage selected by conf.Driver.
func New(ctx context.Context, conf core.StorageConfig) (core.FileStorage, error) {
	switch conf.Driver {
	case "", "local":
		return NewLocalStorage(conf.LocalDir, conf.BaseURL), nil
	case "b2":
		return NewB2Storage(ctx, conf.B2AccountID, conf.B2AppKey, conf.B2Bucket)
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Driver)
	}
}
