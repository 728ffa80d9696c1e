package asset

import "errors"

var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrDuplicateHandle = errors.New("asset handle already registered")
	ErrDuplicatePath   = errors.New("asset path already registered")
	ErrWrongKind       = errors.New("asset has a different kind")
	ErrUnsupportedKind = errors.New("no loader for asset kind")
	ErrNoPath          = errors.New("asset has no file path")
	ErrOutsideRoot     = errors.New("path is outside the asset root")
)

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
