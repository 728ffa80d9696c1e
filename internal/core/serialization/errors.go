package serialization

import "errors"

var (
	ErrUnbalanced      = errors.New("unbalanced begin/end frames")
	ErrUnsupportedType = errors.New("unsupported value type")
	ErrUnknownFormat   = errors.New("unknown serialization format")
	ErrNotAnObject     = errors.New("document root is not an object")
)
