package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrRetrieval    = errors.New("retrieval failed")
	ErrGenerator    = errors.New("generator failed")
	ErrGenLoading   = errors.New("generator loading")
	ErrIndexRunning = errors.New("index regeneration already running")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetrieval reports whether err is a storage-side retrieval failure.
// Zero search results are a success outcome and never map to this.
func IsRetrieval(err error) bool {
	return errors.Is(err, ErrRetrieval)
}
