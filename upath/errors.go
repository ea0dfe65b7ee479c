package upath

import "errors"

// Sentinel errors returned by Path implementations. Wrap with fmt.Errorf
// and %w, check with errors.Is.
var (
	ErrNotFound          = errors.New("upath: not found")
	ErrAlreadyExists     = errors.New("upath: already exists")
	ErrLockTimeout       = errors.New("upath: lock acquisition timed out")
	ErrLockLost          = errors.New("upath: lock lease lost")
	ErrBackendUnavailable = errors.New("upath: backend unavailable")
	ErrCancelled         = errors.New("upath: operation cancelled")
)
