package biglist

import "errors"

var (
	// ErrCorruptManifest indicates info.json could not be parsed or its
	// invariants (monotonic cumulative counts, unique paths) don't hold.
	ErrCorruptManifest = errors.New("biglist: manifest corrupt")
	// ErrCorruptData indicates a data file failed to deserialize.
	ErrCorruptData = errors.New("biglist: data file corrupt")
	// ErrClosed indicates an Append or Flush on a BigList after Close.
	ErrClosed = errors.New("biglist: already closed")
	// ErrAlreadyExists indicates New was called against a store root that
	// already has a manifest.
	ErrAlreadyExists = errors.New("biglist: store already exists")
)
