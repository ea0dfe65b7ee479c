package upath

import "strings"

// New resolves location into a Path backed by the appropriate scheme.
// "gs://" and "s3://" route to a blob-backed Path via afs; anything else
// (a bare filesystem path, or one prefixed with "file://") routes to a
// local Path.
func New(location string, opts ...Option) Path {
	o := newOptions(opts...)
	switch {
	case strings.HasPrefix(location, "gs://"), strings.HasPrefix(location, "s3://"):
		return newBlobPath(location, o)
	default:
		return newLocalPath(strings.TrimPrefix(location, "file://"), o)
	}
}
