package fileseq

import "errors"

// ErrIndexOutOfRange is returned by FileSeq.At for an index outside
// [0, Len()).
var ErrIndexOutOfRange = errors.New("fileseq: index out of range")
