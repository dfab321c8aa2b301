package format

import "github.com/cockroachdb/errors"

var (
	// ErrSignatureMismatch indicates the region does not start with HeapMagic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrOwnerMismatch indicates the header names a different region id.
	ErrOwnerMismatch = errors.New("format: owner mismatch")
	// ErrSizeMismatch indicates the recorded size disagrees with the mapping.
	ErrSizeMismatch = errors.New("format: size mismatch")
)
