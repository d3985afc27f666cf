package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is a generic sentinel for missing resources.
var ErrNotFound = errors.New("not found")

// InvalidFileTypeError rejects anything that is not a PDF.
type InvalidFileTypeError struct {
	ContentType string
}

func (e *InvalidFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s, only PDF is accepted", e.ContentType)
}

// FileTooLargeError rejects uploads over the configured byte limit.
type FileTooLargeError struct {
	Size    int64
	MaxSize int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large (%d bytes), max %d bytes", e.Size, e.MaxSize)
}

// PageLimitExceededError rejects uploads that would push a tenant past its
// indexed-page quota.
type PageLimitExceededError struct {
	Current  int
	Incoming int
	Max      int
}

func (e *PageLimitExceededError) Error() string {
	return fmt.Sprintf(
		"page limit exceeded: company has %d pages indexed, adding %d would exceed the maximum of %d",
		e.Current, e.Incoming, e.Max,
	)
}
