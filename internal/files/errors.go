package files

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the specified file does not exist.
type ErrFileNotFound struct {
	Path string
}

func (e *ErrFileNotFound) Error() string {
	return fmt.Sprintf("file not found: %q", e.Path)
}

// ErrInvalidFormat indicates a file is not valid JSON or not a valid envelope.
type ErrInvalidFormat struct {
	Path    string // File path
	Details string // What was wrong
	Err     error  // Underlying error, if any
}

func (e *ErrInvalidFormat) Error() string {
	msg := fmt.Sprintf("invalid format for %q", e.Path)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrInvalidFormat) Unwrap() error {
	return e.Err
}

// ErrPermissionDenied indicates a file access permission issue.
type ErrPermissionDenied struct {
	Path string
	Op   string // Operation that failed (read, write, list)
	Err  error  // Underlying error
}

func (e *ErrPermissionDenied) Error() string {
	msg := fmt.Sprintf("permission denied: cannot %s %q", e.Op, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrPermissionDenied) Unwrap() error {
	return e.Err
}

// ErrInvalidFilename indicates a raw file name does not follow the
// <prefix>-<id>.<ext> convention.
type ErrInvalidFilename struct {
	Filename string
	Prefix   string
	Reason   string
}

func (e *ErrInvalidFilename) Error() string {
	return fmt.Sprintf("invalid filename %q: expected %s-<id>.json: %s", e.Filename, e.Prefix, e.Reason)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	var notFoundErr *ErrFileNotFound
	return errors.As(err, &notFoundErr)
}

// IsFormatError returns true if the error is a format error.
func IsFormatError(err error) bool {
	var formatErr *ErrInvalidFormat
	return errors.As(err, &formatErr)
}

// IsInvalidFilename returns true if the error is a filename convention error.
func IsInvalidFilename(err error) bool {
	var nameErr *ErrInvalidFilename
	return errors.As(err, &nameErr)
}
