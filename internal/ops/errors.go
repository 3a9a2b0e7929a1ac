package ops

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUsage indicates a flag combination that selects no operation mode.
// It is returned before any API call is made.
type ErrUsage struct {
	Reason string
}

func (e *ErrUsage) Error() string {
	return "usage: " + e.Reason
}

// ErrPartialFailure indicates that some items of a bulk operation failed.
// The remaining items were processed.
type ErrPartialFailure struct {
	Op       string   // Operation, e.g. "import email templates"
	Total    int      // Items attempted
	Failures []Result // Failed items, in processing order
}

func (e *ErrPartialFailure) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return fmt.Sprintf("%s: %d of %d failed (%s)", e.Op, len(e.Failures), e.Total, strings.Join(ids, ", "))
}

// Unwrap exposes the individual item errors to errors.Is and errors.As.
func (e *ErrPartialFailure) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// ErrNotInFile indicates the requested id is absent from an export file.
type ErrNotInFile struct {
	Kind string
	ID   string
	Path string
}

func (e *ErrNotInFile) Error() string {
	return fmt.Sprintf("%s %q not found in %s", e.Kind, e.ID, e.Path)
}

// IsUsage returns true if the error is a usage error.
func IsUsage(err error) bool {
	var u *ErrUsage
	return errors.As(err, &u)
}

// IsPartialFailure returns true if the error is an aggregate failure.
func IsPartialFailure(err error) bool {
	var p *ErrPartialFailure
	return errors.As(err, &p)
}
