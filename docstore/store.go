// Package docstore is the client side of the remote JSON document store.
// A store holds whole documents addressed by a resource name ("users", "chats").
// There is no field-level update: callers read a full document, change it in
// memory and write the full document back. Every backend reports a version for
// each document so that writes can be made conditional on what was read.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Resource names used by the service.
const (
	ResourceUsers = "users"
	ResourceChats = "chats"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned by Put when the write condition did not hold.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrClosed is returned when a Writer has been shut down.
	ErrClosed = errors.New("document writer closed")
	// ErrSkipWrite can be returned by a Mutator to finish an update without writing.
	ErrSkipWrite = errors.New("nothing to write")
)

// Document is one stored JSON document and the version it was read at.
// Version is opaque to callers; an empty Version means the backend could not
// report one and conditional writes fall back to unconditional overwrites.
type Document struct {
	Body    []byte
	Version string
}

// Condition restricts when Put may overwrite a document.
// The zero value means "overwrite unconditionally".
type Condition struct {
	// IfMatch requires the stored version to equal this value.
	IfMatch string
	// IfAbsent requires that no document exists yet.
	IfAbsent bool
}

// IsZero reports whether c imposes no condition.
func (c Condition) IsZero() bool { return c.IfMatch == "" && !c.IfAbsent }

// Store is a whole-document JSON store.
type Store interface {
	// Get fetches the full document. A missing document yields ErrNotFound.
	Get(ctx context.Context, resource string) (*Document, error)
	// Put overwrites the full document when cond holds and returns the new version.
	// A failed condition yields ErrVersionConflict.
	Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error)
	// Name identifies the backend in logs.
	Name() string
	// Conditional reports whether Put enforces cond against other writers.
	Conditional() bool
}

// StatusError is a non-2xx response from an HTTP-based backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}
