package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/docstore"
)

// ErrSkipWrite lets an Update callback finish without writing the document.
var ErrSkipWrite = docstore.ErrSkipWrite

// Repository reads and writes the users document.
//
// LoadAll, InsertIfAbsent and Save are the plain building blocks: a caller that
// chains them runs an unprotected read-modify-write. Update is the safe path
// and the one every handler uses.
type Repository struct {
	store  docstore.Store
	writer *docstore.Writer
	logger *slog.Logger
}

// NewRepository creates a repository over the shared writers.
func NewRepository(writers *docstore.Writers, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  writers.Store(),
		writer: writers.For(docstore.ResourceUsers),
		logger: logger.With("component", "users.repository"),
	}
}

// LoadAll fetches the whole users collection. A missing document is an empty
// collection; every other failure is a store error.
func (r *Repository) LoadAll(ctx context.Context) (Collection, error) {
	doc, err := r.store.Get(ctx, docstore.ResourceUsers)
	if errors.Is(err, docstore.ErrNotFound) {
		r.logger.WarnContext(ctx, "users document not found, treating as empty")
		return Collection{}, nil
	}
	if err != nil {
		return nil, docstore.AsAppError(err, "could not load users")
	}
	c, err := DecodeCollection(doc.Body)
	if err != nil {
		return nil, apperror.NewStoreUnavailableError("users document is corrupt", err)
	}
	return c, nil
}

// FindByUsername returns the record for name or a USER_NOT_FOUND error.
func FindByUsername(c Collection, name string) (*UserRecord, error) {
	rec, ok := c[name]
	if !ok {
		return nil, apperror.NewNotFoundError(apperror.CodeUserNotFound, fmt.Sprintf("user %q not found", name), nil)
	}
	return rec, nil
}

// InsertIfAbsent adds rec under name. An existing name is a Conflict; the
// existing record is never overwritten.
func InsertIfAbsent(c Collection, name string, rec *UserRecord) error {
	if _, exists := c[name]; exists {
		return apperror.NewConflictError("username is already taken", nil)
	}
	rec.Username = name
	c[name] = rec
	return nil
}

// Save overwrites the whole users document with c, unconditionally.
func (r *Repository) Save(ctx context.Context, c Collection) error {
	body, err := c.Encode()
	if err != nil {
		return apperror.NewInternalError("could not encode users", err)
	}
	if _, err := r.store.Put(ctx, docstore.ResourceUsers, body, docstore.Condition{}); err != nil {
		return docstore.AsAppError(err, "could not save users")
	}
	return nil
}

// Update runs fn against the current collection and writes the result back
// through the users writer. fn may run several times if another writer got in
// first; it must only touch the collection it is given. Returning ErrSkipWrite
// from fn ends the update without a write.
func (r *Repository) Update(ctx context.Context, fn func(Collection) error) error {
	err := r.writer.Update(ctx, func(current []byte, exists bool) ([]byte, error) {
		c := Collection{}
		if exists {
			var err error
			if c, err = DecodeCollection(current); err != nil {
				return nil, apperror.NewStoreUnavailableError("users document is corrupt", err)
			}
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		return c.Encode()
	})
	if err != nil {
		return docstore.AsAppError(err, "could not save users")
	}
	return nil
}
