package docstore

import (
	"context"
	"errors"

	"github.com/user/symbolic-cat-go/apperror"
)

// CodeBusy is reported when a document kept changing under every retry.
const CodeBusy = "DB_BUSY"

// AsAppError maps a store failure to the application error taxonomy.
// Errors that already are *apperror.AppError (for example a Conflict raised by a
// mutator) pass through unchanged.
func AsAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.NewStoreTimeoutError(message, err)
	case errors.Is(err, ErrVersionConflict):
		return apperror.NewAppError(apperror.StoreUnavailableError, CodeBusy, "the data changed while saving, try again", err)
	default:
		return apperror.NewStoreUnavailableError(message, err)
	}
}
