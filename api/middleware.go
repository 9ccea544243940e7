package api

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/symbolic-cat-go/apperror"
)

// Recoverer turns a panicking handler into a 500 with the standard error body.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer(rs *apperror.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				err := apperror.NewInternalError("internal server error", fmt.Errorf("panic: %v\n%s", rvr, debug.Stack()))
				if ww.Status() != 0 {
					// Headers are already out; all we can do is log it.
					rs.Logger().ErrorContext(r.Context(), "panic after response started", "error", err)
					return
				}
				rs.Error(ww, r, err)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
