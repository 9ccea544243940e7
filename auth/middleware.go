package auth

import (
	"net/http"

	"github.com/user/symbolic-cat-go/apperror"
)

// RequireSession resolves the `session` cookie and puts the Principal into the
// request context. Requests without a valid session get 401 UNAUTHORIZED, or
// 401 SESSION_EXPIRED when the token is known but expired.
func RequireSession(svc *Service, rs *apperror.Responder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := svc.Authenticate(r.Context(), SessionToken(r))
			if err != nil {
				rs.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContextWithPrincipal(r.Context(), p)))
		})
	}
}
