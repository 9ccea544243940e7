// Package auth handles registration, login, logout and the session cookie that
// authenticates every later request. The session id is looked up against the
// users document on each request; the plain `username` cookie is only a hint
// for the front end and is never trusted.
package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/symbolic-cat-go/apperror"
)

// Cookie names shared with the front end.
const (
	SessionCookieName  = "session"
	UsernameCookieName = "username"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// CookieOptions controls the attributes of the cookies auth sets.
type CookieOptions struct {
	Secure bool
}

// sessionCookie is HttpOnly so page scripts can never read the token.
func (o CookieOptions) sessionCookie(id string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// usernameCookie is readable by the page.
func (o CookieOptions) usernameCookie(username string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     UsernameCookieName,
		Value:    url.PathEscape(username),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// clear expires a cookie on the client.
func (o CookieOptions) clear(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   o.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SessionToken returns the session cookie value of r, or "".
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// DecodeJSON reads a JSON request body into dst.
// An empty body is EMPTY_BODY; malformed JSON or unknown shapes are VALIDATION.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.NewValidationError("", "request body is too large", err)
		}
		return apperror.NewValidationError("", "could not read request body", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperror.NewValidationError(apperror.CodeEmptyBody, "request body is empty", nil)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperror.NewValidationError("", "request body is not valid JSON", err)
	}
	return nil
}
