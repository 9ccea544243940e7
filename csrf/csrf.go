// Package csrf implements the double-submit-cookie anti-forgery check.
// The browser receives a token in a readable `csrf_token` cookie and must echo it
// in the `X-Csrf-Token` header on every state-changing request. A cross-site page
// can make the browser send the cookie but cannot read it, so it cannot forge
// the header.
package csrf

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/symbolic-cat-go/apperror"
)

const (
	// CookieName is the cookie carrying the token.
	CookieName = "csrf_token"
	// HeaderName is the request header that must repeat the cookie value.
	HeaderName = "X-Csrf-Token"
)

var (
	ErrMissingToken  = errors.New("csrf token missing")
	ErrTokenMismatch = errors.New("csrf token mismatch")
	ErrInvalidToken  = errors.New("csrf token invalid")
)

// Validate reports whether headerToken and cookieToken are both present and
// exactly equal. The comparison runs in constant time.
func Validate(headerToken, cookieToken string) bool {
	if headerToken == "" || cookieToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) == 1
}

// Issuer mints CSRF tokens. With a secret the tokens are short-lived HS256 JWTs
// and Verify checks their signature and expiry on top of the double-submit
// comparison; without one they are random ids and only the comparison applies.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty secret disables signing.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Signed reports whether tokens are signed.
func (i *Issuer) Signed() bool { return len(i.secret) > 0 }

// Issue returns a new token.
func (i *Issuer) Issue() (string, error) {
	id := uuid.NewString()
	if !i.Signed() {
		return id, nil
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   "csrf",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL())),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	return token, nil
}

// Verify checks a token that already passed Validate. Unsigned issuers accept any
// non-empty token.
func (i *Issuer) Verify(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if !i.Signed() {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithSubject("csrf"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Check runs the full anti-forgery check on r.
func (i *Issuer) Check(r *http.Request) error {
	header := r.Header.Get(HeaderName)
	var cookie string
	if c, err := r.Cookie(CookieName); err == nil {
		cookie = c.Value
	}
	if header == "" || cookie == "" {
		return ErrMissingToken
	}
	if !Validate(header, cookie) {
		return ErrTokenMismatch
	}
	return i.Verify(cookie)
}

// Middleware rejects requests that fail Check with 403 CSRF_ERROR.
// Safe methods (GET, HEAD, OPTIONS) pass through.
func (i *Issuer) Middleware(rs *apperror.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if err := i.Check(r); err != nil {
				rs.Error(w, r, apperror.NewForbiddenError("invalid or missing CSRF token", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Cookie builds the readable cookie carrying token.
func (i *Issuer) Cookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(i.TTL().Seconds()),
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	}
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	CSRFToken string `json:"csrfToken" example:"3f0c6a8e-8f7e-4b8e-9a55-0d1f2a3b4c5d"`
}

// TokenHandler issues a fresh token, sets it as a cookie and returns it in the body.
//
//	@Summary		Issue a CSRF token
//	@Description	Sets the csrf_token cookie; send the same value in the X-Csrf-Token header
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	TokenResponse
//	@Router			/api/csrf-token [get]
func (i *Issuer) TokenHandler(rs *apperror.Responder, secureCookie bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := i.Issue()
		if err != nil {
			rs.Error(w, r, apperror.NewInternalError("could not issue CSRF token", err))
			return
		}
		http.SetCookie(w, i.Cookie(token, secureCookie))
		w.Header().Set("Cache-Control", "no-store")
		rs.JSON(w, http.StatusOK, TokenResponse{CSRFToken: token})
	}
}
