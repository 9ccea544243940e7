package csrf

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/logging"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name           string
		header, cookie string
		want           bool
	}{
		{"equal", "tok-1", "tok-1", true},
		{"missing header", "", "tok-1", false},
		{"missing cookie", "tok-1", "", false},
		{"both missing", "", "", false},
		{"mismatch", "tok-1", "tok-2", false},
		{"prefix", "tok", "tok-1", false},
		{"case differs", "TOK-1", "tok-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Validate(tc.header, tc.cookie))
		})
	}
}

func TestIssuer_UnsignedTokens(t *testing.T) {
	iss := NewIssuer("", time.Hour)
	assert.False(t, iss.Signed())

	a, err := iss.Issue()
	require.NoError(t, err)
	b, err := iss.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NoError(t, iss.Verify(a))
	assert.ErrorIs(t, iss.Verify(""), ErrMissingToken)
}

func TestIssuer_SignedTokens(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return now }

	token, err := iss.Issue()
	require.NoError(t, err)
	assert.NoError(t, iss.Verify(token))

	other := NewIssuer("other-secret", time.Minute)
	other.now = iss.now
	assert.ErrorIs(t, other.Verify(token), ErrInvalidToken)

	assert.ErrorIs(t, iss.Verify("forged-but-equal"), ErrInvalidToken)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, iss.Verify(token), ErrInvalidToken)
}

func newRequest(method, header, cookie string) *http.Request {
	r := httptest.NewRequest(method, "/api/login-user", nil)
	if header != "" {
		r.Header.Set(HeaderName, header)
	}
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	return r
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer("", time.Hour)
	rs := apperror.NewResponder(false, logging.Discard())
	reached := false
	h := iss.Middleware(rs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		name           string
		header, cookie string
	}{
		{"missing header", "", "tok"},
		{"missing cookie", "tok", ""},
		{"mismatch", "tok", "other"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, newRequest(http.MethodPost, tc.header, tc.cookie))

			assert.False(t, reached)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			var body apperror.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, apperror.CodeCSRF, body.Error)
		})
	}

	reached = false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(http.MethodPost, "tok", "tok"))
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)

	reached = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, newRequest(http.MethodGet, "", ""))
	assert.True(t, reached, "safe methods skip the check")
}

func TestTokenHandler(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	rs := apperror.NewResponder(false, logging.Discard())

	rec := httptest.NewRecorder()
	iss.TokenHandler(rs, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, body.CSRFToken, c.Value)
	assert.False(t, c.HttpOnly, "the page must be able to read the token")
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Equal(t, int(iss.TTL().Seconds()), c.MaxAge)
	assert.Equal(t, 12*time.Hour, NewIssuer("", 0).TTL())

	assert.NoError(t, iss.Check(newRequest(http.MethodPost, c.Value, c.Value)))
}
