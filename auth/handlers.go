package auth

import (
	"net/http"

	"github.com/user/symbolic-cat-go/apperror"
)

// Handlers exposes the auth Service over HTTP.
type Handlers struct {
	service *Service
	rs      *apperror.Responder
	cookies CookieOptions
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *Service, rs *apperror.Responder, cookies CookieOptions) *Handlers {
	return &Handlers{service: service, rs: rs, cookies: cookies}
}

// HandleRegister godoc
//
//	@Summary		Register a user
//	@Description	Creates a new account. Requires the CSRF double-submit token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Csrf-Token	header		string			true	"Same value as the csrf_token cookie"
//	@Param			body			body		RegisterRequest	true	"Registration details"
//	@Success		200				{object}	RegisterResponse
//	@Failure		400				{object}	apperror.ErrorResponse	"VALIDATION or EMPTY_BODY"
//	@Failure		403				{object}	apperror.ErrorResponse	"CSRF_ERROR"
//	@Failure		409				{object}	apperror.ErrorResponse	"USERNAME_TAKEN"
//	@Failure		502				{object}	apperror.ErrorResponse	"DB_FAIL"
//	@Router			/api/register-user [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := DecodeJSON(w, r, &req); err != nil {
			h.rs.Error(w, r, err)
			return
		}

		user, err := h.service.Register(r.Context(), req)
		if err != nil {
			h.rs.Error(w, r, err)
			return
		}

		h.rs.JSON(w, http.StatusOK, RegisterResponse{
			Success:  true,
			Message:  "registration successful",
			Username: user.Username,
		})
	}
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Checks the credentials, appends a session to the user and sets the session cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Csrf-Token	header		string			true	"Same value as the csrf_token cookie"
//	@Param			body			body		LoginRequest	true	"Credentials"
//	@Success		200				{object}	LoginResponse
//	@Failure		400				{object}	apperror.ErrorResponse	"VALIDATION or EMPTY_BODY"
//	@Failure		401				{object}	apperror.ErrorResponse	"AUTH"
//	@Failure		403				{object}	apperror.ErrorResponse	"CSRF_ERROR"
//	@Failure		502				{object}	apperror.ErrorResponse	"DB_FAIL"
//	@Router			/api/login-user [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := DecodeJSON(w, r, &req); err != nil {
			h.rs.Error(w, r, err)
			return
		}

		user, sess, err := h.service.Login(r.Context(), req)
		if err != nil {
			h.rs.Error(w, r, err)
			return
		}

		ttl := sess.Expires.Sub(sess.Created)
		http.SetCookie(w, h.cookies.sessionCookie(sess.ID, ttl))
		http.SetCookie(w, h.cookies.usernameCookie(user.Username, ttl))
		h.rs.JSON(w, http.StatusOK, LoginResponse{
			Success:  true,
			Message:  "login successful",
			Username: user.Username,
			Fish:     user.FieldOr("fish", "0"),
			Level:    user.FieldOr("level", "0"),
		})
	}
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the current session and clears the auth cookies.
//	@Tags			auth
//	@Produce		json
//	@Param			X-Csrf-Token	header		string	true	"Same value as the csrf_token cookie"
//	@Success		200				{object}	LogoutResponse
//	@Failure		401				{object}	apperror.ErrorResponse	"UNAUTHORIZED or SESSION_EXPIRED"
//	@Failure		403				{object}	apperror.ErrorResponse	"CSRF_ERROR"
//	@Router			/api/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if p, ok := PrincipalFromContext(r.Context()); ok {
			token = p.SessionID
		}
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.rs.Error(w, r, err)
			return
		}

		http.SetCookie(w, h.cookies.clear(SessionCookieName, true))
		http.SetCookie(w, h.cookies.clear(UsernameCookieName, false))
		h.rs.JSON(w, http.StatusOK, LogoutResponse{Success: true, Message: "logged out"})
	}
}

// HandleGetMe godoc
//
//	@Summary		Current user
//	@Description	Returns the profile of the user owning the session cookie.
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	users.ProfileResponse
//	@Failure		401	{object}	apperror.ErrorResponse	"UNAUTHORIZED or SESSION_EXPIRED"
//	@Failure		502	{object}	apperror.ErrorResponse	"DB_FAIL"
//	@Router			/api/get-me [get]
func (h *Handlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			h.rs.Error(w, r, apperror.NewUnauthorizedError(apperror.CodeUnauthorized, "not logged in", nil))
			return
		}
		h.rs.JSON(w, http.StatusOK, p.User.Profile())
	}
}
