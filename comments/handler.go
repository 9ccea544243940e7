// Package comments serves the shared chat log: reading it, appending to it and
// streaming new lines live.
package comments

import (
	"net/http"
	"time"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/auth"
	"github.com/user/symbolic-cat-go/feed"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	service   *Service
	feed      *feed.Broadcaster
	rs        *apperror.Responder
	heartbeat time.Duration
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service *Service, broadcaster *feed.Broadcaster, rs *apperror.Responder) *CommentHandler {
	return &CommentHandler{service: service, feed: broadcaster, rs: rs, heartbeat: 25 * time.Second}
}

// HandleGetComments godoc
//
//	@Summary		List comments
//	@Description	Returns the whole chat log as an array of "username: text" strings.
//	@Tags			comments
//	@Produce		json
//	@Success		200	{array}		string
//	@Failure		502	{object}	apperror.ErrorResponse	"DB_FAIL"
//	@Router			/api/get-comments [get]
func (h *CommentHandler) HandleGetComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chats, err := h.service.List(r.Context())
		if err != nil {
			h.rs.Error(w, r, err)
			return
		}
		h.rs.JSON(w, http.StatusOK, chats)
	}
}

// HandleAddComment godoc
//
//	@Summary		Add a comment
//	@Description	Appends a comment for the logged-in user. Requires a session and the CSRF token.
//	@Tags			comments
//	@Accept			json
//	@Produce		json
//	@Param			X-Csrf-Token	header		string				true	"Same value as the csrf_token cookie"
//	@Param			body			body		AddCommentRequest	true	"Comment"
//	@Success		200				{object}	AddCommentResponse
//	@Failure		400				{object}	apperror.ErrorResponse	"EMPTY_COMMENT, EMPTY_BODY or VALIDATION"
//	@Failure		401				{object}	apperror.ErrorResponse	"UNAUTHORIZED or SESSION_EXPIRED"
//	@Failure		403				{object}	apperror.ErrorResponse	"CSRF_ERROR"
//	@Failure		502				{object}	apperror.ErrorResponse	"DB_FAIL"
//	@Router			/api/add-comment [post]
func (h *CommentHandler) HandleAddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			h.rs.Error(w, r, apperror.NewUnauthorizedError(apperror.CodeUnauthorized, "not logged in", nil))
			return
		}

		var req AddCommentRequest
		if err := auth.DecodeJSON(w, r, &req); err != nil {
			h.rs.Error(w, r, err)
			return
		}

		chats, err := h.service.Add(r.Context(), p.Username(), req.Text)
		if err != nil {
			h.rs.Error(w, r, err)
			return
		}
		h.rs.JSON(w, http.StatusOK, AddCommentResponse{Success: true, Chats: chats})
	}
}

// HandleStream godoc
//
//	@Summary		Live comments
//	@Description	Server-Sent Events stream; each new comment arrives as an event of type "comment".
//	@Tags			comments
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"event stream"
//	@Failure		401	{object}	apperror.ErrorResponse	"UNAUTHORIZED or SESSION_EXPIRED"
//	@Router			/api/comments/stream [get]
func (h *CommentHandler) HandleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.feed.Stream(w, r, h.heartbeat)
	}
}
