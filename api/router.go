// Package api assembles the HTTP surface: global middleware, the route table
// and the JSON fallbacks for unknown paths and wrong methods.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/auth"
	"github.com/user/symbolic-cat-go/comments"
	"github.com/user/symbolic-cat-go/csrf"
)

// requestTimeout bounds ordinary requests. The SSE stream is exempt.
const requestTimeout = 60 * time.Second

// Deps are the handlers and services the router wires together.
type Deps struct {
	Responder      *apperror.Responder
	AuthService    *auth.Service
	AuthHandlers   *auth.Handlers
	Comments       *comments.CommentHandler
	CSRF           *csrf.Issuer
	AllowedOrigins []string
	SecureCookies  bool
	// Swagger mounts /swagger/* when true.
	Swagger bool
}

// NewRouter builds the chi router for the service.
func NewRouter(d Deps) http.Handler {
	rs := d.Responder
	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(Recoverer(rs))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrf.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(rs.NotFound)
	r.MethodNotAllowed(rs.MethodNotAllowed)

	r.Get("/health", handleHealth(rs))

	if d.Swagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	requireSession := auth.RequireSession(d.AuthService, rs)

	r.Route("/api", func(r chi.Router) {
		// State-changing requests need the double-submit token; GETs pass through.
		r.Use(d.CSRF.Middleware(rs))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/csrf-token", d.CSRF.TokenHandler(rs, d.SecureCookies))
			r.Post("/register-user", d.AuthHandlers.HandleRegister())
			r.Post("/login-user", d.AuthHandlers.HandleLogin())
			r.Get("/get-comments", d.Comments.HandleGetComments())

			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Post("/logout", d.AuthHandlers.HandleLogout())
				r.Get("/get-me", d.AuthHandlers.HandleGetMe())
				r.Post("/add-comment", d.Comments.HandleAddComment())
			})
		})

		r.With(requireSession).Get("/comments/stream", d.Comments.HandleStream())
	})

	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// handleHealth godoc
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func handleHealth(rs *apperror.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
