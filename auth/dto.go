package auth

import "encoding/json"

// RegisterRequest represents the registration request payload.
// `example:"..."` tags feed the Swagger documentation.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"secret1"`
	// Email is optional; it is stored as null when absent.
	Email *string `json:"email,omitempty" example:"alice@example.com"`
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"secret1"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Success  bool   `json:"success" example:"true"`
	Message  string `json:"message" example:"registration successful"`
	Username string `json:"username" example:"alice"`
}

// LoginResponse is returned after a successful login. The session id itself only
// travels in the HttpOnly cookie. Fish and level are echoed as stored.
type LoginResponse struct {
	Success  bool            `json:"success" example:"true"`
	Message  string          `json:"message" example:"login successful"`
	Username string          `json:"username" example:"alice"`
	Fish     json.RawMessage `json:"fish" swaggertype:"number" example:"0"`
	Level    json.RawMessage `json:"level" swaggertype:"number" example:"0"`
}

// LogoutResponse is returned by logout.
type LogoutResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"logged out"`
}
