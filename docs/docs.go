// Package docs holds the OpenAPI document served at /swagger/doc.json.
// It follows the layout `swag init` produces; regenerate with
// `swag init -g main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        },
        "/api/csrf-token": {
            "get": {
                "description": "Sets the csrf_token cookie; send the same value in the X-Csrf-Token header",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Issue a CSRF token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/csrf.TokenResponse"}}
                }
            }
        },
        "/api/register-user": {
            "post": {
                "description": "Creates a user. Does not log the user in.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a user",
                "parameters": [
                    {"type": "string", "description": "Same value as the csrf_token cookie", "name": "X-Csrf-Token", "in": "header", "required": true},
                    {"description": "Registration details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.RegisterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.RegisterResponse"}},
                    "400": {"description": "VALIDATION or EMPTY_BODY", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "403": {"description": "CSRF_ERROR", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "409": {"description": "USERNAME_TAKEN", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "502": {"description": "DB_FAIL", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/login-user": {
            "post": {
                "description": "Checks the credentials, appends a session to the user and sets the session cookie.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"type": "string", "description": "Same value as the csrf_token cookie", "name": "X-Csrf-Token", "in": "header", "required": true},
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.LoginResponse"}},
                    "400": {"description": "VALIDATION or EMPTY_BODY", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "401": {"description": "AUTH", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "403": {"description": "CSRF_ERROR", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "502": {"description": "DB_FAIL", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/logout": {
            "post": {
                "description": "Revokes the current session and clears the auth cookies.",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log out",
                "parameters": [
                    {"type": "string", "description": "Same value as the csrf_token cookie", "name": "X-Csrf-Token", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.LogoutResponse"}},
                    "401": {"description": "UNAUTHORIZED or SESSION_EXPIRED", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "403": {"description": "CSRF_ERROR", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/get-me": {
            "get": {
                "description": "Returns the profile of the user owning the session cookie.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/users.ProfileResponse"}},
                    "401": {"description": "UNAUTHORIZED or SESSION_EXPIRED", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "502": {"description": "DB_FAIL", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/get-comments": {
            "get": {
                "description": "Returns the whole chat log as an array of \"username: text\" strings.",
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "List comments",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "502": {"description": "DB_FAIL", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/add-comment": {
            "post": {
                "description": "Appends a comment for the logged-in user. Requires a session and the CSRF token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Add a comment",
                "parameters": [
                    {"type": "string", "description": "Same value as the csrf_token cookie", "name": "X-Csrf-Token", "in": "header", "required": true},
                    {"description": "Comment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/comments.AddCommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/comments.AddCommentResponse"}},
                    "400": {"description": "EMPTY_COMMENT, EMPTY_BODY or VALIDATION", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "401": {"description": "UNAUTHORIZED or SESSION_EXPIRED", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "403": {"description": "CSRF_ERROR", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "502": {"description": "DB_FAIL", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/api/comments/stream": {
            "get": {
                "description": "Server-Sent Events stream; each new comment arrives as an event of type \"comment\".",
                "produces": ["text/event-stream"],
                "tags": ["comments"],
                "summary": "Live comments",
                "responses": {
                    "200": {"description": "event stream", "schema": {"type": "string"}},
                    "401": {"description": "UNAUTHORIZED or SESSION_EXPIRED", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}}
        },
        "apperror.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "AUTH"},
                "message": {"type": "string", "example": "invalid login or password"},
                "detail": {"type": "string"}
            }
        },
        "csrf.TokenResponse": {
            "type": "object",
            "properties": {"csrfToken": {"type": "string"}}
        },
        "auth.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "alice"},
                "password": {"type": "string", "example": "secret1"},
                "email": {"type": "string", "example": "alice@example.com"}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string", "example": "alice"},
                "password": {"type": "string", "example": "secret1"}
            }
        },
        "auth.RegisterResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "message": {"type": "string", "example": "registration successful"},
                "username": {"type": "string", "example": "alice"}
            }
        },
        "auth.LoginResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "message": {"type": "string", "example": "login successful"},
                "username": {"type": "string", "example": "alice"},
                "fish": {"type": "number", "example": 0},
                "level": {"type": "number", "example": 0}
            }
        },
        "auth.LogoutResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "message": {"type": "string", "example": "logged out"}
            }
        },
        "users.ProfileResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "fish": {"type": "number"},
                "level": {"type": "number"},
                "created": {"type": "string"},
                "clan": {"type": "object"},
                "icon": {"type": "string"},
                "achievements": {"type": "array", "items": {"type": "string"}}
            }
        },
        "comments.AddCommentRequest": {
            "type": "object",
            "properties": {"text": {"type": "string", "example": "meow"}}
        },
        "comments.AddCommentResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "chats": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Symbolic Cat API",
	Description:      "Accounts, sessions and the shared chat log of the Symbolic Cat game.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
