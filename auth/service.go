package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/user/symbolic-cat-go/apperror"
	"github.com/user/symbolic-cat-go/credential"
	"github.com/user/symbolic-cat-go/session"
	"github.com/user/symbolic-cat-go/users"
)

const maxUsernameLength = 64

// dummyHash is compared against when a login names an unknown user, so both
// failure paths cost one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoO5rHc5Bv4Vv0Yj9Zw6QeQbH0m1s6mYdK"

// Service implements the account operations on top of the users repository.
type Service struct {
	repo     *users.Repository
	hasher   *credential.Hasher
	sessions *session.Manager
	logger   *slog.Logger
}

// NewService creates the auth service.
func NewService(repo *users.Repository, hasher *credential.Hasher, sessions *session.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger.With("component", "auth.service"),
	}
}

func validateUsername(name string) error {
	if name == "" {
		return apperror.NewValidationError("", "username and password are required", nil)
	}
	if utf8.RuneCountInString(name) > maxUsernameLength {
		return apperror.NewValidationError("", fmt.Sprintf("username must be at most %d characters", maxUsernameLength), nil)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return apperror.NewValidationError("", "username must not contain spaces or control characters", nil)
		}
	}
	return nil
}

// normalizeEmail trims the optional email; blank becomes nil.
func normalizeEmail(email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil, nil
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return nil, apperror.NewValidationError("", "email address is not valid", err)
	}
	return &trimmed, nil
}

// Register creates a new user. It fails with Conflict when the username exists;
// concurrent registrations of one name can never both succeed.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.UserRecord, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, apperror.NewValidationError("", "username and password are required", nil)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	// Hash outside the serialized update.
	hash, err := s.hasher.HashPassword(req.Password)
	if errors.Is(err, credential.ErrPasswordTooLong) {
		return nil, apperror.NewValidationError("", "password must be at most 72 bytes", err)
	}
	if err != nil {
		return nil, apperror.NewInternalError("could not hash password", err)
	}

	var created *users.UserRecord
	err = s.repo.Update(ctx, func(c users.Collection) error {
		rec := users.NewRecord(username, hash, email, s.sessions.Now())
		if err := users.InsertIfAbsent(c, username, rec); err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "username", username)
	return created, nil
}

// invalidCredentials is the single error for every login failure, so callers
// cannot tell an unknown user from a wrong password.
func invalidCredentials() error {
	return apperror.NewUnauthorizedError(apperror.CodeAuth, "invalid username or password", nil)
}

// Login checks the credentials and appends a new session to the user's record.
// Expired sessions of the user are pruned in the same write, and the stored hash
// is upgraded when the configured bcrypt cost changed.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*users.UserRecord, users.Session, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		return nil, users.Session{}, apperror.NewValidationError("", "username and password are required", nil)
	}

	c, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, users.Session{}, err
	}
	rec, findErr := users.FindByUsername(c, username)
	if findErr != nil {
		credential.VerifyPassword(req.Password, dummyHash)
		return nil, users.Session{}, invalidCredentials()
	}
	if !credential.VerifyPassword(req.Password, rec.PasswordHash) {
		s.logger.DebugContext(ctx, "login rejected", "username", username)
		return nil, users.Session{}, invalidCredentials()
	}
	verifiedHash := rec.PasswordHash

	var upgraded string
	if s.hasher.NeedsRehash(verifiedHash) {
		if upgraded, err = s.hasher.HashPassword(req.Password); err != nil {
			s.logger.WarnContext(ctx, "could not upgrade password hash", "username", username, "error", err)
			upgraded = ""
		}
	}

	sess, err := s.sessions.Issue(username)
	if err != nil {
		return nil, users.Session{}, apperror.NewInternalError("could not create session", err)
	}

	var updated *users.UserRecord
	err = s.repo.Update(ctx, func(c users.Collection) error {
		current, err := users.FindByUsername(c, username)
		if err != nil {
			return invalidCredentials()
		}
		// A concurrent login may have rehashed the password meanwhile; only a
		// hash the password no longer matches means it was changed.
		unchanged := current.PasswordHash == verifiedHash
		if !unchanged && !credential.VerifyPassword(req.Password, current.PasswordHash) {
			return invalidCredentials()
		}
		s.sessions.Prune(current)
		current.Sessions = append(current.Sessions, sess)
		if upgraded != "" && unchanged {
			current.PasswordHash = upgraded
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, users.Session{}, err
	}

	s.logger.InfoContext(ctx, "user logged in", "username", username, "sessions", len(updated.Sessions))
	return updated, sess, nil
}

// Authenticate resolves a session token to its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperror.NewUnauthorizedError(apperror.CodeUnauthorized, "not logged in", nil)
	}
	c, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.sessions.Resolve(c, token)
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return nil, apperror.NewUnauthorizedError(apperror.CodeSessionExpired, "session expired, log in again", err)
	case err != nil:
		return nil, apperror.NewUnauthorizedError(apperror.CodeUnauthorized, "not logged in", err)
	}
	return &Principal{User: rec, SessionID: token}, nil
}

// Logout removes the session token from its owner's record. An unknown token is
// not an error; there is simply nothing to write.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.Update(ctx, func(c users.Collection) error {
		for _, rec := range c {
			if session.Revoke(rec, token) {
				return nil
			}
		}
		return users.ErrSkipWrite
	})
}

// PruneExpired removes expired sessions of every user and reports how many were
// removed. Nothing is written when no session expired.
func (s *Service) PruneExpired(ctx context.Context) (int, error) {
	var removed int
	err := s.repo.Update(ctx, func(c users.Collection) error {
		removed = s.sessions.PruneAll(c)
		if removed == 0 {
			return users.ErrSkipWrite
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
