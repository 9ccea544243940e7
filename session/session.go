// Package session issues, resolves and prunes login sessions.
// Sessions are stored inside the owning user record; this package only works on
// records and collections handed to it and never talks to the store itself.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/symbolic-cat-go/users"
)

var (
	// ErrSessionNotFound means no user owns the token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired means the token exists but its expiry has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoOwner is returned by Issue for a blank username.
	ErrNoOwner = errors.New("session owner is required")
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Manager issues and checks sessions with a fixed lifetime.
type Manager struct {
	ttl   time.Duration
	clock Clock
}

// NewManager returns a Manager. A nil clock uses the wall clock.
func NewManager(ttl time.Duration, clock Clock) *Manager {
	if clock == nil {
		clock = RealClock{}
	}
	return &Manager{ttl: ttl, clock: clock}
}

// TTL is the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.clock.Now() }

// Issue creates a new session for username, valid for TTL from now. The caller
// appends it to that user's record; the session itself does not carry the name.
func (m *Manager) Issue(username string) (users.Session, error) {
	if strings.TrimSpace(username) == "" {
		return users.Session{}, ErrNoOwner
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return users.Session{}, err
	}
	now := m.clock.Now().UTC()
	return users.Session{
		ID:      id.String(),
		Created: now,
		Expires: now.Add(m.TTL()),
	}, nil
}

// Index maps session tokens to the username that owns them.
type Index struct {
	owners map[string]indexEntry
}

type indexEntry struct {
	username string
	expires  time.Time
}

// NewIndex builds the reverse index for c.
func NewIndex(c users.Collection) *Index {
	idx := &Index{owners: make(map[string]indexEntry)}
	for name, rec := range c {
		for _, s := range rec.Sessions {
			if s.ID == "" {
				continue
			}
			// A token appearing twice keeps the later expiry; ids are random uuids
			// so this only matters for hand-edited documents.
			if prev, ok := idx.owners[s.ID]; ok && !s.Expires.After(prev.expires) {
				continue
			}
			idx.owners[s.ID] = indexEntry{username: name, expires: s.Expires}
		}
	}
	return idx
}

// Len returns the number of indexed tokens.
func (idx *Index) Len() int { return len(idx.owners) }

// Lookup returns the owner of token if the session is valid at now.
func (idx *Index) Lookup(token string, now time.Time) (string, error) {
	entry, ok := idx.owners[token]
	if !ok || token == "" {
		return "", ErrSessionNotFound
	}
	if !now.Before(entry.expires) {
		return "", ErrSessionExpired
	}
	return entry.username, nil
}

// Resolve returns the user owning token if the session has not expired.
// An unknown token yields ErrSessionNotFound and an expired one ErrSessionExpired.
func (m *Manager) Resolve(c users.Collection, token string) (*users.UserRecord, error) {
	name, err := NewIndex(c).Lookup(token, m.clock.Now())
	if err != nil {
		return nil, err
	}
	rec, ok := c[name]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rec, nil
}

// Prune removes the record's expired sessions and reports how many were dropped.
// Other sessions keep their order.
func (m *Manager) Prune(rec *users.UserRecord) int {
	now := m.clock.Now()
	kept := rec.Sessions[:0]
	for _, s := range rec.Sessions {
		if s.ValidAt(now) {
			kept = append(kept, s)
		}
	}
	removed := len(rec.Sessions) - len(kept)
	rec.Sessions = kept
	return removed
}

// PruneAll prunes every record in c and returns the total removed.
func (m *Manager) PruneAll(c users.Collection) int {
	total := 0
	for _, rec := range c {
		total += m.Prune(rec)
	}
	return total
}

// Revoke removes the session with token from rec. It reports whether one was removed.
func Revoke(rec *users.UserRecord, token string) bool {
	for i, s := range rec.Sessions {
		if s.ID == token {
			rec.Sessions = append(rec.Sessions[:i], rec.Sessions[i+1:]...)
			return true
		}
	}
	return false
}
