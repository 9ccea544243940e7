// Package users holds the user document model and the repository that reads and
// writes it. All users live in one JSON document keyed by username:
//
//	{"alice": {"password": "$2a$10$...", "fish": 0, "sessions": [...]}, ...}
//
// The document is shared with the game client and other tools that own the
// game-state fields (fish, level, clan, shops, ...). This service only owns
// the password hash and the session list. Everything else is kept as the raw
// JSON it was read as and written back unchanged, so a value this service
// would not understand (a fractional fish count, a clan stored as a string) can
// never make the whole document unreadable or be rewritten by a login.
package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Defaults applied to freshly registered records.
const (
	DefaultType = "user"
	DefaultIcon = "awatar.json"
)

// Keys of the fields this service reads or writes.
const (
	keyPassword = "password"
	keyEmail    = "email"
	keySessions = "sessions"
)

// Session is one login session of a user.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Expires time.Time `json:"expires"`
}

// ValidAt reports whether the session is still usable at now.
func (s Session) ValidAt(now time.Time) bool { return now.Before(s.Expires) }

// UserRecord is one entry of the users document.
type UserRecord struct {
	// Username is the document key. It is not stored inside the record.
	Username string
	// PasswordHash is "" when the stored value is missing or not a string; in
	// that case the stored value is left untouched on write.
	PasswordHash string
	// Email is read-only: nil when absent, null or not a string.
	Email *string
	// Sessions are written back only when the record had a sessions key or
	// now holds at least one session.
	Sessions []Session

	// fields holds every stored key verbatim, including the ones decoded above.
	fields map[string]json.RawMessage
	// sessionsUnreadable is set when the stored sessions value did not decode.
	sessionsUnreadable bool
	// opaque is set for an entry that is not a JSON object at all. It is
	// written back exactly as read and never matches a login.
	opaque json.RawMessage
}

// NewRecord returns a record with the registration defaults filled in.
func NewRecord(username, passwordHash string, email *string, now time.Time) *UserRecord {
	created, _ := json.Marshal(now.UTC())
	emailJSON := json.RawMessage("null")
	if email != nil {
		emailJSON, _ = json.Marshal(*email)
	}
	return &UserRecord{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Sessions:     []Session{},
		fields: map[string]json.RawMessage{
			keyEmail:              emailJSON,
			"created":             created,
			"fish":                json.RawMessage("0"),
			"level":               json.RawMessage("0"),
			"type":                json.RawMessage(`"` + DefaultType + `"`),
			"icon":                json.RawMessage(`"` + DefaultIcon + `"`),
			"clan":                json.RawMessage("null"),
			"achievements":        json.RawMessage("[]"),
			"shops":               json.RawMessage("{}"),
			"fridens":             json.RawMessage("{}"),
			"inactive_promocodes": json.RawMessage("[]"),
			keySessions:           json.RawMessage("[]"),
		},
	}
}

// Field returns the stored JSON of key, or nil when the record has no such key.
func (u *UserRecord) Field(key string) json.RawMessage {
	return u.fields[key]
}

// FieldOr returns the stored JSON of key, or def when the key is absent.
func (u *UserRecord) FieldOr(key, def string) json.RawMessage {
	if v, ok := u.fields[key]; ok && len(bytes.TrimSpace(v)) > 0 {
		return v
	}
	return json.RawMessage(def)
}

// Opaque reports whether the entry was not a JSON object.
func (u *UserRecord) Opaque() bool { return u.opaque != nil }

// UnmarshalJSON never fails on content: an entry that is not an object becomes
// an opaque record, and a field whose value does not fit its Go type keeps the
// zero value while its raw JSON is preserved.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	username := u.Username
	*u = UserRecord{Username: username}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		u.opaque = append(json.RawMessage(nil), data...)
		return nil
	}
	u.fields = fields

	if raw, ok := fields[keyPassword]; ok {
		_ = json.Unmarshal(raw, &u.PasswordHash)
	}
	if raw, ok := fields[keyEmail]; ok {
		var email string
		if json.Unmarshal(raw, &email) == nil {
			u.Email = &email
		}
	}
	if raw, ok := fields[keySessions]; ok {
		if err := json.Unmarshal(raw, &u.Sessions); err != nil {
			u.Sessions = nil
			u.sessionsUnreadable = true
		}
	}
	return nil
}

func (u UserRecord) MarshalJSON() ([]byte, error) {
	if u.opaque != nil {
		return u.opaque, nil
	}

	out := make(map[string]json.RawMessage, len(u.fields)+2)
	for k, v := range u.fields {
		out[k] = v
	}

	if u.PasswordHash != "" {
		b, err := json.Marshal(u.PasswordHash)
		if err != nil {
			return nil, err
		}
		out[keyPassword] = b
	}

	_, hadSessions := u.fields[keySessions]
	keepUnreadable := u.sessionsUnreadable && len(u.Sessions) == 0
	if (hadSessions || len(u.Sessions) > 0) && !keepUnreadable {
		sessions := u.Sessions
		if sessions == nil {
			sessions = []Session{}
		}
		b, err := json.Marshal(sessions)
		if err != nil {
			return nil, err
		}
		out[keySessions] = b
	}
	return json.Marshal(out)
}

// Collection maps usernames to records. Keys are case-sensitive.
type Collection map[string]*UserRecord

// DecodeCollection parses the users document. An empty body is an empty
// collection. Only a document that is not a JSON object is an error; a broken
// entry inside it is kept opaque.
func DecodeCollection(body []byte) (Collection, error) {
	c := Collection{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return c, nil
	}
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, fmt.Errorf("decode users document: %w", err)
	}
	for name, rec := range c {
		if rec == nil {
			// A null entry; json skips UnmarshalJSON for it.
			rec = &UserRecord{opaque: json.RawMessage("null")}
			c[name] = rec
		}
		rec.Username = name
	}
	return c, nil
}

// Encode serializes the collection back into the users document.
func (c Collection) Encode() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]*UserRecord(c))
	if err != nil {
		return nil, fmt.Errorf("encode users document: %w", err)
	}
	return b, nil
}
