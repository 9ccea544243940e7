package auth

import "github.com/user/symbolic-cat-go/users"

// Principal is the authenticated caller of a request: the user record as read
// for this request and the session id that proved who they are.
type Principal struct {
	User      *users.UserRecord
	SessionID string
}

// Username is a shorthand for p.User.Username.
func (p *Principal) Username() string { return p.User.Username }
