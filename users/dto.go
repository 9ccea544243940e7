package users

import "encoding/json"

// ProfileResponse is the public view of a user returned by get-me.
// It never contains the password hash or session ids.
//
// The game-state fields are passed through as stored, so a client sees the
// same values the game wrote, whatever their JSON type.
// @Description Profile of the logged-in user
type ProfileResponse struct {
	Username string `json:"username" example:"alice"`
	// `*string` so a user without an email is `null` in JSON.
	Email        *string         `json:"email" example:"alice@example.com"`
	Fish         json.RawMessage `json:"fish" swaggertype:"number" example:"0"`
	Level        json.RawMessage `json:"level" swaggertype:"number" example:"0"`
	Created      json.RawMessage `json:"created" swaggertype:"string" example:"2026-01-15T10:30:00Z"`
	Clan         json.RawMessage `json:"clan" swaggertype:"object"`
	Icon         json.RawMessage `json:"icon" swaggertype:"string" example:"awatar.json"`
	Achievements json.RawMessage `json:"achievements" swaggertype:"array,string"`
}

// Profile builds the public view of u. Missing game-state keys are shown with
// their registration defaults.
func (u *UserRecord) Profile() ProfileResponse {
	return ProfileResponse{
		Username:     u.Username,
		Email:        u.Email,
		Fish:         u.FieldOr("fish", "0"),
		Level:        u.FieldOr("level", "0"),
		Created:      u.FieldOr("created", "null"),
		Clan:         u.FieldOr("clan", "null"),
		Icon:         u.FieldOr("icon", "null"),
		Achievements: u.FieldOr("achievements", "[]"),
	}
}
