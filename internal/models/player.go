package models

import "github.com/google/uuid"

// Player is the identity a session works with. It is copied out of the room
// roster when a session starts, so later profile edits never reach a running game.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// PlayerFromUser builds the session identity for a stored user.
func PlayerFromUser(u *User) Player {
	return Player{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}
