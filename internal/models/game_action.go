package models

// GameAction captures a player's request coming in over the room channel.
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
}
