// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Token was present but could not be verified.
	InvalidRoomIDError    = 3003 // Room in the URL does not exist.
	RoomFullError         = 3004 // Room is at capacity.
	LeftRoomClose         = 3005 // Client asked to leave the room.
)
