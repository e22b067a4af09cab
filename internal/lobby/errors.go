package lobby

import "errors"

var (
	ErrNotAMember      = errors.New("player is not in this room")
	ErrHostCannotReady = errors.New("host readiness is not tracked")
	ErrNotHost         = errors.New("only the host can do that")
	ErrNotReady        = errors.New("not every guest is ready")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyMember   = errors.New("player already joined this room")
	ErrAlreadyInGame   = errors.New("a session is already running in this room")
)
