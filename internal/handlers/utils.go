package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/google/uuid"
)

// roomIDFromPath reads {roomID} from a routed request, or the path segment after prefix.
func roomIDFromPath(r *http.Request, prefix string) (uuid.UUID, error) {
	raw := r.PathValue("roomID")
	if raw == "" {
		raw = strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if idx := strings.Index(raw, "/"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return uuid.Parse(raw)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorKind names a gate or engine rejection for clients.
func errorKind(err error) string {
	switch {
	case errors.Is(err, lobby.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, lobby.ErrHostCannotReady):
		return "host_cannot_ready"
	case errors.Is(err, lobby.ErrNotHost):
		return "not_host"
	case errors.Is(err, lobby.ErrNotReady):
		return "not_ready"
	case errors.Is(err, lobby.ErrRoomFull):
		return "room_full"
	case errors.Is(err, lobby.ErrAlreadyInGame):
		return "already_in_game"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrInvalidPhaseTransition):
		return "invalid_phase_transition"
	case errors.Is(err, errNoSession):
		return "no_session"
	}
	return "bad_request"
}

// errorPayload builds the outbound error message, with the session position when
// the engine rejected the action.
func errorPayload(err error) map[string]interface{} {
	msg := map[string]interface{}{
		"type":    "error",
		"kind":    errorKind(err),
		"message": err.Error(),
	}
	var ae *game.ActionError
	if errors.As(err, &ae) {
		msg["action"] = ae.Action
		msg["phase"] = ae.Phase
		msg["round"] = ae.Round
		msg["turn_holder"] = ae.TurnHolder.String()
	}
	return msg
}
