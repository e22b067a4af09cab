package lobby

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomConnection is a single member's live socket in the room.
type RoomConnection struct {
	UserID  uuid.UUID
	Cancel  func()
	OutChan chan map[string]interface{}
}

// NewRoomConnection creates a connection with a buffered outbound queue.
func NewRoomConnection(userID uuid.UUID, cancel func()) *RoomConnection {
	return &RoomConnection{
		UserID:  userID,
		Cancel:  cancel,
		OutChan: make(chan map[string]interface{}, 32),
	}
}

// Write queues msg without blocking. Messages to a full queue are dropped.
func (conn *RoomConnection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		logrus.WithField("user", conn.UserID).Warnf("outbound queue full, dropped %q", msgType)
	}
}

// WriteError sends an error message to this connection only.
func (conn *RoomConnection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// AddConnection registers conn for a member, replacing any previous socket.
func (r *Room) AddConnection(conn *RoomConnection) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if m, _ := r.memberUnsafe(conn.UserID); m == nil {
		return ErrNotAMember
	}
	if old, ok := r.Connections[conn.UserID]; ok && old != conn && old.Cancel != nil {
		old.Cancel()
	}
	r.Connections[conn.UserID] = conn
	return nil
}

// RemoveConnection drops conn if it is still the member's current socket and
// reports whether it was.
func (r *Room) RemoveConnection(conn *RoomConnection) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if cur, ok := r.Connections[conn.UserID]; ok && cur == conn {
		delete(r.Connections, conn.UserID)
		return true
	}
	return false
}

// ConnectedCount is the number of members with a live socket.
func (r *Room) ConnectedCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Connections)
}

// BroadcastAllUnsafe sends msg to every connected member. Assumes lock is held.
func (r *Room) BroadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range r.Connections {
		conn.Write(msg)
	}
}

// BroadcastAll sends msg to every connected member.
func (r *Room) BroadcastAll(msg map[string]interface{}) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.BroadcastAllUnsafe(msg)
}

// SendTo writes msg to one member if connected.
func (r *Room) SendTo(userID uuid.UUID, msg map[string]interface{}) {
	r.Mu.Lock()
	conn, ok := r.Connections[userID]
	r.Mu.Unlock()
	if ok {
		conn.Write(msg)
	}
}

// StatusPayloadUnsafe lists members and the gate. Assumes lock is held.
func (r *Room) StatusPayloadUnsafe() map[string]interface{} {
	users := make([]map[string]interface{}, 0, len(r.members))
	for _, m := range r.members {
		_, online := r.Connections[m.ID]
		users = append(users, map[string]interface{}{
			"id":         m.ID.String(),
			"username":   m.Username,
			"avatar_url": m.AvatarURL,
			"is_host":    m.IsHost,
			"is_ready":   m.IsReady,
			"online":     online,
		})
	}
	return map[string]interface{}{
		"users":     users,
		"can_start": r.CanStartUnsafe(),
	}
}

// StatePayload is the full room view sent to userID when they connect.
func (r *Room) StatePayload(userID uuid.UUID) map[string]interface{} {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	sessionID := ""
	if r.SessionID != uuid.Nil {
		sessionID = r.SessionID.String()
	}
	return map[string]interface{}{
		"type":         "room_state",
		"room_id":      r.ID.String(),
		"name":         r.Name,
		"host_id":      r.HostUserID.String(),
		"your_id":      userID.String(),
		"your_is_host": userID == r.HostUserID,
		"game_mode":    r.GameMode,
		"max_players":  r.MaxPlayers,
		"is_private":   r.Private,
		"in_game":      r.InGame,
		"session_id":   sessionID,
		"rules":        r.Rules,
		"room_status":  r.StatusPayloadUnsafe(),
	}
}

// BroadcastUpdate sends the current roster to everyone, tagged with what changed.
func (r *Room) BroadcastUpdate(change string, userID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.BroadcastAllUnsafe(map[string]interface{}{
		"type":        "room_update",
		"change":      change,
		"user_id":     userID.String(),
		"host_id":     r.HostUserID.String(),
		"room_status": r.StatusPayloadUnsafe(),
	})
}

// BroadcastReady announces a readiness change and the resulting gate.
func (r *Room) BroadcastReady(userID uuid.UUID, ready, canStart bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	username := ""
	if m, _ := r.memberUnsafe(userID); m != nil {
		username = m.Username
	}
	r.BroadcastAllUnsafe(map[string]interface{}{
		"type":      "ready_update",
		"user_id":   userID.String(),
		"username":  username,
		"is_ready":  ready,
		"can_start": canStart,
	})
}

// BroadcastRulesUpdate announces the current rules.
func (r *Room) BroadcastRulesUpdate() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.BroadcastAllUnsafe(map[string]interface{}{
		"type":  "rules_updated",
		"rules": r.Rules,
	})
}
