// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	roomSubprotocol = "room"
	pingInterval    = 30 * time.Second
	writeTimeout    = 5 * time.Second
)

// RoomWSHandler upgrades /room/ws/{roomID}. Callers without a token are given a
// guest account, joined to the room, and then drive the gate and session over
// the socket.
func RoomWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := roomIDFromPath(r, "/room/ws/")
		if err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		// the guest cookie has to go out with the upgrade response
		user, err := gs.EnsureEphemeralUser(w, r)
		if err != nil {
			gs.Logger.Warnf("room %s: could not identify user: %v", roomID, err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{roomSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			gs.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != roomSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}

		room, ok := gs.RoomStore.GetRoom(roomID)
		if !ok {
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}

		log := gs.Logger.WithFields(logrus.Fields{"room": roomID, "user": user.ID})
		player := models.PlayerFromUser(user)
		joined := false
		if !room.IsMember(user.ID) {
			if err := room.Join(player); err != nil {
				if errors.Is(err, lobby.ErrRoomFull) {
					c.Close(RoomFullError, "room is full")
				} else {
					c.Close(websocket.StatusPolicyViolation, err.Error())
				}
				return
			}
			joined = true
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := lobby.NewRoomConnection(user.ID, cancel)
		if err := room.AddConnection(conn); err != nil {
			// the room emptied between Join and here
			c.Close(InvalidRoomIDError, err.Error())
			return
		}
		log.WithField("remote", r.RemoteAddr).Info("connected to room")

		conn.Write(room.StatePayload(user.ID))
		if s, err := gs.sessionFor(room); err == nil {
			conn.Write(map[string]interface{}{
				"type":     "session_snapshot",
				"snapshot": s.Snapshot(),
			})
		}
		change := "reconnect"
		if joined {
			change = "join"
		}
		room.BroadcastUpdate(change, user.ID)

		go writePump(ctx, c, conn, log)
		left := readPump(ctx, c, gs, room, conn, log)

		if !room.RemoveConnection(conn) {
			// replaced by a newer socket for the same member
			log.Debug("superseded connection closed")
			return
		}
		room.Mu.Lock()
		inGame := room.InGame
		room.Mu.Unlock()
		if left {
			defer c.Close(LeftRoomClose, "left room")
		}
		if inGame {
			// seat is kept for a reconnect; released when the session ends
			room.BroadcastUpdate("disconnect", user.ID)
			log.Info("disconnected mid-session")
			gs.releaseAbandoned(room)
			return
		}
		if err := room.Leave(user.ID); err != nil {
			log.Debugf("leave on disconnect: %v", err)
			return
		}
		room.BroadcastUpdate("leave", user.ID)
		log.Info("left room")
	}
}

// readPump decodes actions until the socket closes. It reports whether the
// client asked to leave.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, room *lobby.Room, conn *lobby.RoomConnection, log *logrus.Entry) bool {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				log.Debug("socket closed")
			} else {
				log.Warnf("read error: %v (close status %d)", err, status)
			}
			return false
		}
		if typ != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var action models.GameAction
		if err := json.Unmarshal(msg, &action); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}
		if leave := handleRoomMessage(ctx, gs, room, conn, action, log); leave {
			return true
		}
	}
}

// handleRoomMessage routes one inbound action. The room lock is never held
// while calling into a session, since the session broadcasts through the room.
// It returns true when the sender wants to leave.
func handleRoomMessage(ctx context.Context, gs *GameServer, room *lobby.Room, conn *lobby.RoomConnection, action models.GameAction, log *logrus.Entry) bool {
	userID := conn.UserID

	switch action.ActionType {
	case "ready", "unready":
		ready := action.ActionType == "ready"
		canStart, err := room.SetReady(userID, ready)
		if err != nil {
			conn.Write(errorPayload(err))
			return false
		}
		room.BroadcastReady(userID, ready, canStart)

	case "update_rules":
		payload := action.Payload
		if nested, ok := action.Payload["rules"].(map[string]interface{}); ok {
			payload = nested
		}
		if err := room.UpdateRules(userID, payload); err != nil {
			conn.Write(errorPayload(err))
			return false
		}
		room.BroadcastRulesUpdate()

	case "start_session":
		if _, err := gs.StartSession(room, userID); err != nil {
			log.Debugf("start_session rejected: %v", err)
			conn.Write(errorPayload(err))
		}

	case "begin_performance", "advance_round":
		s, err := gs.sessionFor(room)
		if err == nil {
			if action.ActionType == "begin_performance" {
				err = s.BeginPerformance(ctx, userID)
			} else {
				err = s.AdvanceRound(ctx, userID)
			}
		}
		if err != nil {
			conn.Write(errorPayload(err))
		}

	case "get_state":
		conn.Write(room.StatePayload(userID))
		if s, err := gs.sessionFor(room); err == nil {
			conn.Write(map[string]interface{}{
				"type":     "session_snapshot",
				"snapshot": s.Snapshot(),
			})
		}

	case "leave_room":
		return true

	case "ping":
		conn.Write(map[string]interface{}{"type": "pong", "ts": time.Now().UnixMilli()})

	default:
		log.Warnf("unknown action %q", action.ActionType)
		conn.WriteError(fmt.Sprintf("Unknown action type: %s", action.ActionType))
	}
	return false
}

// writePump drains the connection's queue onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.RoomConnection, log *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Warnf("ping failed, assuming disconnect: %v", err)
				conn.Cancel()
				return
			}
		}
	}
}
