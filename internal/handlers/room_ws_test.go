package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRoomMessageGateAndSession(t *testing.T) {
	gs := newTestServer(t)
	ctx := context.Background()
	log := testLog()

	hostUser, _ := newTestUser(t, gs, "H")
	aUser, _ := newTestUser(t, gs, "A")
	bUser, _ := newTestUser(t, gs, "B")
	room := gs.NewRoom(models.PlayerFromUser(hostUser), "", 0, false)
	require.NoError(t, room.Join(models.PlayerFromUser(aUser)))
	require.NoError(t, room.Join(models.PlayerFromUser(bUser)))
	host := testConn(t, room, hostUser.ID)
	a := testConn(t, room, aUser.ID)
	b := testConn(t, room, bUser.ID)

	handleRoomMessage(ctx, gs, room, a, models.GameAction{ActionType: "start_session"}, log)
	assert.Equal(t, "not_host", nextOfType(t, a, "error")["kind"])

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "start_session"}, log)
	assert.Equal(t, "not_ready", nextOfType(t, host, "error")["kind"])

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "ready"}, log)
	assert.Equal(t, "host_cannot_ready", nextOfType(t, host, "error")["kind"])

	handleRoomMessage(ctx, gs, room, a, models.GameAction{ActionType: "ready"}, log)
	assert.Equal(t, false, nextOfType(t, host, "ready_update")["can_start"])
	handleRoomMessage(ctx, gs, room, b, models.GameAction{ActionType: "ready"}, log)
	assert.Equal(t, true, nextOfType(t, host, "ready_update")["can_start"])

	handleRoomMessage(ctx, gs, room, host, models.GameAction{
		ActionType: "update_rules",
		Payload:    map[string]interface{}{"rules": map[string]interface{}{"totalRounds": float64(1)}},
	}, log)
	rulesMsg := nextOfType(t, a, "rules_updated")
	assert.Equal(t, 1, rulesMsg["rules"].(game.Rules).TotalRounds)

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "start_session"}, log)
	started := nextOfType(t, b, "session_event")["event"].(game.SessionEvent)
	assert.Equal(t, game.EventSessionStart, started.Type)
	require.NotNil(t, started.TurnHolder)
	assert.Equal(t, aUser.ID, started.TurnHolder.ID)

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "start_session"}, log)
	assert.Equal(t, "already_in_game", nextOfType(t, host, "error")["kind"])

	handleRoomMessage(ctx, gs, room, b, models.GameAction{ActionType: "begin_performance"}, log)
	errMsg := nextOfType(t, b, "error")
	assert.Equal(t, "not_your_turn", errMsg["kind"])
	assert.Equal(t, aUser.ID.String(), errMsg["turn_holder"])

	handleRoomMessage(ctx, gs, room, a, models.GameAction{ActionType: "advance_round"}, log)
	assert.Equal(t, "invalid_phase_transition", nextOfType(t, a, "error")["kind"])

	handleRoomMessage(ctx, gs, room, a, models.GameAction{ActionType: "begin_performance"}, log)
	s, err := gs.sessionFor(room)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseCountdown, s.Snapshot().Phase)

	handleRoomMessage(ctx, gs, room, b, models.GameAction{ActionType: "get_state"}, log)
	snap := nextOfType(t, b, "session_snapshot")["snapshot"].(game.Snapshot)
	assert.Equal(t, game.PhaseCountdown, snap.Phase)
	assert.Equal(t, 1, snap.TotalRounds)
}

func TestHandleRoomMessageMisc(t *testing.T) {
	gs := newTestServer(t)
	ctx := context.Background()
	log := testLog()

	hostUser, _ := newTestUser(t, gs, "H")
	room := gs.NewRoom(models.PlayerFromUser(hostUser), "", 0, false)
	host := testConn(t, room, hostUser.ID)

	assert.False(t, handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "ping"}, log))
	nextOfType(t, host, "pong")

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "dance"}, log)
	assert.Contains(t, nextOfType(t, host, "error")["message"], "dance")

	handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "advance_round"}, log)
	assert.Equal(t, "no_session", nextOfType(t, host, "error")["kind"])

	assert.True(t, handleRoomMessage(ctx, gs, room, host, models.GameAction{ActionType: "leave_room"}, log))
}

func TestRoomWSJoinAndLeave(t *testing.T) {
	gs := newTestServer(t)
	hostUser, _ := newTestUser(t, gs, "H")
	room := gs.NewRoom(models.PlayerFromUser(hostUser), "", 0, false)
	hostConn := testConn(t, room, hostUser.ID)

	mux := http.NewServeMux()
	mux.Handle("/room/ws/{roomID}", RoomWSHandler(gs))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	guest, cookie := newTestUser(t, gs, "Guest")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/room/ws/" + room.ID.String()
	header := http.Header{}
	header.Add("Cookie", cookie.String())
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{"room"},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	defer c.CloseNow()

	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var state map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, "room_state", state["type"])
	assert.Equal(t, guest.ID.String(), state["your_id"])
	assert.Equal(t, false, state["your_is_host"])

	joined := nextOfType(t, hostConn, "room_update")
	assert.Equal(t, "join", joined["change"])
	assert.True(t, room.IsMember(guest.ID))

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"leave_room"}`)))
	left := nextOfType(t, hostConn, "room_update")
	assert.Equal(t, "leave", left["change"])
	assert.False(t, room.IsMember(guest.ID))
}

func TestRoomWSUnknownRoom(t *testing.T) {
	gs := newTestServer(t)
	_, cookie := newTestUser(t, gs, "Guest")

	mux := http.NewServeMux()
	mux.Handle("/room/ws/{roomID}", RoomWSHandler(gs))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	header := http.Header{}
	header.Add("Cookie", cookie.String())
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/room/ws/00000000-0000-0000-0000-000000000001", &websocket.DialOptions{
		Subprotocols: []string{"room"},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidRoomIDError), websocket.CloseStatus(err))
}

func dialRoom(t *testing.T, ctx context.Context, srvURL string, roomID string, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Add("Cookie", cookie.String())
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srvURL, "http")+"/room/ws/"+roomID, &websocket.DialOptions{
		Subprotocols: []string{"room"},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

// readUntil reads from the socket until a message of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestRoomWSAllDisconnectedEndsSession(t *testing.T) {
	gs := newTestServer(t)
	hostUser, hostCookie := newTestUser(t, gs, "H")
	_, guestCookie := newTestUser(t, gs, "A")
	room := gs.NewRoom(models.PlayerFromUser(hostUser), "", 0, false)

	mux := http.NewServeMux()
	mux.Handle("/room/ws/{roomID}", RoomWSHandler(gs))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := dialRoom(t, ctx, srv.URL, room.ID.String(), hostCookie)
	readUntil(t, ctx, host, "room_state")
	guest := dialRoom(t, ctx, srv.URL, room.ID.String(), guestCookie)
	readUntil(t, ctx, guest, "room_state")

	require.NoError(t, guest.Write(ctx, websocket.MessageText, []byte(`{"type":"ready"}`)))
	assert.Equal(t, true, readUntil(t, ctx, host, "ready_update")["can_start"])
	require.NoError(t, host.Write(ctx, websocket.MessageText, []byte(`{"type":"start_session"}`)))
	readUntil(t, ctx, host, "session_event")
	require.NotNil(t, gs.SessionStore.GetSessionByRoomID(room.ID))

	require.NoError(t, guest.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return room.ConnectedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	// one player is still there, so the seat and the session stay
	assert.True(t, room.IsMember(gs.SessionStore.GetSessionByRoomID(room.ID).Snapshot().TurnHolder.ID))

	require.NoError(t, host.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		_, ok := gs.RoomStore.GetRoom(room.ID)
		return !ok && gs.SessionStore.GetSessionByRoomID(room.ID) == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, room.Size())
}
