package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomIssuesGuestCookie(t *testing.T) {
	gs := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewBufferString(`{"name":"Friday","maxPlayers":4}`))
	w := httptest.NewRecorder()
	CreateRoomHandler(gs).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp createRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "Friday", resp.Name)
	assert.Equal(t, 4, resp.MaxPlayers)
	assert.Equal(t, 1, resp.CurrentPlayers)
	assert.Equal(t, "http://party.test/room/"+resp.ID.String(), resp.JoinURL)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "guest cookie not set")
	hostID, err := auth.AuthenticateJWT(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, hostID, resp.HostUserID)

	room, ok := gs.RoomStore.GetRoom(resp.ID)
	require.True(t, ok)
	assert.Equal(t, hostID, room.HostUserID)
}

func TestCreateRoomUsesExistingUser(t *testing.T) {
	gs := newTestServer(t)
	user, cookie := newTestUser(t, gs, "Mina")

	req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewBufferString(`{"rules":{"totalRounds":2}}`))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	CreateRoomHandler(gs).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp createRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.HostUserID)
	assert.Equal(t, "Mina's room", resp.Name)
	assert.Equal(t, 2, resp.Rules.TotalRounds)
	assert.Equal(t, lobby.DefaultMaxPlayers, resp.MaxPlayers)
	assert.Empty(t, w.Result().Cookies(), "a valid token must not be replaced")
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	gs := newTestServer(t)
	_, cookie := newTestUser(t, gs, "Mina")

	cases := map[string]string{
		"bad json":    `{"name":`,
		"one player":  `{"maxPlayers":1}`,
		"zero rounds": `{"rules":{"totalRounds":0}}`,
		"bad type":    `{"rules":{"recordingSeconds":"long"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/room/create", bytes.NewBufferString(body))
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			CreateRoomHandler(gs).ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, gs.RoomStore.ListRooms())
}

func TestListRoomsHidesPrivate(t *testing.T) {
	gs := newTestServer(t)
	public := gs.NewRoom(models.Player{ID: uuid.New(), Username: "A"}, "open", 0, false)
	gs.NewRoom(models.Player{ID: uuid.New(), Username: "B"}, "secret", 0, true)

	w := httptest.NewRecorder()
	ListRoomsHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/room/list", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []lobby.RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, public.ID, rooms[0].ID)
}

func TestRoomQR(t *testing.T) {
	gs := newTestServer(t)
	room := gs.NewRoom(models.Player{ID: uuid.New(), Username: "A"}, "", 0, true)

	w := httptest.NewRecorder()
	RoomQRHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/room/qr/"+room.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = httptest.NewRecorder()
	RoomQRHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/room/qr/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	RoomQRHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/room/qr/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	RoomQRHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/room/qr/"+room.ID.String()+"?size=9999", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
