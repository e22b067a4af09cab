package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

type createRoomRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	MaxPlayers  int                    `json:"maxPlayers"`
	IsPrivate   bool                   `json:"isPrivate"`
	Rules       map[string]interface{} `json:"rules"`
}

type createRoomResponse struct {
	lobby.RoomSummary
	HostUserID uuid.UUID  `json:"hostUserId"`
	Rules      game.Rules `json:"rules"`
	JoinURL    string     `json:"joinUrl"`
	QRCodeURL  string     `json:"qrCodeUrl"`
}

// joinURL is the link a QR invite encodes.
func (gs *GameServer) joinURL(roomID uuid.UUID) string {
	return fmt.Sprintf("%s/room/%s", gs.PublicBaseURL, roomID)
}

// CreateRoomHandler creates an in-memory room hosted by the caller.
func CreateRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := gs.EnsureEphemeralUser(w, r)
		if err != nil {
			gs.Logger.Errorf("create room: %v", err)
			http.Error(w, "could not identify user", http.StatusInternalServerError)
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}
		if req.MaxPlayers != 0 && req.MaxPlayers < 2 {
			http.Error(w, "maxPlayers must be at least 2", http.StatusBadRequest)
			return
		}

		rules := gs.DefaultRules
		if req.Rules != nil {
			if err := rules.Update(req.Rules); err != nil {
				http.Error(w, fmt.Sprintf("invalid rules: %v", err), http.StatusBadRequest)
				return
			}
		}

		room := gs.NewRoom(models.PlayerFromUser(user), req.Name, req.MaxPlayers, req.IsPrivate)
		room.Mu.Lock()
		room.Description = req.Description
		room.Rules = rules
		room.Mu.Unlock()

		writeJSON(w, http.StatusOK, createRoomResponse{
			RoomSummary: room.Summary(),
			HostUserID:  user.ID,
			Rules:       rules,
			JoinURL:     gs.joinURL(room.ID),
			QRCodeURL:   fmt.Sprintf("%s/room/qr/%s", gs.PublicBaseURL, room.ID),
		})
	}
}

// ListRoomsHandler returns the public rooms.
func ListRoomsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, gs.RoomStore.ListRooms())
	}
}

// RoomQRHandler serves a PNG QR code of the room's join link. ?size= sets the
// edge length in pixels.
func RoomQRHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := roomIDFromPath(r, "/room/qr/")
		if err != nil {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}
		if _, ok := gs.RoomStore.GetRoom(roomID); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		size := 256
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 64 || n > 1024 {
				http.Error(w, "size must be between 64 and 1024", http.StatusBadRequest)
				return
			}
			size = n
		}

		png, err := qrcode.Encode(gs.joinURL(roomID), qrcode.Medium, size)
		if err != nil {
			gs.Logger.Errorf("qr encode for room %s: %v", roomID, err)
			http.Error(w, "failed to render qr code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}
