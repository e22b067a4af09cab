// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errNoSession = errors.New("no session is running in this room")

// UserDirectory looks up and creates accounts. database.Users and
// database.MemoryUsers both satisfy it.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
	ClaimGuest(ctx context.Context, id uuid.UUID, email, password, username string) (*models.User, error)
}

// GameServer holds the room and session stores and creates sessions from rooms.
type GameServer struct {
	RoomStore    *lobby.RoomStore
	SessionStore *game.SessionStore
	Users        UserDirectory

	Oracle    game.Oracle
	Keywords  *game.KeywordPool
	Publisher game.ActionPublisher // optional
	Scheduler game.Scheduler       // optional, defaults to the system clock

	// DefaultRules seeds new rooms.
	DefaultRules  game.Rules
	PublicBaseURL string
	Logger        *logrus.Logger
}

func NewGameServer(users UserDirectory, oracle game.Oracle, keywords *game.KeywordPool, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		RoomStore:     lobby.NewRoomStore(),
		SessionStore:  game.NewSessionStore(),
		Users:         users,
		Oracle:        oracle,
		Keywords:      keywords,
		DefaultRules:  game.DefaultRules(),
		PublicBaseURL: "http://localhost:8080",
		Logger:        logger,
	}
}

// NewRoom creates a room hosted by host and registers it; the room drops
// itself from the store when the last member leaves.
func (gs *GameServer) NewRoom(host models.Player, name string, maxPlayers int, private bool) *lobby.Room {
	room := lobby.NewRoom(host, name, maxPlayers, private)
	room.Rules = gs.DefaultRules
	room.OnEmpty = func(roomID uuid.UUID) {
		if s := gs.SessionStore.GetSessionByRoomID(roomID); s != nil {
			gs.SessionStore.DeleteSession(s.ID)
			s.Close()
		}
		gs.RoomStore.DeleteRoom(roomID)
		gs.Logger.WithField("room", roomID).Info("room empty, removed")
	}
	gs.RoomStore.AddRoom(room)
	return room
}

// StartSession passes the room's readiness gate and launches a session for it.
func (gs *GameServer) StartSession(room *lobby.Room, requestedBy uuid.UUID) (*game.Session, error) {
	state, err := room.StartSession(requestedBy, gs.Keywords)
	if err != nil {
		return nil, err
	}

	session := game.NewSession(state, gs.Oracle, gs.Keywords, gs.Logger)
	if gs.Scheduler != nil {
		session.Scheduler = gs.Scheduler
	}
	if gs.Publisher != nil {
		session.Publisher = gs.Publisher
	}
	session.BroadcastFn = func(ev game.SessionEvent) {
		room.BroadcastAll(map[string]interface{}{
			"type":  "session_event",
			"event": ev,
		})
	}
	session.OnSessionEnd = func(roomID, sessionID uuid.UUID, ranking []game.Standing) {
		gs.SessionStore.DeleteSession(sessionID)
		room.EndSession(sessionID)
		room.BroadcastAll(map[string]interface{}{
			"type":       "session_results",
			"session_id": sessionID.String(),
			"ranking":    ranking,
		})
		room.BroadcastUpdate("session_end", uuid.Nil)
		// seats held for players who dropped mid-session are released now
		for _, id := range room.PruneDisconnected() {
			room.BroadcastUpdate("leave", id)
		}
	}

	gs.SessionStore.AddSession(session)
	session.Start()
	gs.Logger.WithFields(logrus.Fields{
		"room":       room.ID,
		"session":    session.ID,
		"performers": len(state.TurnOrder),
		"rounds":     state.TotalRounds,
	}).Info("session started")
	return session, nil
}

// releaseAbandoned ends the running session of a room nobody is connected to and
// frees the held seats, which removes the room.
func (gs *GameServer) releaseAbandoned(room *lobby.Room) {
	if room.ConnectedCount() > 0 {
		return
	}
	if s := gs.SessionStore.GetSessionByRoomID(room.ID); s != nil {
		gs.SessionStore.DeleteSession(s.ID)
		s.Close()
		room.EndSession(s.ID)
		gs.Logger.WithFields(logrus.Fields{"room": room.ID, "session": s.ID}).Info("every player disconnected, session abandoned")
	}
	room.PruneDisconnected()
}

// sessionFor returns the running session of room.
func (gs *GameServer) sessionFor(room *lobby.Room) (*game.Session, error) {
	s := gs.SessionStore.GetSessionByRoomID(room.ID)
	if s == nil {
		return nil, errNoSession
	}
	return s, nil
}

// Shutdown closes every running session.
func (gs *GameServer) Shutdown() {
	gs.SessionStore.CloseAll()
}
