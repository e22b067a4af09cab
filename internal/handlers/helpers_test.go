package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/database"
	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/lobby"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	require.NoError(t, auth.Init(0))
	pool, err := game.NewKeywordPool(game.DefaultKeywords, 1)
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	oracle := game.OracleFunc(func(ctx context.Context, _ game.Keyword, _ uuid.UUID) (game.Verdict, error) {
		return game.Verdict{Success: true, RewardScore: 60}, nil
	})
	gs := NewGameServer(database.NewMemoryUsers(), oracle, pool, logger)
	gs.PublicBaseURL = "http://party.test"
	t.Cleanup(gs.Shutdown)
	return gs
}

// newTestUser stores an account and returns it with a cookie for it.
func newTestUser(t *testing.T, gs *GameServer, name string) (*models.User, *http.Cookie) {
	t.Helper()
	u := &models.User{Username: name, IsEphemeral: true}
	require.NoError(t, gs.Users.CreateUser(context.Background(), u))
	token, err := auth.CreateJWT(u.ID)
	require.NoError(t, err)
	return u, &http.Cookie{Name: auth.CookieName, Value: token}
}

// testConn is a member's connection without a socket behind it.
func testConn(t *testing.T, room *lobby.Room, userID uuid.UUID) *lobby.RoomConnection {
	t.Helper()
	conn := lobby.NewRoomConnection(userID, func() {})
	require.NoError(t, room.AddConnection(conn))
	return conn
}

// nextOfType drains conn until a message of type typ arrives.
func nextOfType(t *testing.T, conn *lobby.RoomConnection, typ string) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-conn.OutChan:
			if msg["type"] == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %q message received", typ)
			return nil
		}
	}
}

func testLog() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}
