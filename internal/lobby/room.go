// internal/lobby/room.go
package lobby

import (
	"fmt"
	"sync"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxPlayers = 6
	DefaultGameMode   = "kissing_you"
)

// Member is a player's seat in a room. IsReady is only meaningful for guests.
type Member struct {
	models.Player
	IsHost   bool      `json:"isHost"`
	IsReady  bool      `json:"isReady"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Room holds the roster and readiness of players waiting to start a session.
// Roster order is join order and becomes the turn order of the next session.
type Room struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	GameMode    string     `json:"gameMode"`
	Description string     `json:"description,omitempty"`
	MaxPlayers  int        `json:"maxPlayers"`
	Private     bool       `json:"isPrivate"`
	HostUserID  uuid.UUID  `json:"hostUserId"`
	Rules       game.Rules `json:"rules"`

	InGame    bool      `json:"inGame"`
	SessionID uuid.UUID `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	members []*Member

	// Connections holds the live sockets of members, by user id.
	Connections map[uuid.UUID]*RoomConnection `json:"-"`

	// OnEmpty is called after the last member leaves, typically
	//   room.OnEmpty = func(id uuid.UUID) { store.DeleteRoom(id) }
	OnEmpty func(roomID uuid.UUID) `json:"-"`

	Mu sync.Mutex `json:"-"`
}

// NewRoom creates a room with host as its only member.
func NewRoom(host models.Player, name string, maxPlayers int, private bool) *Room {
	if maxPlayers < 2 {
		maxPlayers = DefaultMaxPlayers
	}
	if name == "" {
		name = fmt.Sprintf("%s's room", host.Username)
	}
	now := time.Now()
	return &Room{
		ID:          uuid.New(),
		Name:        name,
		GameMode:    DefaultGameMode,
		MaxPlayers:  maxPlayers,
		Private:     private,
		HostUserID:  host.ID,
		Rules:       game.DefaultRules(),
		CreatedAt:   now,
		members:     []*Member{{Player: host, IsHost: true, JoinedAt: now}},
		Connections: make(map[uuid.UUID]*RoomConnection),
	}
}

// NewRoomWithDefaults creates a public room with default capacity and rules.
func NewRoomWithDefaults(host models.Player) *Room {
	return NewRoom(host, "", DefaultMaxPlayers, false)
}

func (r *Room) memberUnsafe(id uuid.UUID) (*Member, int) {
	for i, m := range r.members {
		if m.ID == id {
			return m, i
		}
	}
	return nil, -1
}

// Join appends p to the roster as a guest who is not ready.
func (r *Room) Join(p models.Player) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if m, _ := r.memberUnsafe(p.ID); m != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyMember, p.ID)
	}
	if len(r.members) >= r.MaxPlayers {
		return fmt.Errorf("%w: %d/%d", ErrRoomFull, len(r.members), r.MaxPlayers)
	}
	r.members = append(r.members, &Member{Player: p, JoinedAt: time.Now()})
	logrus.WithFields(logrus.Fields{"room": r.ID, "user": p.ID}).Debug("player joined")
	return nil
}

// Leave removes playerID from the roster. When the host leaves, the member who
// joined earliest becomes host and loses their ready flag. A running session
// keeps its own turn order and is not affected.
func (r *Room) Leave(playerID uuid.UUID) error {
	r.Mu.Lock()
	_, idx := r.memberUnsafe(playerID)
	if idx < 0 {
		r.Mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAMember, playerID)
	}
	r.removeUnsafe(idx)
	empty := len(r.members) == 0
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(r.ID)
	}
	return nil
}

// PruneDisconnected removes members without a live connection and returns their ids.
// Members who dropped during a session keep their seat until it ends.
func (r *Room) PruneDisconnected() []uuid.UUID {
	r.Mu.Lock()
	var gone []uuid.UUID
	for i := len(r.members) - 1; i >= 0; i-- {
		id := r.members[i].ID
		if _, online := r.Connections[id]; !online {
			gone = append(gone, id)
			r.removeUnsafe(i)
		}
	}
	empty := len(r.members) == 0 && len(gone) > 0
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(r.ID)
	}
	return gone
}

// removeUnsafe drops the member at idx and hands the host role on if needed.
// Assumes lock is held.
func (r *Room) removeUnsafe(idx int) {
	m := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.Connections, m.ID)

	if m.IsHost && len(r.members) > 0 {
		next := r.members[0]
		next.IsHost = true
		next.IsReady = false
		r.HostUserID = next.ID
		logrus.WithFields(logrus.Fields{"room": r.ID, "host": next.ID}).Info("host left, promoted next member")
	}
}

// SetReady sets a guest's ready flag and reports whether the gate is now open.
func (r *Room) SetReady(playerID uuid.UUID, ready bool) (bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	m, _ := r.memberUnsafe(playerID)
	if m == nil {
		return false, fmt.Errorf("%w: %s", ErrNotAMember, playerID)
	}
	if m.IsHost {
		return false, ErrHostCannotReady
	}
	m.IsReady = ready
	return r.CanStartUnsafe(), nil
}

// CanStartUnsafe checks the gate. Assumes lock is held.
func (r *Room) CanStartUnsafe() bool {
	if len(r.members) < 2 {
		return false
	}
	guests := 0
	for _, m := range r.members {
		if m.IsHost {
			continue
		}
		guests++
		if !m.IsReady {
			return false
		}
	}
	return guests > 0
}

// CanStart reports whether the host may start a session.
func (r *Room) CanStart() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.CanStartUnsafe()
}

// StartSession builds the opening state of a new session. The guests, in roster
// order, become the turn order; the host supervises and is not timed.
func (r *Room) StartSession(requestedBy uuid.UUID, pool *game.KeywordPool) (game.State, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if requestedBy != r.HostUserID {
		return game.State{}, ErrNotHost
	}
	if r.InGame {
		return game.State{}, ErrAlreadyInGame
	}
	if !r.CanStartUnsafe() {
		return game.State{}, ErrNotReady
	}

	turnOrder := make([]models.Player, 0, len(r.members)-1)
	for _, m := range r.members {
		if !m.IsHost {
			turnOrder = append(turnOrder, m.Player)
		}
	}
	state, err := game.NewState(r.ID, r.HostUserID, turnOrder, r.Rules, pool.Draw())
	if err != nil {
		return game.State{}, fmt.Errorf("failed to create session: %w", err)
	}
	r.InGame = true
	r.SessionID = state.ID
	return state, nil
}

// EndSession marks sessionID as over and clears every guest's ready flag.
// Calls for a session that is not the current one are ignored.
func (r *Room) EndSession(sessionID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if !r.InGame || r.SessionID != sessionID {
		return
	}
	r.InGame = false
	r.SessionID = uuid.Nil
	r.resetReadyUnsafe()
}

// ResetReady clears every guest's ready flag.
func (r *Room) ResetReady() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.resetReadyUnsafe()
}

func (r *Room) resetReadyUnsafe() {
	for _, m := range r.members {
		m.IsReady = false
	}
}

// UpdateRules lets the host change session rules between sessions.
func (r *Room) UpdateRules(requestedBy uuid.UUID, payload map[string]interface{}) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if requestedBy != r.HostUserID {
		return ErrNotHost
	}
	if r.InGame {
		return ErrAlreadyInGame
	}
	return r.Rules.Update(payload)
}

// Roster returns a copy of the members in join order.
func (r *Room) Roster() []Member {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.rosterUnsafe()
}

func (r *Room) rosterUnsafe() []Member {
	out := make([]Member, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// IsMember reports whether playerID is on the roster.
func (r *Room) IsMember(playerID uuid.UUID) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	m, _ := r.memberUnsafe(playerID)
	return m != nil
}

func (r *Room) Size() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.members)
}
