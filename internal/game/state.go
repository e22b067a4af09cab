// internal/game/state.go
package game

import (
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
)

// FailurePenalty is subtracted from the performer's score on a failed round.
const FailurePenalty = 10

// RoundResult is the verdict of the round that just finished. It only exists in PhaseResult.
type RoundResult struct {
	Success bool   `json:"success"`
	Score   int    `json:"score"`
	Message string `json:"message"`
}

// ScoreEntry is one line of the scoreboard, in turn order.
type ScoreEntry struct {
	PlayerID uuid.UUID `json:"playerId"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
}

// State is the whole session. It is only ever replaced by Apply; nothing else writes it.
type State struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	HostID uuid.UUID
	Rules  Rules

	TotalRounds      int
	CurrentRound     int
	TurnOrder        []models.Player
	CurrentTurnIndex int

	Phase         Phase
	ActiveKeyword Keyword
	Recording     bool

	Scores          map[uuid.UUID]int
	LastRoundResult *RoundResult
}

// NewState builds round one of a session. turnOrder is copied; later roster changes do not reach it.
func NewState(roomID, hostID uuid.UUID, turnOrder []models.Player, rules Rules, first Keyword) (State, error) {
	if len(turnOrder) == 0 {
		return State{}, ErrNoPlayers
	}
	if err := rules.Validate(); err != nil {
		return State{}, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return State{}, err
	}

	order := make([]models.Player, len(turnOrder))
	copy(order, turnOrder)
	scores := make(map[uuid.UUID]int, len(order))
	for _, p := range order {
		scores[p.ID] = 0
	}

	return State{
		ID:               id,
		RoomID:           roomID,
		HostID:           hostID,
		Rules:            rules,
		TotalRounds:      rules.TotalRounds,
		CurrentRound:     1,
		TurnOrder:        order,
		CurrentTurnIndex: 0,
		Phase:            PhaseWaiting,
		ActiveKeyword:    first,
		Scores:           scores,
	}, nil
}

// TurnHolder is the player indexed by CurrentTurnIndex.
func (s State) TurnHolder() models.Player {
	return s.TurnOrder[s.CurrentTurnIndex]
}

// Scoreboard lists scores in turn order.
func (s State) Scoreboard() []ScoreEntry {
	board := make([]ScoreEntry, 0, len(s.TurnOrder))
	for _, p := range s.TurnOrder {
		board = append(board, ScoreEntry{PlayerID: p.ID, Username: p.Username, Score: s.Scores[p.ID]})
	}
	return board
}

// clone copies the mutable parts so a transition never aliases the previous state.
// TurnOrder is shared; it is never written after NewState.
func (s State) clone() State {
	next := s
	next.Scores = make(map[uuid.UUID]int, len(s.Scores))
	for id, score := range s.Scores {
		next.Scores[id] = score
	}
	if s.LastRoundResult != nil {
		rr := *s.LastRoundResult
		next.LastRoundResult = &rr
	}
	return next
}
