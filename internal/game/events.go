// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType is an enum-like type for broadcasting session changes.
type SessionEventType string

const (
	EventSessionStart SessionEventType = "session_start" // first snapshot, phase waiting in round 1
	EventPhaseChange  SessionEventType = "phase_change"  // every state machine transition
	EventSessionEnd   SessionEventType = "session_end"   // terminal ranking, sent once
)

// EventUser identifies a player inside an event payload.
type EventUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username,omitempty"`
}

// SessionEvent is the outbound message for presentation and telemetry.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID uuid.UUID        `json:"sessionId"`
	RoomID    uuid.UUID        `json:"roomId"`

	From        Phase        `json:"from,omitempty"`
	To          Phase        `json:"to,omitempty"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"totalRounds"`
	TurnHolder  *EventUser   `json:"turnHolder,omitempty"`
	Keyword     *Keyword     `json:"keyword,omitempty"`
	Scores      []ScoreEntry `json:"scores,omitempty"`
	Result      *RoundResult `json:"result,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"` // when the running phase timer fires
	Ranking     []Standing   `json:"ranking,omitempty"`
}

// Snapshot is a read-only copy of a session for observers.
type Snapshot struct {
	SessionID        uuid.UUID    `json:"sessionId"`
	RoomID           uuid.UUID    `json:"roomId"`
	Phase            Phase        `json:"phase"`
	Round            int          `json:"round"`
	TotalRounds      int          `json:"totalRounds"`
	CurrentTurnIndex int          `json:"currentTurnIndex"`
	TurnHolder       EventUser    `json:"turnHolder"`
	Keyword          Keyword      `json:"keyword"`
	Recording        bool         `json:"recording"`
	Scores           []ScoreEntry `json:"scores"`
	LastRoundResult  *RoundResult `json:"lastRoundResult,omitempty"`
	Deadline         *time.Time   `json:"deadline,omitempty"`
	Ranking          []Standing   `json:"ranking,omitempty"`
}

func snapshotOf(s State, deadline time.Time) Snapshot {
	holder := s.TurnHolder()
	snap := Snapshot{
		SessionID:        s.ID,
		RoomID:           s.RoomID,
		Phase:            s.Phase,
		Round:            s.CurrentRound,
		TotalRounds:      s.TotalRounds,
		CurrentTurnIndex: s.CurrentTurnIndex,
		TurnHolder:       EventUser{ID: holder.ID, Username: holder.Username},
		Keyword:          s.ActiveKeyword,
		Recording:        s.Recording,
		Scores:           s.Scoreboard(),
	}
	if s.LastRoundResult != nil {
		rr := *s.LastRoundResult
		snap.LastRoundResult = &rr
	}
	if s.Phase.Timed() && !deadline.IsZero() {
		d := deadline
		snap.Deadline = &d
	}
	if s.Phase == PhaseFinished {
		snap.Ranking = Rank(s.TurnOrder, s.Scores)
	}
	return snap
}

func phaseEvent(typ SessionEventType, snap Snapshot, from Phase) SessionEvent {
	holder := snap.TurnHolder
	kw := snap.Keyword
	return SessionEvent{
		Type:        typ,
		SessionID:   snap.SessionID,
		RoomID:      snap.RoomID,
		From:        from,
		To:          snap.Phase,
		Round:       snap.Round,
		TotalRounds: snap.TotalRounds,
		TurnHolder:  &holder,
		Keyword:     &kw,
		Scores:      snap.Scores,
		Result:      snap.LastRoundResult,
		Deadline:    snap.Deadline,
	}
}
