package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")
	ErrNoPlayers              = errors.New("session needs at least one performer")
)

// ActionError is returned when the engine rejects an event. It carries enough of the
// current state for the caller to correct the request and retry.
type ActionError struct {
	Err        error
	Action     string
	Phase      Phase
	Round      int
	TurnHolder uuid.UUID
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s rejected: %v (phase=%s round=%d turn=%s)", e.Action, e.Err, e.Phase, e.Round, e.TurnHolder)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func reject(s State, action string, err error) *ActionError {
	ae := &ActionError{
		Err:    err,
		Action: action,
		Phase:  s.Phase,
		Round:  s.CurrentRound,
	}
	if len(s.TurnOrder) > 0 {
		ae.TurnHolder = s.TurnHolder().ID
	}
	return ae
}
