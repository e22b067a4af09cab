// internal/game/engine.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is an input to the state machine.
type Event interface {
	eventName() string
}

// BeginPerformance is sent by the turn-holder to leave PhaseWaiting.
type BeginPerformance struct {
	PlayerID uuid.UUID
}

// TimerExpired fires when the countdown or recording timer for Round runs out.
type TimerExpired struct {
	Phase Phase
	Round int
}

// VerdictReceived carries the oracle's answer for Round.
type VerdictReceived struct {
	Round   int
	Verdict Verdict
}

// AdvanceRound moves on from PhaseResult. NextKeyword is drawn by the caller so
// that Apply stays deterministic and an event log can be replayed.
type AdvanceRound struct {
	PlayerID    uuid.UUID
	NextKeyword Keyword
}

func (BeginPerformance) eventName() string { return "begin_performance" }
func (TimerExpired) eventName() string     { return "timer_expired" }
func (VerdictReceived) eventName() string  { return "verdict_received" }
func (AdvanceRound) eventName() string     { return "advance_round" }

// Effect is work the session actor has to carry out after a transition.
type Effect interface {
	isEffect()
}

// ScheduleTimer asks for a TimerExpired{Phase, Round} after After.
type ScheduleTimer struct {
	Phase Phase
	Round int
	After time.Duration
}

// RequestVerdict asks the oracle to judge the performance that just ended.
// The verdict is applied no earlier than MinDelay after the request.
type RequestVerdict struct {
	Round       int
	Keyword     Keyword
	PerformerID uuid.UUID
	MinDelay    time.Duration
	Timeout     time.Duration
}

// PhaseChanged is emitted for every transition.
type PhaseChanged struct {
	From Phase
	To   Phase
}

// SessionFinished carries the terminal ranking. It is emitted exactly once.
type SessionFinished struct {
	Ranking []Standing
}

func (ScheduleTimer) isEffect()   {}
func (RequestVerdict) isEffect()  {}
func (PhaseChanged) isEffect()    {}
func (SessionFinished) isEffect() {}

// Apply is the session transition function. It never mutates s; on error the
// returned state is s itself and the error is an *ActionError.
func Apply(s State, ev Event) (State, []Effect, error) {
	switch e := ev.(type) {
	case BeginPerformance:
		return applyBeginPerformance(s, e)
	case TimerExpired:
		return applyTimerExpired(s, e)
	case VerdictReceived:
		return applyVerdict(s, e)
	case AdvanceRound:
		return applyAdvanceRound(s, e)
	default:
		return s, nil, reject(s, fmt.Sprintf("%T", ev), ErrInvalidPhaseTransition)
	}
}

func applyBeginPerformance(s State, e BeginPerformance) (State, []Effect, error) {
	if s.Phase != PhaseWaiting {
		return s, nil, reject(s, e.eventName(), ErrInvalidPhaseTransition)
	}
	if s.TurnHolder().ID != e.PlayerID {
		return s, nil, reject(s, e.eventName(), ErrNotYourTurn)
	}

	next := s.clone()
	next.Phase = PhaseCountdown
	return next, []Effect{
		PhaseChanged{From: s.Phase, To: next.Phase},
		ScheduleTimer{Phase: PhaseCountdown, Round: next.CurrentRound, After: next.Rules.CountdownDuration()},
	}, nil
}

func applyTimerExpired(s State, e TimerExpired) (State, []Effect, error) {
	if e.Round != s.CurrentRound || e.Phase != s.Phase {
		return s, nil, reject(s, e.eventName(), ErrInvalidPhaseTransition)
	}

	next := s.clone()
	switch s.Phase {
	case PhaseCountdown:
		next.Phase = PhaseRecording
		next.Recording = true
		return next, []Effect{
			PhaseChanged{From: s.Phase, To: next.Phase},
			ScheduleTimer{Phase: PhaseRecording, Round: next.CurrentRound, After: next.Rules.RecordingDuration()},
		}, nil
	case PhaseRecording:
		next.Phase = PhaseJudging
		next.Recording = false
		return next, []Effect{
			PhaseChanged{From: s.Phase, To: next.Phase},
			RequestVerdict{
				Round:       next.CurrentRound,
				Keyword:     next.ActiveKeyword,
				PerformerID: next.TurnHolder().ID,
				MinDelay:    next.Rules.JudgingDelay(),
				Timeout:     next.Rules.JudgeTimeout(),
			},
		}, nil
	default:
		return s, nil, reject(s, e.eventName(), ErrInvalidPhaseTransition)
	}
}

func applyVerdict(s State, e VerdictReceived) (State, []Effect, error) {
	if s.Phase != PhaseJudging || e.Round != s.CurrentRound {
		return s, nil, reject(s, e.eventName(), ErrInvalidPhaseTransition)
	}

	next := s.clone()
	performer := next.TurnHolder().ID
	if e.Verdict.Success {
		next.Scores[performer] += e.Verdict.RewardScore
		next.LastRoundResult = &RoundResult{
			Success: true,
			Score:   e.Verdict.RewardScore,
			Message: fmt.Sprintf("Correct! +%d points", e.Verdict.RewardScore),
		}
	} else {
		next.Scores[performer] -= FailurePenalty
		next.LastRoundResult = &RoundResult{
			Success: false,
			Score:   -FailurePenalty,
			Message: fmt.Sprintf("Not quite! That song doesn't match the keyword. -%d points", FailurePenalty),
		}
	}
	next.Phase = PhaseResult
	return next, []Effect{PhaseChanged{From: s.Phase, To: next.Phase}}, nil
}

func applyAdvanceRound(s State, e AdvanceRound) (State, []Effect, error) {
	if s.Phase != PhaseResult || s.LastRoundResult == nil {
		return s, nil, reject(s, e.eventName(), ErrInvalidPhaseTransition)
	}

	next := s.clone()
	success := next.LastRoundResult.Success
	next.LastRoundResult = nil

	if next.CurrentRound >= next.TotalRounds {
		next.Phase = PhaseFinished
		return next, []Effect{
			PhaseChanged{From: s.Phase, To: next.Phase},
			SessionFinished{Ranking: Rank(next.TurnOrder, next.Scores)},
		}, nil
	}

	next.CurrentRound++
	if success {
		next.CurrentTurnIndex = (next.CurrentTurnIndex + 1) % len(next.TurnOrder)
	}
	next.ActiveKeyword = e.NextKeyword
	next.Phase = PhaseWaiting
	return next, []Effect{PhaseChanged{From: s.Phase, To: next.Phase}}, nil
}
