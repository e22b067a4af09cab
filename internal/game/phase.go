// internal/game/phase.go
package game

// Phase is the session state machine value.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"   // turn-holder has not started performing yet
	PhaseCountdown Phase = "countdown" // short lead-in before recording
	PhaseRecording Phase = "recording" // performer is singing
	PhaseJudging   Phase = "judging"   // waiting on the oracle
	PhaseResult    Phase = "result"    // verdict shown, waiting for advance_round
	PhaseFinished  Phase = "finished"  // terminal; ranking has been emitted
)

var phaseTransitions = map[Phase][]Phase{
	PhaseWaiting:   {PhaseCountdown},
	PhaseCountdown: {PhaseRecording},
	PhaseRecording: {PhaseJudging},
	PhaseJudging:   {PhaseResult},
	PhaseResult:    {PhaseWaiting, PhaseFinished},
}

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether target directly follows p in the round cycle.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range phaseTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// Timed reports whether the phase ends on a clock rather than on a player action.
func (p Phase) Timed() bool {
	return p == PhaseCountdown || p == PhaseRecording || p == PhaseJudging
}
