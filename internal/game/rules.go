// internal/game/rules.go
package game

import (
	"fmt"
	"math"
	"time"
)

// Rules defines the per-session length and timing a host can tune before starting.
type Rules struct {
	TotalRounds         int `json:"totalRounds"`         // rounds played before the ranking is produced
	CountdownSeconds    int `json:"countdownSeconds"`    // lead-in before recording starts
	RecordingSeconds    int `json:"recordingSeconds"`    // how long the performer sings
	JudgingDelaySeconds int `json:"judgingDelaySeconds"` // minimum time the judging phase is shown
	JudgeTimeoutSeconds int `json:"judgeTimeoutSeconds"` // oracle deadline; 0 => no deadline
}

// DefaultRules returns the stock five-round configuration.
func DefaultRules() Rules {
	return Rules{
		TotalRounds:         5,
		CountdownSeconds:    5,
		RecordingSeconds:    10,
		JudgingDelaySeconds: 2,
		JudgeTimeoutSeconds: 5,
	}
}

func (r Rules) CountdownDuration() time.Duration {
	return time.Duration(r.CountdownSeconds) * time.Second
}

func (r Rules) RecordingDuration() time.Duration {
	return time.Duration(r.RecordingSeconds) * time.Second
}

func (r Rules) JudgingDelay() time.Duration {
	return time.Duration(r.JudgingDelaySeconds) * time.Second
}

func (r Rules) JudgeTimeout() time.Duration {
	return time.Duration(r.JudgeTimeoutSeconds) * time.Second
}

// Validate checks the rules can drive a session.
func (r Rules) Validate() error {
	if r.TotalRounds < 1 {
		return fmt.Errorf("totalRounds must be at least 1, got %d", r.TotalRounds)
	}
	if r.CountdownSeconds < 0 || r.RecordingSeconds < 0 || r.JudgingDelaySeconds < 0 || r.JudgeTimeoutSeconds < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	return nil
}

// Update applies a partial rules payload (as decoded from JSON).
// Keys that are absent keep their old value. The receiver is untouched on error.
func (r *Rules) Update(newRules map[string]interface{}) error {
	next := *r

	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64:
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return fmt.Errorf("%s must be a whole number, got %v", key, v)
			}
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err := assignInt(&next.TotalRounds, "totalRounds", 1); err != nil {
		return err
	}
	if err := assignInt(&next.CountdownSeconds, "countdownSeconds", 0); err != nil {
		return err
	}
	if err := assignInt(&next.RecordingSeconds, "recordingSeconds", 0); err != nil {
		return err
	}
	if err := assignInt(&next.JudgingDelaySeconds, "judgingDelaySeconds", 0); err != nil {
		return err
	}
	if err := assignInt(&next.JudgeTimeoutSeconds, "judgeTimeoutSeconds", 0); err != nil {
		return err
	}

	*r = next
	return nil
}
