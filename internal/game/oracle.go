package game

import (
	"context"

	"github.com/google/uuid"
)

// Verdict is what a judge returns for one performance.
type Verdict struct {
	Success     bool `json:"success"`
	RewardScore int  `json:"rewardScore"`
}

// Oracle judges a performance against the round keyword. How it does so (audio
// capture, recognition, a human referee) is outside the engine. Judge should
// return once ctx is done; the session treats an error as a failed round.
type Oracle interface {
	Judge(ctx context.Context, keyword Keyword, performerID uuid.UUID) (Verdict, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, keyword Keyword, performerID uuid.UUID) (Verdict, error)

func (f OracleFunc) Judge(ctx context.Context, keyword Keyword, performerID uuid.UUID) (Verdict, error) {
	return f(ctx, keyword, performerID)
}
