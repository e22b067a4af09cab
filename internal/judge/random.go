// Package judge holds Oracle implementations that decide whether a performance
// matched its keyword.
package judge

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/google/uuid"
)

const (
	DefaultSuccessRate = 0.7
	MinReward          = 50
	RewardSpread       = 50 // rewards fall in [MinReward, MinReward+RewardSpread)
)

// RandomOracle is a placeholder judge: it passes a performance with probability
// SuccessRate and awards a random score. Latency simulates a recognizer.
type RandomOracle struct {
	SuccessRate float64
	Latency     time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomOracle returns an oracle seeded with seed; zero seeds from the clock.
func NewRandomOracle(successRate float64, seed int64) *RandomOracle {
	if successRate < 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomOracle{
		SuccessRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (o *RandomOracle) Judge(ctx context.Context, keyword game.Keyword, performerID uuid.UUID) (game.Verdict, error) {
	if o.Latency > 0 {
		t := time.NewTimer(o.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return game.Verdict{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return game.Verdict{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rng.Float64() >= o.SuccessRate {
		return game.Verdict{Success: false}, nil
	}
	return game.Verdict{Success: true, RewardScore: MinReward + o.rng.Intn(RewardSpread)}, nil
}
