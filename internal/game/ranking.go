package game

import (
	"sort"

	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
)

// Standing is one row of the final ranking.
type Standing struct {
	Rank   int           `json:"rank"`
	Player models.Player `json:"player"`
	Score  int           `json:"score"`
}

// Rank orders players by score, highest first. Ties keep turn order and share a rank.
func Rank(turnOrder []models.Player, scores map[uuid.UUID]int) []Standing {
	standings := make([]Standing, len(turnOrder))
	for i, p := range turnOrder {
		standings[i] = Standing{Player: p, Score: scores[p.ID]}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}
