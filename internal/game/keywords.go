// internal/game/keywords.go
package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Category tells the performer what the keyword must match.
type Category string

const (
	CategoryTitle     Category = "title"     // keyword must appear in the song title
	CategoryPerformer Category = "performer" // song must be by this artist
)

// Keyword is the prompt the turn-holder has to sing to.
type Keyword struct {
	Word     string   `json:"word"`
	Category Category `json:"category"`
}

// DefaultKeywords is the stock prompt list shipped with the game.
var DefaultKeywords = []Keyword{
	{Word: "사랑", Category: CategoryTitle},
	{Word: "BTS", Category: CategoryPerformer},
	{Word: "밤", Category: CategoryTitle},
	{Word: "아이유", Category: CategoryPerformer},
	{Word: "꽃", Category: CategoryTitle},
	{Word: "뉴진스", Category: CategoryPerformer},
	{Word: "눈", Category: CategoryTitle},
	{Word: "블랙핑크", Category: CategoryPerformer},
}

var ErrEmptyKeywordPool = errors.New("keyword pool is empty")

// KeywordPool draws keywords uniformly at random with replacement.
// It is safe for concurrent use by several sessions.
type KeywordPool struct {
	mu    sync.Mutex
	words []Keyword
	rng   *rand.Rand
}

// NewKeywordPool copies words into a pool seeded with seed. A zero seed uses the clock.
func NewKeywordPool(words []Keyword, seed int64) (*KeywordPool, error) {
	if len(words) == 0 {
		return nil, ErrEmptyKeywordPool
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pool := &KeywordPool{
		words: make([]Keyword, len(words)),
		rng:   rand.New(rand.NewSource(seed)),
	}
	copy(pool.words, words)
	return pool, nil
}

// Draw returns a random keyword. Repeats across rounds are allowed.
func (p *KeywordPool) Draw() Keyword {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.words[p.rng.Intn(len(p.words))]
}

func (p *KeywordPool) Len() int {
	return len(p.words)
}
