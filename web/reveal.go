package web

import (
	"context"
	"math/rand"
	"time"
)

var confettiColors = []string{"#ff4081", "#4CAF50", "#2196F3", "#FF9800", "#9C27B0"}

const (
	CONFETTI_PIECES   = 50
	CONFETTI_LIFETIME = 3 * time.Second
)

type Countdown struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type Win struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
}

type Piece struct {
	Color    string  `json:"color"`
	Left     float64 `json:"left"`
	Duration float64 `json:"duration"`
	Spin     float64 `json:"spin"`
}

type Confetti struct {
	Type     string  `json:"type"`
	Pieces   []Piece `json:"pieces"`
	Lifetime int64   `json:"lifetime_ms"`
}

// Reveal paces the presentation of a draw that has already been decided.
type Reveal struct {
	Tick  time.Duration
	Steps int
	Rand  *rand.Rand
}

// Run emits the countdown, the winner, then a confetti burst. It stops early,
// returning false, if ctx is cancelled between steps.
func (r Reveal) Run(ctx context.Context, winner string, emit func(interface{})) bool {
	if r.Steps > 0 {
		ticker := time.NewTicker(r.tick())
		defer ticker.Stop()

		for remaining := r.Steps; remaining > 0; remaining-- {
			emit(Countdown{Type: "countdown", Remaining: remaining})
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
	}

	if ctx.Err() != nil {
		return false
	}
	emit(Win{Type: "winner", Winner: winner})
	emit(r.confetti())
	return true
}

func (r Reveal) tick() time.Duration {
	if r.Tick <= 0 {
		return time.Millisecond
	}
	return r.Tick
}

func (r Reveal) confetti() Confetti {
	c := Confetti{
		Type:     "confetti",
		Pieces:   make([]Piece, CONFETTI_PIECES),
		Lifetime: CONFETTI_LIFETIME.Milliseconds(),
	}
	for i := range c.Pieces {
		c.Pieces[i] = Piece{
			Color:    confettiColors[r.Rand.Intn(len(confettiColors))],
			Left:     r.Rand.Float64() * 100,
			Duration: 1 + r.Rand.Float64()*2,
			Spin:     360 + r.Rand.Float64()*360,
		}
	}
	return c
}
