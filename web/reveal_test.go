package web

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReveal_Sequence(t *testing.T) {
	r := Reveal{Tick: time.Millisecond, Steps: 3, Rand: rand.New(rand.NewSource(1))}

	var got []interface{}
	ok := r.Run(context.Background(), "Ann", func(v interface{}) { got = append(got, v) })
	require.True(t, ok)
	require.Len(t, got, 5)

	assert.Equal(t, Countdown{Type: "countdown", Remaining: 3}, got[0])
	assert.Equal(t, Countdown{Type: "countdown", Remaining: 2}, got[1])
	assert.Equal(t, Countdown{Type: "countdown", Remaining: 1}, got[2])
	assert.Equal(t, Win{Type: "winner", Winner: "Ann"}, got[3])

	c, isConfetti := got[4].(Confetti)
	require.True(t, isConfetti)
	assert.Len(t, c.Pieces, CONFETTI_PIECES)
	assert.Equal(t, int64(3000), c.Lifetime)
	for _, p := range c.Pieces {
		assert.True(t, lo.Contains(confettiColors, p.Color))
		assert.GreaterOrEqual(t, p.Left, 0.0)
		assert.Less(t, p.Left, 100.0)
		assert.GreaterOrEqual(t, p.Duration, 1.0)
		assert.Less(t, p.Duration, 3.0)
	}
}

func TestReveal_NoCountdown(t *testing.T) {
	r := Reveal{Rand: rand.New(rand.NewSource(1))}
	var got []interface{}
	require.True(t, r.Run(context.Background(), "Bo", func(v interface{}) { got = append(got, v) }))
	require.Len(t, got, 2)
	assert.Equal(t, Win{Type: "winner", Winner: "Bo"}, got[0])
}

func TestReveal_Cancelled(t *testing.T) {
	r := Reveal{Tick: time.Hour, Steps: 3, Rand: rand.New(rand.NewSource(1))}
	ctx, cancel := context.WithCancel(context.Background())

	var got []interface{}
	done := make(chan bool)
	go func() {
		done <- r.Run(ctx, "Ann", func(v interface{}) { got = append(got, v) })
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("reveal did not stop")
	}
	assert.Equal(t, []interface{}{Countdown{Type: "countdown", Remaining: 3}}, got)
}
