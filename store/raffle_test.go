package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewug/cakeraffle/roster"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type brokenSlots struct {
	*Memory
}

func (b brokenSlots) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("disk on fire")
}

func TestRegistry_PersistsMutations(t *testing.T) {
	ctx := context.Background()
	slots := NewMemory()
	g := NewRegistry(slots, quietLog())

	r, err := g.Open(ctx, "r1")
	require.NoError(t, err)

	name, err := r.Add(ctx, "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	_, err = r.Add(ctx, "Bob")
	require.NoError(t, err)

	j, ok, err := slots.Get(ctx, SlotKey("r1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["Alice","Bob"]`, string(j))

	require.NoError(t, r.Remove(ctx, "Alice"))
	j, _, _ = slots.Get(ctx, SlotKey("r1"))
	assert.JSONEq(t, `["Bob"]`, string(j))

	// failures leave the slot alone
	_, err = r.Add(ctx, "Bob")
	assert.ErrorIs(t, err, roster.ErrDuplicate)
	assert.ErrorIs(t, r.Remove(ctx, "Zed"), roster.ErrNotFound)
	j, _, _ = slots.Get(ctx, SlotKey("r1"))
	assert.JSONEq(t, `["Bob"]`, string(j))
}

func TestRegistry_RestoresFromSlot(t *testing.T) {
	ctx := context.Background()
	slots := NewMemory()
	require.NoError(t, slots.Put(ctx, SlotKey("r2"), []byte(`["Zoe","Adam"]`)))

	r, err := NewRegistry(slots, quietLog()).Open(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zoe", "Adam"}, r.Snapshot().Names)
}

func TestRegistry_RepairsTamperedSlot(t *testing.T) {
	ctx := context.Background()
	slots := NewMemory()
	require.NoError(t, slots.Put(ctx, SlotKey("r3"), []byte(`["Zoe","","Zoe"]`)))

	r, err := NewRegistry(slots, quietLog()).Open(ctx, "r3")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zoe"}, r.Snapshot().Names)

	j, _, _ := slots.Get(ctx, SlotKey("r3"))
	assert.JSONEq(t, `["Zoe"]`, string(j))
}

func TestRegistry_UnreadableSlotIsEmpty(t *testing.T) {
	ctx := context.Background()
	slots := NewMemory()
	require.NoError(t, slots.Put(ctx, SlotKey("r4"), []byte(`not json`)))

	r, err := NewRegistry(slots, quietLog()).Open(ctx, "r4")
	require.NoError(t, err)
	assert.Empty(t, r.Snapshot().Names)

	_, ok, _ := slots.Get(ctx, SlotKey("r4"))
	assert.False(t, ok)
}

func TestRegistry_OpenReturnsSameRaffle(t *testing.T) {
	ctx := context.Background()
	g := NewRegistry(NewMemory(), quietLog())
	a, err := g.Open(ctx, "same")
	require.NoError(t, err)
	b, err := g.Open(ctx, "same")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, g.Len())
}

func TestRaffle_ResetClearsSlotAndDraw(t *testing.T) {
	ctx := context.Background()
	slots := NewMemory()
	g := NewRegistry(slots, quietLog())
	r, err := g.Open(ctx, "r5")
	require.NoError(t, err)

	assert.False(t, r.Reset(ctx), "nothing to reset on a fresh raffle")

	_, err = r.Add(ctx, "A")
	require.NoError(t, err)
	winner, err := RaffleDraw(r, func() float64 { return 0 })
	require.NoError(t, err)
	assert.Equal(t, "A", winner)

	snap := r.Snapshot()
	assert.True(t, snap.Drawn)
	assert.Equal(t, "A", snap.Winner)
	assert.Equal(t, []string{"A"}, snap.Names, "drawing keeps the winner in the roster")

	assert.True(t, r.Reset(ctx))
	snap = r.Snapshot()
	assert.Empty(t, snap.Names)
	assert.False(t, snap.Drawn)
	assert.Empty(t, snap.Winner)

	_, ok, _ := slots.Get(ctx, SlotKey("r5"))
	assert.False(t, ok)
}

func TestRaffle_ResetCountsDisplayedWinner(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(NewMemory(), quietLog()).Open(ctx, "r6")
	require.NoError(t, err)
	_, err = r.Add(ctx, "A")
	require.NoError(t, err)
	_, err = RaffleDraw(r, func() float64 { return 0.5 })
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, "A"))

	// roster is empty but a winner is still showing
	assert.True(t, r.Reset(ctx))
}

func TestRaffleDraw_Empty(t *testing.T) {
	r, err := NewRegistry(NewMemory(), quietLog()).Open(context.Background(), "r7")
	require.NoError(t, err)
	_, err = RaffleDraw(r, func() float64 { return 0.1 })
	assert.ErrorIs(t, err, roster.ErrEmptyRoster)
	assert.False(t, r.Snapshot().Drawn)
}

func TestRaffle_WriteFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	g := NewRegistry(brokenSlots{NewMemory()}, quietLog())
	r, err := g.Open(ctx, "r8")
	require.NoError(t, err)

	_, err = r.Add(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, r.Snapshot().Names)
}

func TestRegistry_Sweep(t *testing.T) {
	ctx := context.Background()
	g := NewRegistry(NewMemory(), quietLog())

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	_, err := g.Open(ctx, "old")
	require.NoError(t, err)

	clock = clock.Add(20 * time.Minute)
	fresh, err := g.Open(ctx, "fresh")
	require.NoError(t, err)
	_, err = fresh.Add(ctx, "Keep")
	require.NoError(t, err)

	evicted := g.Sweep(10*time.Minute, nil)
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 1, g.Len())

	clock = clock.Add(time.Hour)
	pinned := func(id string) bool { return id == "fresh" }
	assert.Empty(t, g.Sweep(10*time.Minute, pinned))

	// the slot outlives the eviction
	assert.ElementsMatch(t, []string{"fresh"}, g.Sweep(10*time.Minute, nil))
	back, err := g.Open(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep"}, back.Snapshot().Names)
}

func TestRegistry_Adopt(t *testing.T) {
	ctx := context.Background()
	g := NewRegistry(NewMemory(), quietLog())
	r, err := g.Open(ctx, "kept")
	require.NoError(t, err)

	g.Sweep(-time.Second, nil)
	assert.Equal(t, 0, g.Len())

	g.Adopt(r)
	back, err := g.Open(ctx, "kept")
	require.NoError(t, err)
	assert.Same(t, r, back)

	// an already open raffle wins
	g.Adopt(&Raffle{Id: "kept"})
	back, err = g.Open(ctx, "kept")
	require.NoError(t, err)
	assert.Same(t, r, back)
}
