package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/thewug/cakeraffle/roster"
)

// Raffle is one browser's raffle: its roster plus whatever draw is on display.
// The roster is authoritative; the slot is only a mirror of it.
type Raffle struct {
	Id string

	mu       sync.Mutex
	roster   *roster.Roster
	winner   string
	drawn    bool
	touched  time.Time
	registry *Registry
}

type Snapshot struct {
	Id     string   `json:"id"`
	Names  []string `json:"names"`
	Winner string   `json:"winner,omitempty"`
	Drawn  bool     `json:"drawn"`
}

func (r *Raffle) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Id:     r.Id,
		Names:  r.roster.Names(),
		Winner: r.winner,
		Drawn:  r.drawn,
	}
}

// Add returns the name as stored, i.e. trimmed.
func (r *Raffle) Add(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	err := r.roster.Add(name)
	if err != nil {
		return "", err
	}
	r.save(ctx)
	names := r.roster.Names()
	return names[len(names)-1], nil
}

func (r *Raffle) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	err := r.roster.Remove(name)
	if err != nil {
		return err
	}
	r.save(ctx)
	return nil
}

// Reset empties the raffle and clears its slot. It reports whether there was
// anything to clear, counting a displayed winner.
func (r *Raffle) Reset(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	had := !r.roster.Empty() || r.drawn
	r.roster.Reset()
	r.winner = ""
	r.drawn = false
	r.registry.clear(ctx, r.Id)
	return had
}

// RaffleDraw picks the winner now. Revealing it is up to the caller.
func RaffleDraw(r *Raffle, src roster.Source) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	winner, err := r.roster.Draw(src)
	if err != nil {
		return "", err
	}
	r.winner = winner
	r.drawn = true
	return winner, nil
}

func (r *Raffle) touch() {
	r.touched = r.registry.now()
}

func (r *Raffle) save(ctx context.Context) {
	j, err := json.Marshal(r.roster)
	if err != nil {
		r.registry.log.Error("marshal roster", "raffle", r.Id, "err", err)
		return
	}
	r.registry.put(ctx, r.Id, j)
}

// Registry owns every live raffle, keyed by id.
type Registry struct {
	slots Slots
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	raffles map[string]*Raffle
}

func NewRegistry(slots Slots, log *slog.Logger) *Registry {
	return &Registry{
		slots:   slots,
		log:     log,
		now:     time.Now,
		raffles: make(map[string]*Raffle),
	}
}

// Open returns the live raffle for id, restoring it from its slot on first use.
func (g *Registry) Open(ctx context.Context, id string) (*Raffle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.raffles[id]; ok {
		return r, nil
	}

	r := &Raffle{
		Id:       id,
		roster:   &roster.Roster{},
		registry: g,
	}
	r.touch()

	j, ok, err := g.slots.Get(ctx, SlotKey(id))
	if err != nil {
		return nil, err
	}
	if ok {
		restored, rejected, err := roster.Restore(j)
		if err != nil {
			// an unreadable slot is treated like a missing one
			g.log.Warn("discarding unreadable slot", "raffle", id, "err", err)
			g.clear(ctx, id)
		} else {
			r.roster = restored
			if len(rejected) > 0 {
				g.log.Warn("dropped invalid names from slot", "raffle", id, "rejected", rejected)
				r.save(ctx)
			}
		}
	}

	g.raffles[id] = r
	g.log.Debug("raffle opened", "raffle", id, "participants", r.roster.Len())
	return r, nil
}

// Adopt puts a live raffle back under the registry, unless one with the same
// id is already open.
func (g *Registry) Adopt(r *Raffle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.raffles[r.Id]; !ok {
		g.raffles[r.Id] = r
	}
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.raffles)
}

// Sweep forgets raffles untouched for longer than idle and returns their ids.
// Raffles for which keep reports true are spared. Slots stay, so a later Open
// restores them.
func (g *Registry) Sweep(idle time.Duration, keep func(id string) bool) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-idle)
	var evicted []string
	for id, r := range g.raffles {
		r.mu.Lock()
		stale := r.touched.Before(cutoff)
		r.mu.Unlock()
		if stale && (keep == nil || !keep(id)) {
			delete(g.raffles, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// writes are fire-and-forget; a failure is logged and the raffle carries on.
func (g *Registry) put(ctx context.Context, id string, j []byte) {
	err := g.slots.Put(ctx, SlotKey(id), j)
	if err != nil {
		g.log.Error("write slot", "raffle", id, "err", err)
	}
}

func (g *Registry) clear(ctx context.Context, id string) {
	err := g.slots.Delete(ctx, SlotKey(id))
	if err != nil {
		g.log.Error("clear slot", "raffle", id, "err", err)
	}
}
