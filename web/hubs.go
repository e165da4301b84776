package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thewug/cakeraffle/roster"
	"github.com/thewug/cakeraffle/store"
)

// Hubs starts one RaffleHub per raffle on demand.
type Hubs struct {
	Registry *store.Registry

	Tick  time.Duration
	Steps int
	// Source picks winners; math/rand when nil.
	Source roster.Source

	ctx context.Context
	log *slog.Logger

	mu   sync.Mutex
	hubs map[string]*hubHandle
}

type hubHandle struct {
	hub    *RaffleHub
	cancel context.CancelFunc
}

func NewHubs(ctx context.Context, registry *store.Registry, log *slog.Logger) *Hubs {
	return &Hubs{
		Registry: registry,
		Tick:     600 * time.Millisecond,
		Steps:    3,
		ctx:      ctx,
		log:      log,
		hubs:     make(map[string]*hubHandle),
	}
}

func (hs *Hubs) Get(ctx context.Context, raffle_id string) (*RaffleHub, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if h, ok := hs.hubs[raffle_id]; ok {
		select {
		case <-h.hub.Done():
		default:
			return h.hub, nil
		}
	}

	raffle, err := hs.Registry.Open(ctx, raffle_id)
	if err != nil {
		return nil, err
	}

	reveal := Reveal{Tick: hs.Tick, Steps: hs.Steps}

	hubctx, cancel := context.WithCancel(hs.ctx)
	h := NewRaffleHub(raffle, reveal, hs.Source, hs.log)
	hs.hubs[raffle_id] = &hubHandle{hub: h, cancel: cancel}
	go h.Run(hubctx)
	return h, nil
}

// Connected reports whether any page is currently attached to the raffle.
func (hs *Hubs) Connected(raffle_id string) bool {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	h, ok := hs.hubs[raffle_id]
	return ok && h.hub.Connected() > 0
}

func (hs *Hubs) Close(raffle_id string) {
	hs.mu.Lock()
	h, ok := hs.hubs[raffle_id]
	delete(hs.hubs, raffle_id)
	hs.mu.Unlock()

	if ok {
		h.cancel()
		<-h.hub.Done()
	}
}

func (hs *Hubs) Len() int {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	return len(hs.hubs)
}

// Sweep evicts idle raffles without pages attached and stops their hubs.
func (hs *Hubs) Sweep(idle time.Duration) []string {
	hs.mu.Lock()
	attached := make(map[string]bool, len(hs.hubs))
	for id, h := range hs.hubs {
		attached[id] = h.hub.Connected() > 0
	}
	hs.mu.Unlock()

	// never hold hs.mu here: Get takes it before the registry lock
	evicted := hs.Registry.Sweep(idle, func(id string) bool { return attached[id] })
	var closed []string
	for _, id := range evicted {
		if hs.closeIdle(id) {
			closed = append(closed, id)
		}
	}
	if len(closed) > 0 {
		hs.log.Info("swept idle raffles", "count", len(closed))
	}
	return closed
}

// closeIdle stops the hub for a raffle the registry just evicted, unless a
// page attached since the sweep looked. Then the raffle goes back to the registry.
func (hs *Hubs) closeIdle(raffle_id string) bool {
	hs.mu.Lock()
	h, ok := hs.hubs[raffle_id]
	if ok && h.hub.Connected() > 0 {
		hs.mu.Unlock()
		hs.Registry.Adopt(h.hub.Raffle)
		return false
	}
	delete(hs.hubs, raffle_id)
	hs.mu.Unlock()

	if ok {
		h.cancel()
		<-h.hub.Done()
	}
	return true
}

func (hs *Hubs) Shutdown() {
	hs.mu.Lock()
	ids := make([]string, 0, len(hs.hubs))
	for id := range hs.hubs {
		ids = append(ids, id)
	}
	hs.mu.Unlock()

	for _, id := range ids {
		hs.Close(id)
	}
}
