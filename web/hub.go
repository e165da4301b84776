package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/jsonq"

	"github.com/thewug/cakeraffle/roster"
	"github.com/thewug/cakeraffle/store"
)

var ErrHubClosed = errors.New("raffle hub is closed")

// RaffleHub serializes everything that happens to one raffle and fans the
// results out to every connected page.
type RaffleHub struct {
	Raffle *store.Raffle

	Register   chan *Client
	Unregister chan *Client
	Actions    chan *Action

	clients   map[*Client]bool
	connected atomic.Int32

	steps  chan step
	reveal Reveal
	src    roster.Source
	cancel context.CancelFunc // stops the reveal in flight, if any
	gen    int
	busy   bool
	done   chan struct{}
	log    *slog.Logger
}

// step is one presentation message of the reveal numbered gen. A nil msg
// marks the end of that reveal.
type step struct {
	gen int
	msg interface{}
}

type Action struct {
	J      []byte
	Client *Client
	Reply  chan Outcome
}

type Outcome struct {
	Action string `json:"action"`
	Name   string `json:"name,omitempty"`
	Winner string `json:"winner,omitempty"`
	Notify Notify `json:"notify"`
	State  Status `json:"state"`
	Err    error  `json:"-"`
}

type Status struct {
	Type     string   `json:"type"`
	Names    []string `json:"names"`
	Count    int      `json:"count"`
	Winner   string   `json:"winner,omitempty"`
	Drawn    bool     `json:"drawn"`
	Busy     bool     `json:"busy"`
	CanDraw  bool     `json:"can_draw"`
	CanReset bool     `json:"can_reset"`
}

func NewRaffleHub(raffle *store.Raffle, reveal Reveal, src roster.Source, log *slog.Logger) *RaffleHub {
	if src == nil {
		src = rand.Float64
	}
	if reveal.Rand == nil {
		reveal.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RaffleHub{
		Raffle:     raffle,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Actions:    make(chan *Action),
		clients:    make(map[*Client]bool),
		steps:      make(chan step, 8),
		reveal:     reveal,
		src:        src,
		done:       make(chan struct{}),
		log:        log.With("raffle", raffle.Id),
	}
}

func (h *RaffleHub) Connected() int {
	return int(h.connected.Load())
}

func (h *RaffleHub) Done() <-chan struct{} {
	return h.done
}

func (h *RaffleHub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.stopReveal()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.Register:
			h.clients[c] = true
			h.connected.Add(1)
			h.send(c, h.status())

		case c := <-h.Unregister:
			if h.clients[c] {
				h.drop(c)
			}

		case a := <-h.Actions:
			o := h.apply(ctx, a.J)
			if a.Reply != nil {
				a.Reply <- o
			}
			if o.Action == ACTION_STATE {
				continue
			}
			h.broadcast(o.State)
			if a.Client != nil && h.clients[a.Client] {
				h.send(a.Client, o.Notify)
			}

		case st := <-h.steps:
			if st.gen != h.gen {
				// left over from a reveal that was cancelled
				continue
			}
			if st.msg == nil {
				h.stopReveal()
				h.broadcast(h.status())
				continue
			}
			h.broadcast(st.msg)
		}
	}
}

// Do runs one action on the hub and waits for its outcome.
func (h *RaffleHub) Do(ctx context.Context, j []byte) (Outcome, error) {
	a := &Action{J: j, Reply: make(chan Outcome, 1)}
	select {
	case h.Actions <- a:
	case <-h.done:
		return Outcome{}, ErrHubClosed
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	select {
	case o := <-a.Reply:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// apply decodes and performs an action: {"type": "add", "name": "..."}.
func (h *RaffleHub) apply(ctx context.Context, j []byte) Outcome {
	data := map[string]interface{}{}
	err := json.Unmarshal(j, &data)
	if err != nil {
		return h.outcome("", "", ErrUnknownAction)
	}
	jq := jsonq.NewQuery(data)

	action, err := jq.String("type")
	if err != nil {
		return h.outcome("", "", ErrUnknownAction)
	}
	name, _ := jq.String("name")

	switch action {
	case ACTION_STATE:
		return Outcome{Action: action, State: h.status()}

	case ACTION_ADD:
		stored, err := h.Raffle.Add(ctx, name)
		if err == nil {
			name = stored
		} else {
			name = strings.TrimSpace(name)
		}
		return h.outcome(action, name, err)

	case ACTION_REMOVE:
		return h.outcome(action, name, h.Raffle.Remove(ctx, name))

	case ACTION_RESET:
		h.stopReveal()
		if !h.Raffle.Reset(ctx) {
			o := h.outcome(action, "", nil)
			o.Notify = nothingToReset()
			return o
		}
		return h.outcome(action, "", nil)

	case ACTION_DRAW:
		if h.busy {
			return h.outcome(action, "", ErrDrawUnderway)
		}
		winner, err := store.RaffleDraw(h.Raffle, h.src)
		if err != nil {
			return h.outcome(action, "", err)
		}
		h.startReveal(ctx, winner)
		o := h.outcome(action, "", nil)
		o.Winner = winner
		return o
	}

	h.log.Debug("unknown action", "type", action)
	return h.outcome(action, name, ErrUnknownAction)
}

func (h *RaffleHub) outcome(action, name string, err error) Outcome {
	if err != nil && !isUserError(err) {
		h.log.Error("action failed", "action", action, "err", err)
	}
	return Outcome{
		Action: action,
		Name:   name,
		Notify: describe(action, name, err),
		State:  h.status(),
		Err:    err,
	}
}

func isUserError(err error) bool {
	for _, e := range []error{
		roster.ErrEmptyName, roster.ErrTooLong, roster.ErrDuplicate,
		roster.ErrNotFound, roster.ErrEmptyRoster, ErrDrawUnderway, ErrUnknownAction,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (h *RaffleHub) status() Status {
	snap := h.Raffle.Snapshot()
	s := Status{
		Type:  "state",
		Names: snap.Names,
		Count: len(snap.Names),
		Drawn: snap.Drawn,
		Busy:  h.busy,
	}
	// the winner stays secret until the countdown is over
	if snap.Drawn && !h.busy {
		s.Winner = snap.Winner
	}
	s.CanDraw = s.Count > 0 && !h.busy
	s.CanReset = !h.busy && (s.Count > 0 || s.Drawn)
	return s
}

func (h *RaffleHub) startReveal(parent context.Context, winner string) {
	ctx, cancel := context.WithCancel(parent)
	h.cancel = cancel
	h.busy = true
	h.gen++
	gen := h.gen

	// each reveal owns its generator; h.reveal.Rand only seeds them, on this goroutine
	reveal := h.reveal
	reveal.Rand = rand.New(rand.NewSource(h.reveal.Rand.Int63()))

	emit := func(msg interface{}) {
		select {
		case h.steps <- step{gen: gen, msg: msg}:
		case <-ctx.Done():
		}
	}

	go func() {
		if !reveal.Run(ctx, winner, emit) {
			return
		}
		// the hub may be gone already; never block on it
		select {
		case h.steps <- step{gen: gen}:
		case <-ctx.Done():
		}
	}()
}

func (h *RaffleHub) stopReveal() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
		h.gen++
	}
	h.busy = false
}

func (h *RaffleHub) broadcast(v interface{}) {
	j, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal message", "err", err)
		return
	}
	for c := range h.clients {
		h.push(c, j)
	}
}

func (h *RaffleHub) send(c *Client, v interface{}) {
	j, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal message", "err", err)
		return
	}
	h.push(c, j)
}

// push never blocks the hub: a client that cannot keep up is dropped.
func (h *RaffleHub) push(c *Client, j []byte) {
	select {
	case c.Outgoing <- j:
	default:
		h.log.Warn("dropping slow client", "client", c.Id)
		h.drop(c)
	}
}

func (h *RaffleHub) drop(c *Client) {
	delete(h.clients, c)
	h.connected.Add(-1)
	close(c.Outgoing)
}
