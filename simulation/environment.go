package simulation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Mode selects how agents are driven within a tick.
type Mode int

const (
	Cooperative Mode = iota // agents act one after another
	Parallel                // agents act concurrently, joined at the end of the tick
)

func (m Mode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "cooperative"
}

// ParseMode maps "cooperative" or "parallel" to a Mode. The empty string is Cooperative.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cooperative":
		return Cooperative, nil
	case "parallel":
		return Parallel, nil
	}
	return Cooperative, fmt.Errorf("unknown scheduling mode %q", s)
}

// Option configures an Environment.
type Option func(*Environment)

// WithMode sets the scheduling mode. Cooperative is the default.
func WithMode(m Mode) Option {
	return func(e *Environment) { e.mode = m }
}

// WithTickDelay pauses Start between ticks.
func WithTickDelay(d time.Duration) Option {
	return func(e *Environment) { e.tickDelay = d }
}

// WithMaxTicks bounds the number of ticks Start runs. Zero means unbounded.
func WithMaxTicks(n int) Option {
	return func(e *Environment) { e.maxTicks = n }
}

// WithAgentFinishedHandler registers f to be called once for every agent that finishes.
func WithAgentFinishedHandler(f func(a *Agent)) Option {
	return func(e *Environment) { e.onAgentFinished = f }
}

// WithAgentMovedHandler registers f to be called after every tick in which an agent moved.
func WithAgentMovedHandler(f func()) Option {
	return func(e *Environment) { e.onAgentMoved = f }
}

// Environment owns a grid and the live set of agents walking it, and advances
// them in ticks.
type Environment struct {
	grid      *maze.Grid
	mode      Mode
	tickDelay time.Duration
	maxTicks  int

	agents map[uuid.UUID]*Agent
	order  []uuid.UUID // insertion order of live agents
	ticks  int

	onAgentFinished func(a *Agent)
	onAgentMoved    func()

	sync.RWMutex
}

// New creates an environment over grid.
func New(grid *maze.Grid, opts ...Option) *Environment {
	e := &Environment{
		grid:   grid,
		agents: make(map[uuid.UUID]*Agent),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Grid returns the shared grid.
func (e *Environment) Grid() *maze.Grid { return e.grid }

// Mode returns the scheduling mode.
func (e *Environment) Mode() Mode { return e.mode }

// Add registers a live agent. It will act from the next tick on.
func (e *Environment) Add(a *Agent) error {
	if a.Grid() != e.grid {
		return ErrGridMismatch
	}

	e.Lock()
	defer e.Unlock()
	if _, ok := e.agents[a.ID()]; ok {
		return ErrAgentExists
	}
	e.agents[a.ID()] = a
	e.order = append(e.order, a.ID())
	return nil
}

// Remove drops an agent from the live set.
func (e *Environment) Remove(id uuid.UUID) error {
	e.Lock()
	defer e.Unlock()
	if _, ok := e.agents[id]; !ok {
		return ErrUnknownAgent
	}
	e.remove(id)
	return nil
}

// RemoveAll empties the live set, which makes Start return.
func (e *Environment) RemoveAll() {
	e.Lock()
	defer e.Unlock()
	clear(e.agents)
	e.order = nil
}

// AllAgents returns the live agents in insertion order.
func (e *Environment) AllAgents() []*Agent {
	e.RLock()
	defer e.RUnlock()
	return e.live()
}

// Len returns the number of live agents.
func (e *Environment) Len() int {
	e.RLock()
	defer e.RUnlock()
	return len(e.order)
}

// Ticks returns the number of completed ticks.
func (e *Environment) Ticks() int {
	e.RLock()
	defer e.RUnlock()
	return e.ticks
}

// Start runs ticks until the live set is empty. It returns ctx.Err() when the
// context ends first, ErrTickBudgetExceeded when the tick budget runs out and
// the first agent error otherwise.
func (e *Environment) Start(ctx context.Context) error {
	for {
		if e.Len() == 0 {
			return nil
		}
		if e.maxTicks > 0 && e.Ticks() >= e.maxTicks {
			return ErrTickBudgetExceeded
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.Tick(ctx); err != nil {
			return err
		}

		if e.tickDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.tickDelay):
			}
		}
	}
}

// Tick lets every live agent act exactly once.
func (e *Environment) Tick(ctx context.Context) error {
	e.Lock()
	agents := e.live()
	if len(agents) == 0 {
		e.Unlock()
		return nil
	}

	var (
		outcomes []Outcome
		err      error
	)
	if e.mode == Parallel {
		outcomes, err = e.actParallel(ctx, agents)
	} else {
		outcomes, err = e.actCooperative(agents)
	}
	if err != nil {
		e.Unlock()
		return err
	}

	moved := false
	var finished []*Agent
	for i, out := range outcomes {
		moved = moved || out.Moved
		if out.Finished {
			finished = append(finished, agents[i])
			e.remove(agents[i].ID())
		}
	}
	e.ticks++
	e.Unlock()

	if e.onAgentFinished != nil {
		for _, a := range finished {
			e.onAgentFinished(a)
		}
	}
	if moved && e.onAgentMoved != nil {
		e.onAgentMoved()
	}
	return nil
}

func (e *Environment) actCooperative(agents []*Agent) ([]Outcome, error) {
	outcomes := make([]Outcome, len(agents))
	for i, a := range agents {
		out, err := a.Act()
		if err != nil {
			return nil, err
		}
		outcomes[i] = out
		if out.Exit != nil {
			announce(a, *out.Exit, agents, outcomes[:i+1])
		}
	}
	return outcomes, nil
}

func (e *Environment) actParallel(ctx context.Context, agents []*Agent) ([]Outcome, error) {
	outcomes := make([]Outcome, len(agents))
	g, _ := errgroup.WithContext(ctx)
	for i, a := range agents {
		g.Go(func() error {
			out, err := a.Act()
			outcomes[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, out := range outcomes {
		if out.Exit != nil {
			announce(agents[i], *out.Exit, agents, outcomes)
		}
	}
	return outcomes, nil
}

// announce tells every agent that has not finished where from found the exit.
// outcomes holds the results known so far, indexed like agents.
func announce(from *Agent, exit maze.Position, agents []*Agent, outcomes []Outcome) {
	notice := ExitNotice{From: from.Name(), Exit: exit}
	for i, a := range agents {
		if a == from || (i < len(outcomes) && outcomes[i].Finished) {
			continue
		}
		a.Notify(notice)
	}
}

// live must be called with the lock held.
func (e *Environment) live() []*Agent {
	agents := make([]*Agent, 0, len(e.order))
	for _, id := range e.order {
		agents = append(agents, e.agents[id])
	}
	return agents
}

// remove must be called with the write lock held.
func (e *Environment) remove(id uuid.UUID) {
	delete(e.agents, id)
	e.order = slices.DeleteFunc(e.order, func(o uuid.UUID) bool { return o == id })
}
