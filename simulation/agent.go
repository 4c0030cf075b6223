package simulation

import (
	"fmt"
	"sync"

	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/google/uuid"
)

const (
	defaultMailboxSize = 8

	exploreFloor = 0.0 // weight floor for cells entered while exploring
	unwindFloor  = 0.1 // weight floor for cells entered while leaving a dead end
)

// State is the navigation state of an agent.
type State int

const (
	Exploring State = iota
	Backtracking
	Finished
)

func (s State) String() string {
	switch s {
	case Exploring:
		return "exploring"
	case Backtracking:
		return "backtracking"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// ExitNotice announces that an agent stepped onto the exit.
type ExitNotice struct {
	From string        // name of the agent that found the exit
	Exit maze.Position // where the exit is
}

// Outcome describes what one decision step did.
type Outcome struct {
	Moved    bool
	Finished bool
	Exit     *maze.Position // set on the step that entered the exit
}

type visit struct {
	pos maze.Position
	dir maze.Direction
}

// Agent walks a shared grid using only local information: the cached state of its
// neighbours, the freshness weight of the cells around it and its own path history.
//
// An agent is driven by exactly one goroutine at a time; only Notify may be called
// concurrently with Act.
type Agent struct {
	id           uuid.UUID
	name         string
	grid         *maze.Grid
	pos          maze.Position
	prev         maze.Position
	last         maze.Direction   // direction of the most recent move
	history      []maze.Direction // moves from the start to the current cell
	backtracking bool
	finished     bool
	visited      map[visit]struct{}
	steps        int

	mailbox   chan ExitNotice
	knownExit *maze.Position
	mu        sync.RWMutex // guards the fields read by observers
}

// NewAgent creates an agent standing on start of grid.
func NewAgent(grid *maze.Grid, start maze.Position, name string) *Agent {
	return &Agent{
		id:      uuid.New(),
		name:    name,
		grid:    grid,
		pos:     start,
		prev:    start,
		last:    maze.None,
		visited: make(map[visit]struct{}),
		mailbox: make(chan ExitNotice, defaultMailboxSize),
	}
}

// ID returns the unique identifier of the agent.
func (a *Agent) ID() uuid.UUID { return a.id }

// Name returns the human readable name of the agent.
func (a *Agent) Name() string { return a.name }

// Grid returns the grid the agent is bound to.
func (a *Agent) Grid() *maze.Grid { return a.grid }

// Position returns the cell the agent stands on.
func (a *Agent) Position() maze.Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pos
}

// Previous returns the cell the agent stood on before its last move.
func (a *Agent) Previous() maze.Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.prev
}

// LastDirection returns the direction of the most recent move, maze.None before the first one.
func (a *Agent) LastDirection() maze.Direction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Steps returns how many moves the agent made.
func (a *Agent) Steps() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.steps
}

// State returns the navigation state of the agent.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case a.finished:
		return Finished
	case a.backtracking:
		return Backtracking
	default:
		return Exploring
	}
}

// KnownExit returns the last exit another agent announced, if any.
func (a *Agent) KnownExit() (maze.Position, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.knownExit == nil {
		return maze.Position{}, false
	}
	return *a.knownExit, true
}

// Notify delivers an exit notice without blocking. It returns false when the
// mailbox is full and the notice was dropped.
func (a *Agent) Notify(n ExitNotice) bool {
	select {
	case a.mailbox <- n:
		return true
	default:
		return false
	}
}

// Act performs one decision step.
func (a *Agent) Act() (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return Outcome{Finished: true}, nil
	}
	a.drainMailbox()

	for _, d := range maze.Directions {
		if a.grid.NeighborState(a.pos, d) == maze.Exit {
			a.move(d)
			a.finished = true
			exit := a.pos
			return Outcome{Moved: true, Finished: true, Exit: &exit}, nil
		}
	}

	if a.grid.State(a.pos) == maze.Exit {
		a.finished = true
		return Outcome{Finished: true}, nil
	}

	if err := a.moveStrategically(); err != nil {
		return Outcome{}, err
	}
	return Outcome{Moved: true}, nil
}

func (a *Agent) drainMailbox() {
	for {
		select {
		case n := <-a.mailbox:
			exit := n.Exit
			a.knownExit = &exit
		default:
			return
		}
	}
}

// moveStrategically picks the next move from the local view of the grid.
func (a *Agent) moveStrategically() error {
	valid := a.validDirections()
	back := a.arrival().Opposite()

	switch {
	case len(valid) == 1 && back != maze.None && valid[0] == back:
		return a.turnBack()
	case a.backtracking && len(valid) > 0:
		return a.evadeDeadEnd(valid)
	case len(valid) > 0:
		return a.advance(a.chooseBestDirection(forward(valid, back)), exploreFloor)
	default:
		return fmt.Errorf("%w: %s at %s has no valid direction", ErrNavigationInvariant, a.name, a.pos)
	}
}

// validDirections lists the open slots of the current cell this agent has not taken yet.
func (a *Agent) validDirections() []maze.Direction {
	valid := make([]maze.Direction, 0, len(maze.Directions))
	for _, d := range maze.Directions {
		if a.grid.Passage(a.pos, d) <= 0 {
			continue
		}
		if _, seen := a.visited[visit{pos: a.pos, dir: d}]; seen {
			continue
		}
		valid = append(valid, d)
	}
	return valid
}

// arrival is the direction the agent entered its current cell with on the way from the start.
func (a *Agent) arrival() maze.Direction {
	if len(a.history) == 0 {
		return maze.None
	}
	return a.history[len(a.history)-1]
}

// forward drops the way back from valid unless it is the only choice.
func forward(valid []maze.Direction, back maze.Direction) []maze.Direction {
	out := make([]maze.Direction, 0, len(valid))
	for _, d := range valid {
		if d != back {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return valid
	}
	return out
}

// chooseBestDirection returns the direction whose neighbour has the strictly greatest
// weight. Ties keep the earlier direction in maze.Directions order.
func (a *Agent) chooseBestDirection(candidates []maze.Direction) maze.Direction {
	best, bestWeight := maze.None, -1.0
	for _, d := range candidates {
		if w := a.grid.Weight(a.pos.Step(d)); w > bestWeight {
			best, bestWeight = d, w
		}
	}
	return best
}

// advance steps forward in d and records it on the path history.
func (a *Agent) advance(d maze.Direction, floor float64) error {
	a.move(d)
	a.history = append(a.history, d)
	return a.grid.Decay(a.pos, floor)
}

// turnBack leaves a dead end: the cell is marked explored, the agent steps back and
// closes the slot leading into the dead end for every agent.
func (a *Agent) turnBack() error {
	entered := a.history[len(a.history)-1]
	a.history = a.history[:len(a.history)-1]

	if err := a.grid.ZeroWeight(a.pos); err != nil {
		return err
	}
	a.move(entered.Opposite())
	if err := a.grid.ZeroPassage(a.pos, entered); err != nil {
		return err
	}
	if err := a.grid.Decay(a.pos, unwindFloor); err != nil {
		return err
	}

	a.backtracking = !a.nearOpening()
	return nil
}

// evadeDeadEnd ends an unwind on a cell that still has untaken directions.
// With a single direction left the agent switches to it, otherwise it picks the freshest.
func (a *Agent) evadeDeadEnd(valid []maze.Direction) error {
	if err := a.grid.ZeroWeight(a.pos); err != nil {
		return err
	}

	candidates := forward(valid, a.arrival().Opposite())
	next := candidates[0]
	if len(candidates) > 1 {
		next = a.chooseBestDirection(candidates)
	}
	if err := a.advance(next, unwindFloor); err != nil {
		return err
	}

	a.backtracking = false
	return nil
}

// nearOpening reports whether the start or the exit is next to the agent.
func (a *Agent) nearOpening() bool {
	for _, d := range maze.Directions {
		switch a.grid.NeighborState(a.pos, d) {
		case maze.Start, maze.Exit:
			return true
		}
	}
	return false
}

func (a *Agent) move(d maze.Direction) {
	a.visited[visit{pos: a.pos, dir: d}] = struct{}{}
	a.prev = a.pos
	a.pos = a.pos.Step(d)
	a.last = d
	a.steps++
}
