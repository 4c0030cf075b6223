package maze

import (
	"fmt"
	"sync"
)

// State is the kind of a maze cell.
type State int

const (
	Wall  State = 0  // Wall is never entered by an agent.
	Path  State = 1  // Path is an open corridor cell.
	Exit  State = -2 // Exit is the single border cell agents are looking for.
	Start State = -3 // Start is the single border cell agents are spawned on.
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Wall:
		return "wall"
	case Path:
		return "path"
	case Exit:
		return "exit"
	case Start:
		return "start"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rune returns the character used for the state in the ASCII layout.
func (s State) Rune() rune {
	switch s {
	case Path:
		return '.'
	case Exit:
		return 'E'
	case Start:
		return 'S'
	default:
		return '#'
	}
}

// Direction is one of the four orthogonal moves.
type Direction int

const (
	None Direction = iota - 1
	Up
	Down
	Left
	Right
)

// Directions lists the moves in the order every scan over neighbours uses.
// Ties are always broken in favour of the earlier entry.
var Directions = [4]Direction{Up, Down, Left, Right}

var directionDeltas = [4]Position{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// Opposite returns the reverse move. None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return None
	}
}

// Valid reports whether d is one of the four moves.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Position identifies a cell by column (X) and row (Y).
type Position struct {
	X int `json:"x" bson:"x" msgpack:"x"`
	Y int `json:"y" bson:"y" msgpack:"y"`
}

// Step returns the neighbouring position in direction d.
func (p Position) Step(d Direction) Position {
	if !d.Valid() {
		return p
	}
	delta := directionDeltas[d]
	return Position{X: p.X + delta.X, Y: p.Y + delta.Y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Cell is a single square of the grid.
// The state and neighbour cache never change after generation; weight and
// passages are shared between agents and guarded by mu.
type Cell struct {
	state     State
	neighbors [4]State   // cached state of the neighbour in each direction
	weight    float64    // freshness in [0,1]; meaningful for Path and Start only
	passages  [4]float64 // > 0 while the move in that direction is worth taking
	mu        sync.Mutex
}

func newCell(state State, neighbors [4]State) *Cell {
	c := &Cell{state: state, neighbors: neighbors}
	if state == Path || state == Start {
		c.weight = maxWeight
	}
	for _, d := range Directions {
		if neighbors[d] == Path {
			c.passages[d] = maxWeight
		}
	}
	return c
}

// State returns the kind of the cell.
func (c *Cell) State() State {
	return c.state
}

// NeighborState returns the cached state of the neighbour in direction d.
func (c *Cell) NeighborState(d Direction) State {
	if !d.Valid() {
		return Wall
	}
	return c.neighbors[d]
}

// Weight returns the current freshness of the cell.
func (c *Cell) Weight() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Passage returns the value of the slot pointing in direction d.
func (c *Cell) Passage(d Direction) float64 {
	if !d.Valid() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passages[d]
}
