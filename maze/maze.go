/*
Package maze provides the shared grid agents explore and the generator that builds it.

A Grid is a rectangular array of cells, each either a wall, a path, the start or the exit.
Every cell caches the state of its four neighbours and carries a freshness weight plus
one passage slot per direction. Weights and passages are the only mutable parts of a
grid; they are guarded per cell so concurrently acting agents never observe a torn update.

Generate builds a perfect maze with randomized Prim's algorithm, places the start and
exit on different border sides and fills in the neighbour cache.
*/
package maze

import (
	"errors"
	"fmt"
	"strings"
)

const (
	minDimension = 3

	maxWeight     = 1.0
	weightStep    = 0.1
	minDeadWeight = 0.1 // floor for cells decayed by an unwinding agent
)

var (
	ErrInvalidLayout = errors.New("invalid maze layout")
	ErrOutOfBound    = errors.New("position is out of the maze")
)

// Grid is the generated maze shared by every agent of a run.
type Grid struct {
	width  int
	height int
	seed   int64
	start  Position
	exit   Position
	cells  [][]*Cell // cells[y][x]
}

func newGrid(states [][]State, seed int64) (*Grid, error) {
	height := len(states)
	if height == 0 || len(states[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidLayout)
	}
	width := len(states[0])

	g := &Grid{width: width, height: height, seed: seed}
	starts, exits := 0, 0
	for y, row := range states {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidLayout, y, len(row), width)
		}
		for x, s := range row {
			switch s {
			case Start:
				starts++
				g.start = Position{X: x, Y: y}
			case Exit:
				exits++
				g.exit = Position{X: x, Y: y}
			}
		}
	}
	if starts != 1 || exits != 1 {
		return nil, fmt.Errorf("%w: want one start and one exit, got %d and %d", ErrInvalidLayout, starts, exits)
	}

	stateAt := func(p Position) State {
		if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
			return Wall
		}
		return states[p.Y][p.X]
	}

	g.cells = make([][]*Cell, height)
	for y := range g.cells {
		g.cells[y] = make([]*Cell, width)
		for x := range g.cells[y] {
			pos := Position{X: x, Y: y}
			var neighbors [4]State
			for _, d := range Directions {
				neighbors[d] = stateAt(pos.Step(d))
			}
			g.cells[y][x] = newCell(states[y][x], neighbors)
		}
	}
	return g, nil
}

// Parse builds a grid from rows drawn with the characters String produces:
// '#' wall, '.' path, 'S' start and 'E' exit.
func Parse(rows ...string) (*Grid, error) {
	states := make([][]State, len(rows))
	for y, row := range rows {
		states[y] = make([]State, 0, len(row))
		for _, r := range row {
			switch r {
			case '#':
				states[y] = append(states[y], Wall)
			case '.':
				states[y] = append(states[y], Path)
			case 'S':
				states[y] = append(states[y], Start)
			case 'E':
				states[y] = append(states[y], Exit)
			default:
				return nil, fmt.Errorf("%w: unexpected %q at row %d", ErrInvalidLayout, r, y)
			}
		}
	}
	return newGrid(states, 0)
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Seed returns the seed the grid was generated with, 0 for parsed grids.
func (g *Grid) Seed() int64 { return g.seed }

// Start returns the start cell position.
func (g *Grid) Start() Position { return g.start }

// Exit returns the exit cell position.
func (g *Grid) Exit() Position { return g.exit }

// InBound reports whether p lies inside the grid.
func (g *Grid) InBound(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Cell returns the cell at p, or nil when p is out of the grid.
func (g *Grid) Cell(p Position) *Cell {
	if !g.InBound(p) {
		return nil
	}
	return g.cells[p.Y][p.X]
}

// State returns the state of the cell at p. Positions outside the grid are walls.
func (g *Grid) State(p Position) State {
	c := g.Cell(p)
	if c == nil {
		return Wall
	}
	return c.state
}

// NeighborState returns the cached state of p's neighbour in direction d.
func (g *Grid) NeighborState(p Position, d Direction) State {
	c := g.Cell(p)
	if c == nil {
		return Wall
	}
	return c.NeighborState(d)
}

// Weight returns the freshness of the cell at p, 0 outside the grid.
func (g *Grid) Weight(p Position) float64 {
	c := g.Cell(p)
	if c == nil {
		return 0
	}
	return c.Weight()
}

// Passage returns the slot of the cell at p pointing in direction d.
func (g *Grid) Passage(p Position, d Direction) float64 {
	c := g.Cell(p)
	if c == nil {
		return 0
	}
	return c.Passage(d)
}

// Decay lowers the weight of the cell at p by one step without going below floor.
// A floor above the current weight raises the weight to the floor. Exit cells are left alone.
func (g *Grid) Decay(p Position, floor float64) error {
	return g.update(p, func(c *Cell) {
		if c.state == Exit || c.state == Wall {
			return
		}
		c.weight = clampWeight(max(c.weight-weightStep, floor))
	})
}

// Refresh raises the weight of the cell at p by one step, capped at 1.
// Agents never call it; it is for renderers and external tools that want to
// fade a trail back in.
func (g *Grid) Refresh(p Position) error {
	return g.update(p, func(c *Cell) {
		if c.state == Exit || c.state == Wall {
			return
		}
		c.weight = clampWeight(c.weight + weightStep)
	})
}

// ZeroWeight marks the cell at p as fully explored.
func (g *Grid) ZeroWeight(p Position) error {
	return g.update(p, func(c *Cell) {
		c.weight = 0
	})
}

// ZeroPassage closes the slot of the cell at p pointing in direction d.
func (g *Grid) ZeroPassage(p Position, d Direction) error {
	if !d.Valid() {
		return nil
	}
	return g.update(p, func(c *Cell) {
		c.passages[d] = 0
	})
}

func (g *Grid) update(p Position, f func(*Cell)) error {
	c := g.Cell(p)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrOutOfBound, p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c)
	return nil
}

func clampWeight(w float64) float64 {
	return min(max(w, 0), maxWeight)
}

// CountStates returns how many cells hold each state.
func (g *Grid) CountStates() map[State]int {
	counts := make(map[State]int, 4)
	for _, row := range g.cells {
		for _, c := range row {
			counts[c.state]++
		}
	}
	return counts
}

// Snapshot is a copy of the grid's states and current weights, indexed [y][x].
type Snapshot struct {
	Width   int         `json:"width" msgpack:"width"`
	Height  int         `json:"height" msgpack:"height"`
	States  [][]State   `json:"states" msgpack:"states"`
	Weights [][]float64 `json:"weights" msgpack:"weights"`
}

// Snapshot copies the grid for renderers. Each cell is read under its own lock,
// so the copy is consistent per cell but not across cells.
func (g *Grid) Snapshot() Snapshot {
	s := Snapshot{
		Width:   g.width,
		Height:  g.height,
		States:  make([][]State, g.height),
		Weights: make([][]float64, g.height),
	}
	for y, row := range g.cells {
		s.States[y] = make([]State, g.width)
		s.Weights[y] = make([]float64, g.width)
		for x, c := range row {
			s.States[y][x] = c.state
			s.Weights[y][x] = c.Weight()
		}
	}
	return s
}

// Rows returns the ASCII layout, one string per row.
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	for y, row := range g.cells {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(c.state.Rune())
		}
		rows[y] = b.String()
	}
	return rows
}

// String provides a textual representation of the maze.
func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n") + "\n"
}
