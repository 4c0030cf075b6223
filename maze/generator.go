package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	// maxPlacementAttempts bounds the border searches for the exit and the start.
	maxPlacementAttempts = 16
)

var (
	ErrGenerationFailed = errors.New("maze generation failed")
)

// ProgressFunc receives the generation progress as a percentage in [0,100].
// Values never decrease during one generation.
type ProgressFunc func(percent int)

// side is one of the four borders of the grid.
type side int

const (
	sideTop side = iota
	sideRight
	sideBottom
	sideLeft
)

// frontierEdge links a carved cell to a wall cell two steps away through the wall between them.
type frontierEdge struct {
	between Position
	far     Position
}

// Generate builds a perfect maze of at least width x height cells and returns it with its start.
//
// Dimensions below 3 are raised to 3 and even dimensions are bumped to the next odd value.
// A seed of 0 picks a time based seed, so callers that need to reproduce a maze must pass
// a nonzero seed; the seed actually used is available from Grid.Seed. progress may be nil.
func Generate(width, height int, progress ProgressFunc, seed int64) (*Grid, Position, error) {
	width, height = NormalizeDimensions(width, height)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	states := make([][]State, height)
	for y := range states {
		states[y] = make([]State, width)
	}

	carve(states, rng, newProgressReporter(width*height/2, progress))

	exit, start, err := placeOpenings(states, rng)
	if err != nil {
		return nil, Position{}, err
	}
	states[exit.Y][exit.X] = Exit
	states[start.Y][start.X] = Start

	grid, err := newGrid(states, seed)
	if err != nil {
		return nil, Position{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return grid, start, nil
}

// NormalizeDimensions applies the generator's size rules: at least 3 and odd.
func NormalizeDimensions(width, height int) (int, int) {
	return normalizeDimension(width), normalizeDimension(height)
}

func normalizeDimension(n int) int {
	if n < minDimension {
		n = minDimension
	}
	if n%2 == 0 {
		n++
	}
	return n
}

// carve runs randomized Prim's algorithm over the odd interior cells of states.
func carve(states [][]State, rng *rand.Rand, report func(step int)) {
	height, width := len(states), len(states[0])
	inInterior := func(p Position) bool {
		return p.X >= 1 && p.Y >= 1 && p.X <= width-2 && p.Y <= height-2
	}

	root := Position{X: randomOdd(rng, width), Y: randomOdd(rng, height)}
	frontier := []frontierEdge{{between: root, far: root}}

	for step := 1; len(frontier) > 0; step++ {
		i := rng.Intn(len(frontier))
		edge := frontier[i]
		last := len(frontier) - 1
		frontier[i] = frontier[last]
		frontier = frontier[:last]

		far := edge.far
		if states[far.Y][far.X] == Wall {
			states[far.Y][far.X] = Path
			states[edge.between.Y][edge.between.X] = Path

			for _, d := range Directions {
				next := far.Step(d).Step(d)
				if inInterior(next) && states[next.Y][next.X] == Wall {
					frontier = append(frontier, frontierEdge{between: far.Step(d), far: next})
				}
			}
		}
		report(step)
	}
	report(-1)
}

// randomOdd returns a uniformly chosen odd coordinate in [1, n-2].
func randomOdd(rng *rand.Rand, n int) int {
	return 1 + 2*rng.Intn((n-1)/2)
}

func newProgressReporter(total int, progress ProgressFunc) func(step int) {
	if progress == nil {
		return func(int) {}
	}
	total = max(total, 1)
	last := -1
	return func(step int) {
		percent := 100
		if step >= 0 {
			percent = min(step*100/total, 100)
		}
		if percent > last {
			last = percent
			progress(percent)
		}
	}
}

// placeOpenings picks the exit on a random side and the start on a different random side.
func placeOpenings(states [][]State, rng *rand.Rand) (exit, start Position, err error) {
	exitSide, exit, err := pickOpening(states, rng, nil)
	if err != nil {
		return Position{}, Position{}, fmt.Errorf("%w: no border cell for the exit", err)
	}
	_, start, err = pickOpening(states, rng, &exitSide)
	if err != nil {
		return Position{}, Position{}, fmt.Errorf("%w: no border cell for the start", err)
	}
	return exit, start, nil
}

// pickOpening draws sides until one has a border cell whose interior neighbour is a path.
// The draw is bounded by maxPlacementAttempts.
func pickOpening(states [][]State, rng *rand.Rand, exclude *side) (side, Position, error) {
	sides := []side{sideTop, sideRight, sideBottom, sideLeft}
	if exclude != nil {
		sides = append(sides[:*exclude], sides[*exclude+1:]...)
	}

	for range maxPlacementAttempts {
		s := sides[rng.Intn(len(sides))]
		candidates := openingCandidates(states, s)
		if len(candidates) > 0 {
			return s, candidates[rng.Intn(len(candidates))], nil
		}
	}
	return 0, Position{}, ErrGenerationFailed
}

// openingCandidates scans one border, corners excluded, for cells next to a path.
func openingCandidates(states [][]State, s side) []Position {
	height, width := len(states), len(states[0])
	var (
		inward Direction
		length int
		at     func(i int) Position
	)

	switch s {
	case sideTop:
		length, inward = width, Down
		at = func(i int) Position { return Position{X: i, Y: 0} }
	case sideBottom:
		length, inward = width, Up
		at = func(i int) Position { return Position{X: i, Y: height - 1} }
	case sideLeft:
		length, inward = height, Right
		at = func(i int) Position { return Position{X: 0, Y: i} }
	case sideRight:
		length, inward = height, Left
		at = func(i int) Position { return Position{X: width - 1, Y: i} }
	}

	var candidates []Position
	for i := 1; i < length-1; i++ {
		p := at(i)
		if states[p.Y][p.X] != Wall {
			continue
		}
		in := p.Step(inward)
		if states[in.Y][in.X] == Path {
			candidates = append(candidates, p)
		}
	}
	return candidates
}
