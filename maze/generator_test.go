package maze

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("Normalizes dimensions", func(t *testing.T) {
		cases := []struct {
			width, height         int
			wantWidth, wantHeight int
		}{
			{0, 0, 3, 3},
			{-4, 2, 3, 3},
			{4, 6, 5, 7},
			{5, 5, 5, 5},
			{20, 11, 21, 11},
		}
		for _, c := range cases {
			grid, _, err := Generate(c.width, c.height, nil, 7)
			require.NoError(t, err)
			assert.Equal(t, c.wantWidth, grid.Width())
			assert.Equal(t, c.wantHeight, grid.Height())
		}
	})

	t.Run("Same seed yields identical maze", func(t *testing.T) {
		for _, seed := range []int64{1, 42, 2024} {
			first, firstStart, err := Generate(21, 15, nil, seed)
			require.NoError(t, err)
			second, secondStart, err := Generate(21, 15, nil, seed)
			require.NoError(t, err)

			assert.Equal(t, first.Rows(), second.Rows())
			assert.Equal(t, firstStart, secondStart)
			assert.Equal(t, first.Exit(), second.Exit())
			assert.Equal(t, seed, first.Seed())
		}
	})

	t.Run("Different seeds yield different mazes", func(t *testing.T) {
		first, _, err := Generate(31, 31, nil, 1)
		require.NoError(t, err)
		second, _, err := Generate(31, 31, nil, 2)
		require.NoError(t, err)
		assert.NotEqual(t, first.Rows(), second.Rows())
	})

	t.Run("Zero seed records the seed it used", func(t *testing.T) {
		grid, _, err := Generate(9, 9, nil, 0)
		require.NoError(t, err)
		assert.NotZero(t, grid.Seed())

		replay, _, err := Generate(9, 9, nil, grid.Seed())
		require.NoError(t, err)
		assert.Equal(t, grid.Rows(), replay.Rows())
	})

	t.Run("Generated mazes are perfect", func(t *testing.T) {
		sizes := [][2]int{{3, 3}, {5, 5}, {7, 13}, {21, 21}, {51, 51}}
		for _, size := range sizes {
			for seed := int64(1); seed <= 5; seed++ {
				grid, _, err := Generate(size[0], size[1], nil, seed)
				require.NoError(t, err)
				assert.True(t, grid.IsPerfect(), "size %v seed %d:\n%s", size, seed, grid)

				moves, err := grid.SolutionLength()
				require.NoError(t, err)
				assert.GreaterOrEqual(t, moves, 2)
			}
		}
	})

	t.Run("Every odd interior cell is carved", func(t *testing.T) {
		grid, _, err := Generate(25, 17, nil, 99)
		require.NoError(t, err)
		for y := 1; y < grid.Height()-1; y += 2 {
			for x := 1; x < grid.Width()-1; x += 2 {
				assert.Equal(t, Path, grid.State(Position{X: x, Y: y}), "cell (%d,%d)", x, y)
			}
		}
	})

	t.Run("Start and exit sit on different borders", func(t *testing.T) {
		for seed := int64(1); seed <= 40; seed++ {
			grid, start, err := Generate(15, 11, nil, seed)
			require.NoError(t, err)

			counts := grid.CountStates()
			assert.Equal(t, 1, counts[Start])
			assert.Equal(t, 1, counts[Exit])
			assert.Equal(t, start, grid.Start())
			assert.Equal(t, Start, grid.State(start))
			assert.Equal(t, Exit, grid.State(grid.Exit()))

			startSide, ok := borderSide(grid, start)
			require.True(t, ok, "start %s is not on a border", start)
			exitSide, ok := borderSide(grid, grid.Exit())
			require.True(t, ok, "exit %s is not on a border", grid.Exit())
			assert.NotEqual(t, startSide, exitSide)

			assert.Equal(t, 1, openNeighbors(grid, start))
			assert.Equal(t, 1, openNeighbors(grid, grid.Exit()))
		}
	})

	t.Run("Concrete 5x5 scenario with seed 42", func(t *testing.T) {
		grid, start, err := Generate(5, 5, nil, 42)
		require.NoError(t, err)

		assert.Equal(t, 5, grid.Width())
		assert.Equal(t, 5, grid.Height())
		assert.Equal(t, Start, grid.State(start))
		assert.True(t, grid.IsPerfect(), "\n%s", grid)
	})

	t.Run("Progress is monotonic and ends at 100", func(t *testing.T) {
		var reported []int
		_, _, err := Generate(31, 21, func(percent int) {
			reported = append(reported, percent)
		}, 5)
		require.NoError(t, err)

		require.NotEmpty(t, reported)
		for i, p := range reported {
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
			if i > 0 {
				assert.GreaterOrEqual(t, p, reported[i-1])
			}
		}
		assert.Equal(t, 100, reported[len(reported)-1])
	})

	t.Run("Neighbour cache matches the layout", func(t *testing.T) {
		grid, _, err := Generate(11, 9, nil, 3)
		require.NoError(t, err)
		for y := 0; y < grid.Height(); y++ {
			for x := 0; x < grid.Width(); x++ {
				p := Position{X: x, Y: y}
				for _, d := range Directions {
					neighbor := grid.State(p.Step(d))
					assert.Equal(t, neighbor, grid.NeighborState(p, d))

					wantPassage := 0.0
					if neighbor == Path {
						wantPassage = 1
					}
					assert.Equal(t, wantPassage, grid.Passage(p, d))
				}
			}
		}
	})
}

func TestPlaceOpenings(t *testing.T) {
	t.Run("Fails when no border cell touches a path", func(t *testing.T) {
		states := make([][]State, 5)
		for y := range states {
			states[y] = make([]State, 5)
		}

		_, _, err := placeOpenings(states, rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("Start avoids the excluded side", func(t *testing.T) {
		states := statesFromRows(
			"#####",
			"#...#",
			"#.#.#",
			"#...#",
			"#####",
		)
		rng := rand.New(rand.NewSource(3))
		exclude := sideLeft
		for range 50 {
			s, p, err := pickOpening(states, rng, &exclude)
			require.NoError(t, err)
			assert.NotEqual(t, sideLeft, s)
			assert.Equal(t, Wall, states[p.Y][p.X])
		}
	})
}

func statesFromRows(rows ...string) [][]State {
	states := make([][]State, len(rows))
	for y, row := range rows {
		for _, r := range row {
			s := Wall
			if r == '.' {
				s = Path
			}
			states[y] = append(states[y], s)
		}
	}
	return states
}

// borderSide reports which border p lies on. Corners never host an opening.
func borderSide(g *Grid, p Position) (side, bool) {
	switch {
	case p.Y == 0 && p.X > 0 && p.X < g.Width()-1:
		return sideTop, true
	case p.Y == g.Height()-1 && p.X > 0 && p.X < g.Width()-1:
		return sideBottom, true
	case p.X == 0 && p.Y > 0 && p.Y < g.Height()-1:
		return sideLeft, true
	case p.X == g.Width()-1 && p.Y > 0 && p.Y < g.Height()-1:
		return sideRight, true
	}
	return 0, false
}

func openNeighbors(g *Grid, p Position) int {
	n := 0
	for _, d := range Directions {
		if g.NeighborState(p, d) != Wall {
			n++
		}
	}
	return n
}
