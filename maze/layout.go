package maze

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Layout is the portable form of a freshly generated grid: its rows and the seed.
// Weights are not part of a layout; a grid rebuilt from one starts fresh.
type Layout struct {
	Width  int      `msgpack:"w"`
	Height int      `msgpack:"h"`
	Seed   int64    `msgpack:"seed"`
	Rows   []string `msgpack:"rows"`
}

// Layout returns the portable form of the grid.
func (g *Grid) Layout() Layout {
	return Layout{
		Width:  g.width,
		Height: g.height,
		Seed:   g.seed,
		Rows:   g.Rows(),
	}
}

// FromLayout rebuilds a grid from its portable form.
func FromLayout(l Layout) (*Grid, error) {
	if len(l.Rows) != l.Height {
		return nil, fmt.Errorf("%w: layout has %d rows, want %d", ErrInvalidLayout, len(l.Rows), l.Height)
	}
	g, err := Parse(l.Rows...)
	if err != nil {
		return nil, err
	}
	if g.width != l.Width {
		return nil, fmt.Errorf("%w: layout is %d wide, want %d", ErrInvalidLayout, g.width, l.Width)
	}
	g.seed = l.Seed
	return g, nil
}

// MarshalLayout encodes the grid's layout with msgpack.
func MarshalLayout(g *Grid) ([]byte, error) {
	return msgpack.Marshal(g.Layout())
}

// UnmarshalLayout decodes a msgpack layout and rebuilds the grid.
func UnmarshalLayout(b []byte) (*Grid, error) {
	var l Layout
	if err := msgpack.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	return FromLayout(l)
}
