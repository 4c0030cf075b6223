package service

import (
	"context"
	"fmt"

	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/beka-birhanu/maze-swarm/service/i"
)

const progressLogStep = 25

// GeneratorSource builds a fresh maze for every request.
type GeneratorSource struct {
	logger i.Logger
}

func NewGeneratorSource(logger i.Logger) *GeneratorSource {
	return &GeneratorSource{logger: logger}
}

// Maze generates a width x height maze. A zero seed picks a random one.
func (gs *GeneratorSource) Maze(ctx context.Context, width, height int, seed int64) (*maze.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logged := 0
	grid, _, err := maze.Generate(width, height, func(percent int) {
		if gs.logger != nil && percent >= logged+progressLogStep {
			logged = percent - percent%progressLogStep
			gs.logger.Info(fmt.Sprintf("generating %dx%d maze: %d%%", width, height, percent))
		}
	}, seed)
	if err != nil {
		return nil, err
	}
	return grid, nil
}
