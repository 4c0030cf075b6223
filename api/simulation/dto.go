// Package simulationapi exposes maze previews and simulation runs over HTTP.
package simulationapi

import (
	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/google/uuid"
)

// MazeRequest asks for a maze preview.
type MazeRequest struct {
	Width  int   `json:"width" binding:"min=0,max=201"`
	Height int   `json:"height" binding:"min=0,max=201"`
	Seed   int64 `json:"seed"`
}

// MazeResponse describes a generated maze.
type MazeResponse struct {
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Seed           int64         `json:"seed"`
	Rows           []string      `json:"rows"`
	Start          maze.Position `json:"start"`
	Exit           maze.Position `json:"exit"`
	Perfect        bool          `json:"perfect"`
	SolutionLength int           `json:"solution_length"`
}

// RunRequest asks for a simulation run.
type RunRequest struct {
	Width       int    `json:"width" binding:"min=0,max=201"`
	Height      int    `json:"height" binding:"min=0,max=201"`
	Seed        int64  `json:"seed"`
	Agents      int    `json:"agents" binding:"required,min=1,max=64"`
	Mode        string `json:"mode" binding:"omitempty,oneof=cooperative parallel"`
	TickDelayMS int    `json:"tick_delay_ms" binding:"min=0,max=10000"`
	MaxTicks    int    `json:"max_ticks" binding:"min=0"`
}

// RunAccepted is returned once a run is queued.
type RunAccepted struct {
	ID uuid.UUID `json:"id"`
}
