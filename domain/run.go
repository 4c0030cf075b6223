// Package domain holds the records exchanged between the run services, the stores and the API.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/beka-birhanu/maze-swarm/simulation"
	"github.com/google/uuid"
)

const (
	MaxRunAgents    = 64
	MaxRunDimension = 201
)

var ErrInvalidRunRequest = errors.New("invalid run request")

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunRequest asks for one simulation: a maze and a swarm walking it.
type RunRequest struct {
	ID          uuid.UUID     `json:"id" msgpack:"id" bson:"_id"`
	OperatorID  uuid.UUID     `json:"operator_id" msgpack:"operator_id" bson:"operatorId"`
	Width       int           `json:"width" msgpack:"width" bson:"width"`
	Height      int           `json:"height" msgpack:"height" bson:"height"`
	Seed        int64         `json:"seed" msgpack:"seed" bson:"seed"`
	Agents      int           `json:"agents" msgpack:"agents" bson:"agents"`
	Mode        string        `json:"mode" msgpack:"mode" bson:"mode"`
	TickDelay   time.Duration `json:"tick_delay" msgpack:"tick_delay" bson:"tickDelay"`
	MaxTicks    int           `json:"max_ticks" msgpack:"max_ticks" bson:"maxTicks"`
	RequestedAt time.Time     `json:"requested_at" msgpack:"requested_at" bson:"requestedAt"`
}

// Validate checks the request can be turned into a run.
func (r RunRequest) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidRunRequest)
	}
	if r.Agents < 1 || r.Agents > MaxRunAgents {
		return fmt.Errorf("%w: agents must be between 1 and %d", ErrInvalidRunRequest, MaxRunAgents)
	}
	if r.Width > MaxRunDimension || r.Height > MaxRunDimension {
		return fmt.Errorf("%w: dimensions above %d", ErrInvalidRunRequest, MaxRunDimension)
	}
	if r.MaxTicks < 0 || r.TickDelay < 0 {
		return fmt.Errorf("%w: negative tick settings", ErrInvalidRunRequest)
	}
	if _, err := simulation.ParseMode(r.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRunRequest, err)
	}
	return nil
}

// QueuedReport is the placeholder archived for a submitted run until it starts.
func (r RunRequest) QueuedReport() *RunReport {
	return &RunReport{
		ID:         r.ID,
		OperatorID: r.OperatorID,
		Status:     RunQueued,
		Width:      r.Width,
		Height:     r.Height,
		Seed:       r.Seed,
		Mode:       r.Mode,
		Agents:     []AgentResult{},
		StartedAt:  r.RequestedAt,
	}
}

// AgentResult is how far one agent of a run got.
type AgentResult struct {
	Name     string        `json:"name" bson:"name"`
	Steps    int           `json:"steps" bson:"steps"`
	Finished bool          `json:"finished" bson:"finished"`
	Position maze.Position `json:"position" bson:"position"`
}

// RunReport summarises a run. Archived reports are read only.
type RunReport struct {
	ID             uuid.UUID     `json:"id" bson:"_id"`
	OperatorID     uuid.UUID     `json:"operator_id" bson:"operatorId"`
	Status         RunStatus     `json:"status" bson:"status"`
	Width          int           `json:"width" bson:"width"`
	Height         int           `json:"height" bson:"height"`
	Seed           int64         `json:"seed" bson:"seed"`
	Mode           string        `json:"mode" bson:"mode"`
	Ticks          int           `json:"ticks" bson:"ticks"`
	Agents         []AgentResult `json:"agents" bson:"agents"`
	Finished       int           `json:"finished" bson:"finished"`
	MeanSteps      float64       `json:"mean_steps" bson:"meanSteps"`
	StdDevSteps    float64       `json:"stddev_steps" bson:"stddevSteps"`
	SolutionLength int           `json:"solution_length" bson:"solutionLength"`
	Error          string        `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at" bson:"startedAt"`
	EndedAt        time.Time     `json:"ended_at,omitempty" bson:"endedAt,omitempty"`
}

// RunEventType names what a RunEvent reports.
type RunEventType string

const (
	EventGridChanged   RunEventType = "grid_changed"
	EventAgentFinished RunEventType = "agent_finished"
	EventRunEnded      RunEventType = "run_ended"
)

// RunEvent is pushed to the subscribers of a live run.
type RunEvent struct {
	Type     RunEventType   `json:"type"`
	RunID    uuid.UUID      `json:"run_id"`
	Tick     int            `json:"tick"`
	Agent    string         `json:"agent,omitempty"`
	Position *maze.Position `json:"position,omitempty"`
	Grid     *maze.Snapshot `json:"grid,omitempty"`
	Report   *RunReport     `json:"report,omitempty"`
}
