package i

import (
	"context"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/google/uuid"
)

// MazeSource hands out grids for new runs.
type MazeSource interface {
	Maze(ctx context.Context, width, height int, seed int64) (*maze.Grid, error)
}

// SimulationManager runs simulations and reports on them.
type SimulationManager interface {
	Start(ctx context.Context, req domain.RunRequest) error
	Status(ctx context.Context, id uuid.UUID) (*domain.RunReport, error)
	Cancel(id uuid.UUID) error
	// Subscribe streams the events of a live run until it ends or unsubscribe is called.
	Subscribe(id uuid.UUID) (events <-chan domain.RunEvent, unsubscribe func(), err error)
	StopAll()
}

// RunQueue buffers run requests until a simulation slot picks them up.
type RunQueue interface {
	Push(ctx context.Context, req domain.RunRequest) error
}

// RunQuota limits how many runs an operator may submit per day.
type RunQuota interface {
	// Reserve fails with identity.ErrRunQuotaExceeded once the operator used up today's quota.
	// Otherwise it records req as queued, which counts it against the quota.
	Reserve(ctx context.Context, req domain.RunRequest) error
	// Release gives back a reservation whose run never made it into the queue.
	Release(ctx context.Context, id uuid.UUID) error
}
