package simulationapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/beka-birhanu/maze-swarm/api/identity"
	"github.com/beka-birhanu/maze-swarm/domain"
	dmn "github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/service"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	previewTimeout = 5 * time.Second
	statusTimeout  = 2 * time.Second
	heartbeatEvery = 15 * time.Second
)

// SimulationController serves maze previews and the run lifecycle.
// Operators only ever see their own runs.
type SimulationController struct {
	mazes   i.MazeSource
	queue   i.RunQueue
	manager i.SimulationManager
	quota   i.RunQuota
}

// NewSimulationController initializes a SimulationController.
func NewSimulationController(mazes i.MazeSource, queue i.RunQueue, manager i.SimulationManager, quota i.RunQuota) (*SimulationController, error) {
	if mazes == nil || queue == nil || manager == nil || quota == nil {
		return nil, service.ErrMissingDependency
	}
	return &SimulationController{mazes: mazes, queue: queue, manager: manager, quota: quota}, nil
}

// RegisterPublic registers public routes.
func (sc *SimulationController) RegisterPublic(route *gin.RouterGroup) {
	route.POST("/mazes", sc.preview)
}

// RegisterProtected registers protected routes.
func (sc *SimulationController) RegisterProtected(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.POST("", sc.submit)
		runs.GET("/:ID", sc.status)
		runs.DELETE("/:ID", sc.cancel)
		runs.GET("/:ID/events", sc.events)
	}
}

// preview generates a maze and returns its layout and analysis.
func (sc *SimulationController) preview(ctx *gin.Context) {
	var request MazeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	grid, err := sc.mazes.Maze(timeoutCtx, request.Width, request.Height, request.Seed)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := MazeResponse{
		Width:   grid.Width(),
		Height:  grid.Height(),
		Seed:    grid.Seed(),
		Rows:    grid.Rows(),
		Start:   grid.Start(),
		Exit:    grid.Exit(),
		Perfect: grid.IsPerfect(),
	}
	if moves, err := grid.SolutionLength(); err == nil {
		response.SolutionLength = moves
	}
	ctx.JSON(http.StatusOK, response)
}

// submit queues a run for the calling operator.
func (sc *SimulationController) submit(ctx *gin.Context) {
	operatorID, ok := identity.OperatorID(ctx)
	if !ok {
		ctx.Status(http.StatusUnauthorized)
		return
	}

	var request RunRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := domain.RunRequest{
		ID:          uuid.New(),
		OperatorID:  operatorID,
		Width:       request.Width,
		Height:      request.Height,
		Seed:        request.Seed,
		Agents:      request.Agents,
		Mode:        request.Mode,
		TickDelay:   time.Duration(request.TickDelayMS) * time.Millisecond,
		MaxTicks:    request.MaxTicks,
		RequestedAt: time.Now().UTC(),
	}
	if err := run.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqCtx := ctx.Request.Context()
	if err := sc.quota.Reserve(reqCtx, run); err != nil {
		if errors.Is(err, dmn.ErrRunQuotaExceeded) {
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while checking run quota"})
		return
	}
	if err := sc.queue.Push(reqCtx, run); err != nil {
		_ = sc.quota.Release(reqCtx, run.ID)
		if errors.Is(err, domain.ErrInvalidRunRequest) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while queueing run"})
		return
	}

	ctx.JSON(http.StatusAccepted, RunAccepted{ID: run.ID})
}

// status returns the queued, live or archived report of a run.
func (sc *SimulationController) status(ctx *gin.Context) {
	report, ok := sc.ownedRun(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// cancel stops a live run.
func (sc *SimulationController) cancel(ctx *gin.Context) {
	report, ok := sc.ownedRun(ctx)
	if !ok {
		return
	}

	if err := sc.manager.Cancel(report.ID); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// events streams the events of a live run as server-sent events.
func (sc *SimulationController) events(ctx *gin.Context) {
	report, ok := sc.ownedRun(ctx)
	if !ok {
		return
	}
	id := report.ID

	events, unsubscribe, err := sc.manager.Subscribe(id)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			ctx.SSEvent(string(ev.Type), ev)
			return ev.Type != domain.EventRunEnded
		case <-heartbeat.C:
			ctx.SSEvent("heartbeat", gin.H{"run_id": id})
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}

// ownedRun loads the report of the run named in the path. Runs of other
// operators answer 404 like unknown ones.
func (sc *SimulationController) ownedRun(ctx *gin.Context) (*domain.RunReport, bool) {
	operatorID, ok := identity.OperatorID(ctx)
	if !ok {
		ctx.Status(http.StatusUnauthorized)
		return nil, false
	}
	id, ok := runID(ctx)
	if !ok {
		return nil, false
	}

	timeoutCtx, cancel := context.WithTimeout(ctx.Request.Context(), statusTimeout)
	defer cancel()
	report, err := sc.manager.Status(timeoutCtx, id)
	if err != nil || report.OperatorID != operatorID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	return report, true
}

func runID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Params.ByName("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}
