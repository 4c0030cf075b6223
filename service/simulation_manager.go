package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/beka-birhanu/maze-swarm/simulation"
	"github.com/google/uuid"
)

const (
	defaultMaxRuns  = 4
	eventBufferSize = 64
	archiveTimeout  = 2 * time.Second
)

var (
	ErrTooManyRuns = errors.New("too many simulations running")
	ErrRunNotFound = errors.New("run not found")
	ErrRunExists   = errors.New("run already exists")
)

// run is one live simulation and the channels watching it.
type run struct {
	req       domain.RunRequest
	grid      *maze.Grid
	env       *simulation.Environment
	agents    []*simulation.Agent
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}

	report      *domain.RunReport // set when the run ended
	subscribers map[int]chan domain.RunEvent
	nextSub     int
	mu          sync.Mutex
}

type ManagerConfig struct {
	Source     i.MazeSource
	Repo       i.RunRepo
	Logger     i.Logger
	MaxRuns    int
	OnRunEnded func(report *domain.RunReport) // called after the report is archived
}

// SimulationManager starts runs, fans their events out to subscribers and
// archives a report when they end.
type SimulationManager struct {
	source     i.MazeSource
	repo       i.RunRepo
	logger     i.Logger
	maxRuns    int
	onRunEnded func(report *domain.RunReport)
	runs       map[uuid.UUID]*run
	wg         sync.WaitGroup
	sync.RWMutex
}

func NewSimulationManager(c *ManagerConfig) (*SimulationManager, error) {
	if c == nil || c.Source == nil || c.Repo == nil || c.Logger == nil {
		return nil, ErrMissingDependency
	}
	maxRuns := c.MaxRuns
	if maxRuns <= 0 {
		maxRuns = defaultMaxRuns
	}
	return &SimulationManager{
		source:     c.Source,
		repo:       c.Repo,
		logger:     c.Logger,
		maxRuns:    maxRuns,
		onRunEnded: c.OnRunEnded,
		runs:       make(map[uuid.UUID]*run),
	}, nil
}

// Start builds the maze and swarm of req and runs them in the background.
func (m *SimulationManager) Start(ctx context.Context, req domain.RunRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := m.checkCapacity(req.ID); err != nil {
		return err
	}

	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	grid, err := m.source.Maze(ctx, req.Width, req.Height, req.Seed)
	if err != nil {
		err = fmt.Errorf("building maze: %w", err)
		m.archiveFailure(req, err)
		return err
	}

	r := m.newRun(req, grid)
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	m.Lock()
	if err := m.checkCapacityLocked(req.ID); err != nil {
		m.Unlock()
		cancel()
		return err
	}
	m.runs[req.ID] = r
	m.wg.Add(1)
	m.Unlock()

	go m.execute(runCtx, r)
	m.logger.Info(fmt.Sprintf("started run %s: %dx%d maze seed %d, %d agents, %s mode",
		req.ID, grid.Width(), grid.Height(), grid.Seed(), req.Agents, r.env.Mode()))
	return nil
}

func (m *SimulationManager) checkCapacity(id uuid.UUID) error {
	m.RLock()
	defer m.RUnlock()
	return m.checkCapacityLocked(id)
}

func (m *SimulationManager) checkCapacityLocked(id uuid.UUID) error {
	if _, ok := m.runs[id]; ok {
		return ErrRunExists
	}
	if len(m.runs) >= m.maxRuns {
		return ErrTooManyRuns
	}
	return nil
}

func (m *SimulationManager) newRun(req domain.RunRequest, grid *maze.Grid) *run {
	mode, _ := simulation.ParseMode(req.Mode)
	r := &run{
		req:         req,
		grid:        grid,
		done:        make(chan struct{}),
		subscribers: make(map[int]chan domain.RunEvent),
	}

	r.env = simulation.New(grid,
		simulation.WithMode(mode),
		simulation.WithTickDelay(req.TickDelay),
		simulation.WithMaxTicks(req.MaxTicks),
		simulation.WithAgentFinishedHandler(func(a *simulation.Agent) {
			pos := a.Position()
			m.logger.Info(fmt.Sprintf("run %s: %s found the exit at %s after %d steps", req.ID, a.Name(), pos, a.Steps()))
			r.publish(domain.RunEvent{Type: domain.EventAgentFinished, RunID: req.ID, Tick: r.env.Ticks(), Agent: a.Name(), Position: &pos}, false)
		}),
		simulation.WithAgentMovedHandler(func() {
			snapshot := grid.Snapshot()
			r.publish(domain.RunEvent{Type: domain.EventGridChanged, RunID: req.ID, Tick: r.env.Ticks(), Grid: &snapshot}, false)
		}),
	)

	for idx := range req.Agents {
		a := simulation.NewAgent(grid, grid.Start(), fmt.Sprintf("Agent_%d", idx))
		if err := r.env.Add(a); err != nil {
			m.logger.Warning(fmt.Sprintf("run %s: adding %s: %s", req.ID, a.Name(), err))
			continue
		}
		r.agents = append(r.agents, a)
	}
	return r
}

func (m *SimulationManager) execute(ctx context.Context, r *run) {
	defer m.wg.Done()
	defer r.cancel()

	err := r.env.Start(ctx)
	status := domain.RunCompleted
	switch {
	case r.cancelled.Load() || errors.Is(err, context.Canceled):
		status, err = domain.RunCancelled, nil
	case err != nil:
		status = domain.RunFailed
		m.logger.Error(fmt.Sprintf("run %s failed: %s", r.req.ID, err))
	}

	report := BuildReport(r.req, r.grid, r.agents, r.env.Ticks(), status, err)
	archiveCtx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := m.repo.Save(archiveCtx, report); err != nil {
		m.logger.Error(fmt.Sprintf("archiving run %s: %s", r.req.ID, err))
	}

	r.finish(report)
	m.Lock()
	delete(m.runs, r.req.ID)
	m.Unlock()

	m.logger.Info(fmt.Sprintf("run %s %s after %d ticks: %d/%d agents out", r.req.ID, status, report.Ticks, report.Finished, len(report.Agents)))
	if m.onRunEnded != nil {
		m.onRunEnded(report)
	}
}

// archiveFailure replaces the queued record of a run that could not start.
func (m *SimulationManager) archiveFailure(req domain.RunRequest, runErr error) {
	report := req.QueuedReport()
	report.Status = domain.RunFailed
	report.Error = runErr.Error()
	report.EndedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := m.repo.Save(ctx, report); err != nil {
		m.logger.Error(fmt.Sprintf("archiving run %s: %s", req.ID, err))
	}
}

// Status returns the live report of a running simulation or the archived one,
// which is a queued placeholder while the run waits in the queue.
func (m *SimulationManager) Status(ctx context.Context, id uuid.UUID) (*domain.RunReport, error) {
	m.RLock()
	r, ok := m.runs[id]
	m.RUnlock()
	if ok {
		return r.currentReport(), nil
	}

	report, err := m.repo.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, err)
	}
	return report, nil
}

// Cancel stops a live run. Its agents are removed and the report is archived as cancelled.
func (m *SimulationManager) Cancel(id uuid.UUID) error {
	m.RLock()
	r, ok := m.runs[id]
	m.RUnlock()
	if !ok {
		return ErrRunNotFound
	}

	r.cancelled.Store(true)
	r.env.RemoveAll()
	r.cancel()
	return nil
}

// Subscribe streams the events of a live run. The channel is closed once the run
// ended and its run_ended event was delivered.
func (m *SimulationManager) Subscribe(id uuid.UUID) (<-chan domain.RunEvent, func(), error) {
	m.RLock()
	r, ok := m.runs[id]
	m.RUnlock()
	if !ok {
		return nil, nil, ErrRunNotFound
	}
	ch, unsubscribe := r.subscribe()
	return ch, unsubscribe, nil
}

// Done returns a channel closed when the run ends.
func (m *SimulationManager) Done(id uuid.UUID) (<-chan struct{}, error) {
	m.RLock()
	defer m.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r.done, nil
}

// Active returns how many runs are in progress.
func (m *SimulationManager) Active() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.runs)
}

// StopAll cancels every live run and waits for their reports to be archived.
func (m *SimulationManager) StopAll() {
	m.RLock()
	for _, r := range m.runs {
		r.cancelled.Store(true)
		r.cancel()
	}
	m.RUnlock()
	m.wg.Wait()
}

func (r *run) currentReport() *domain.RunReport {
	r.mu.Lock()
	report := r.report
	r.mu.Unlock()
	if report != nil {
		return report
	}
	return BuildReport(r.req, r.grid, r.agents, r.env.Ticks(), domain.RunRunning, nil)
}

func (r *run) subscribe() (<-chan domain.RunEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan domain.RunEvent, eventBufferSize)
	if r.report != nil {
		ch <- domain.RunEvent{Type: domain.EventRunEnded, RunID: r.req.ID, Tick: r.report.Ticks, Report: r.report}
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
}

// publish hands ev to every subscriber. Slow subscribers miss events unless force
// is set, in which case their oldest buffered event makes room.
func (r *run) publish(ev domain.RunEvent, force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		deliver(ch, ev, force)
	}
}

func deliver(ch chan domain.RunEvent, ev domain.RunEvent, force bool) {
	select {
	case ch <- ev:
		return
	default:
	}
	if !force {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

func (r *run) finish(report *domain.RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report = report
	ended := domain.RunEvent{Type: domain.EventRunEnded, RunID: r.req.ID, Tick: report.Ticks, Report: report}
	for id, ch := range r.subscribers {
		deliver(ch, ended, true)
		close(ch)
		delete(r.subscribers, id)
	}
	close(r.done)
}
