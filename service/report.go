package service

import (
	"time"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/beka-birhanu/maze-swarm/simulation"
	"gonum.org/v1/gonum/stat"
)

// BuildReport summarises the agents of a run. Step statistics cover every agent,
// finished or not.
func BuildReport(req domain.RunRequest, grid *maze.Grid, agents []*simulation.Agent, ticks int, status domain.RunStatus, runErr error) *domain.RunReport {
	report := &domain.RunReport{
		ID:         req.ID,
		OperatorID: req.OperatorID,
		Status:     status,
		Width:      grid.Width(),
		Height:     grid.Height(),
		Seed:       grid.Seed(),
		Mode:       req.Mode,
		Ticks:      ticks,
		Agents:     make([]domain.AgentResult, 0, len(agents)),
		StartedAt:  req.RequestedAt,
	}
	if status != domain.RunRunning {
		report.EndedAt = time.Now().UTC()
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if moves, err := grid.SolutionLength(); err == nil {
		report.SolutionLength = moves
	}

	steps := make([]float64, 0, len(agents))
	for _, a := range agents {
		finished := a.State() == simulation.Finished
		if finished {
			report.Finished++
		}
		report.Agents = append(report.Agents, domain.AgentResult{
			Name:     a.Name(),
			Steps:    a.Steps(),
			Finished: finished,
			Position: a.Position(),
		})
		steps = append(steps, float64(a.Steps()))
	}

	switch len(steps) {
	case 0:
	case 1:
		report.MeanSteps = steps[0]
	default:
		report.MeanSteps, report.StdDevSteps = stat.MeanStdDev(steps, nil)
	}
	return report
}
