package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/maze-swarm/config"
	"github.com/beka-birhanu/maze-swarm/domain"
	logger "github.com/beka-birhanu/maze-swarm/infrastruture/log"
	"github.com/beka-birhanu/maze-swarm/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	simScenario  string
	simWidth     int
	simHeight    int
	simSeed      int64
	simAgents    int
	simMode      string
	simTickDelay time.Duration
	simMaxTicks  int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a swarm through a maze locally",
	Long: `Generate a maze, release a swarm on its start cell and print the run report
once every agent found the exit, the tick budget ran out or the run was interrupted.

A YAML scenario file replaces the individual flags:

  name: crowded
  width: 41
  height: 41
  seed: 7
  agents: 12
  mode: parallel
  tick_delay: 10ms
  max_ticks: 5000

Examples:
  maze-swarm simulate --agents 5 --mode parallel
  maze-swarm simulate --scenario crowded.yaml -o json`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "YAML scenario file")
	simulateCmd.Flags().IntVar(&simWidth, "width", 21, "Maze width in cells")
	simulateCmd.Flags().IntVar(&simHeight, "height", 21, "Maze height in cells")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 picks one)")
	simulateCmd.Flags().IntVar(&simAgents, "agents", 1, "Number of agents")
	simulateCmd.Flags().StringVar(&simMode, "mode", "cooperative", "Scheduling mode (cooperative, parallel)")
	simulateCmd.Flags().DurationVar(&simTickDelay, "tick-delay", 0, "Pause between ticks")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "Tick budget (0 is unbounded)")
	rootCmd.AddCommand(simulateCmd)
}

func scenarioFromFlags() (config.Scenario, error) {
	if simScenario != "" {
		return config.LoadScenario(simScenario)
	}
	s := config.Scenario{
		Width:     simWidth,
		Height:    simHeight,
		Seed:      simSeed,
		Agents:    simAgents,
		Mode:      simMode,
		TickDelay: simTickDelay,
		MaxTicks:  simMaxTicks,
	}
	return s, s.Validate()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	scenario, err := scenarioFromFlags()
	if err != nil {
		return err
	}

	simLogger, err := logger.New("SIM", config.ColorCyan, os.Stderr)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	manager, err := service.NewSimulationManager(&service.ManagerConfig{
		Source:  service.NewGeneratorSource(simLogger),
		Repo:    service.NewMemoryRunRepo(),
		Logger:  simLogger,
		MaxRuns: 1,
	})
	if err != nil {
		return err
	}

	req := domain.RunRequest{
		ID:        uuid.New(),
		Width:     scenario.Width,
		Height:    scenario.Height,
		Seed:      scenario.Seed,
		Agents:    scenario.Agents,
		Mode:      scenario.SchedulingMode().String(),
		TickDelay: scenario.TickDelay,
		MaxTicks:  scenario.MaxTicks,
	}
	if scenario.Name != "" {
		simLogger.Info(fmt.Sprintf("scenario %q", scenario.Name))
	}

	ctx := cmd.Context()
	if err := manager.Start(ctx, req); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	done, err := manager.Done(req.ID)
	if err == nil {
		select {
		case <-done:
		case <-ctx.Done():
			simLogger.Warning("interrupted, cancelling run")
			_ = manager.Cancel(req.ID)
		}
	}
	manager.StopAll()

	report, err := manager.Status(ctx, req.ID)
	if err != nil {
		return err
	}
	return printReport(report)
}

func printReport(report *domain.RunReport) error {
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("run:      %s\n", report.ID)
	fmt.Printf("status:   %s\n", report.Status)
	fmt.Printf("maze:     %dx%d seed %d\n", report.Width, report.Height, report.Seed)
	fmt.Printf("mode:     %s\n", report.Mode)
	fmt.Printf("ticks:    %d\n", report.Ticks)
	fmt.Printf("solution: %d moves\n", report.SolutionLength)
	fmt.Printf("finished: %d/%d\n", report.Finished, len(report.Agents))
	fmt.Printf("steps:    mean %.1f stddev %.1f\n", report.MeanSteps, report.StdDevSteps)
	if report.Error != "" {
		fmt.Printf("error:    %s\n", report.Error)
	}
	fmt.Println()
	for _, a := range report.Agents {
		state := "walking"
		if a.Finished {
			state = "out"
		}
		fmt.Printf("  %-10s %6d steps  %-8s %s\n", a.Name, a.Steps, state, a.Position)
	}
	return nil
}
