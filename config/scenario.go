package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/maze-swarm/simulation"
	"gopkg.in/yaml.v3"
)

const (
	defaultScenarioDimension = 21
	defaultScenarioAgents    = 1
	maxScenarioAgents        = 64
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes one local simulation run.
type Scenario struct {
	Name      string        `yaml:"name"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	Seed      int64         `yaml:"seed"`
	Agents    int           `yaml:"agents"`
	Mode      string        `yaml:"mode"`
	TickDelay time.Duration `yaml:"tick_delay"`
	MaxTicks  int           `yaml:"max_ticks"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes a YAML scenario, fills in defaults and validates it.
func ParseScenario(raw []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if s.Width == 0 {
		s.Width = defaultScenarioDimension
	}
	if s.Height == 0 {
		s.Height = defaultScenarioDimension
	}
	if s.Agents == 0 {
		s.Agents = defaultScenarioAgents
	}
	return s, s.Validate()
}

// Validate checks the fields a run cannot start without.
func (s Scenario) Validate() error {
	if s.Agents < 1 || s.Agents > maxScenarioAgents {
		return fmt.Errorf("%w: agents must be between 1 and %d, got %d", ErrInvalidScenario, maxScenarioAgents, s.Agents)
	}
	if s.MaxTicks < 0 || s.TickDelay < 0 {
		return fmt.Errorf("%w: max_ticks and tick_delay must not be negative", ErrInvalidScenario)
	}
	if _, err := simulation.ParseMode(s.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// SchedulingMode returns the parsed mode of a validated scenario.
func (s Scenario) SchedulingMode() simulation.Mode {
	m, _ := simulation.ParseMode(s.Mode)
	return m
}
