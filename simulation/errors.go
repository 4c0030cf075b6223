package simulation

import "errors"

// Simulation errors.
var (
	ErrNavigationInvariant = errors.New("agent has no valid move")
	ErrTickBudgetExceeded  = errors.New("tick budget exceeded before all agents finished")
	ErrAgentExists         = errors.New("agent is already registered")
	ErrGridMismatch        = errors.New("agent is bound to a different grid")
	ErrUnknownAgent        = errors.New("agent is not registered")
)
