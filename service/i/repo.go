package i

import (
	"context"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/identity"
	"github.com/google/uuid"
)

// OperatorRepo defines the interface for operator persistence operations.
type OperatorRepo interface {
	// Save inserts or updates an operator in the repository.
	// If the operator already exists, it updates the record. Otherwise, it creates a new one.
	Save(operator *identity.Operator) error

	// ByID retrieves an operator by their unique ID.
	// Returns an error if the operator is not found or in case of an unexpected error.
	ByID(id uuid.UUID) (*identity.Operator, error)

	// ByUsername retrieves an operator by their username.
	// Returns an error if the operator is not found or in case of an unexpected error.
	ByUsername(username string) (*identity.Operator, error)
}

// RunRepo archives run reports: a queued placeholder on submit, the final report when the run ends.
type RunRepo interface {
	Save(ctx context.Context, report *domain.RunReport) error
	ByID(ctx context.Context, id uuid.UUID) (*domain.RunReport, error)
	// ByOperator lists the newest reports of an operator first.
	ByOperator(ctx context.Context, operatorID uuid.UUID, limit int64) ([]domain.RunReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
