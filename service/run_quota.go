package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/google/uuid"
)

// RunQuota enforces the daily run quota of operators. A reserved run is archived
// as queued right away, so runs waiting in the queue count before they start.
type RunQuota struct {
	operators i.OperatorRepo
	runs      i.RunRepo
	now       func() time.Time
	mu        sync.Mutex // serialises count-then-save within this instance
}

func NewRunQuota(operators i.OperatorRepo, runs i.RunRepo) (*RunQuota, error) {
	if operators == nil || runs == nil {
		return nil, ErrMissingDependency
	}
	return &RunQuota{operators: operators, runs: runs, now: time.Now}, nil
}

// Reserve checks the operator of req has runs left today and records req as queued.
func (q *RunQuota) Reserve(ctx context.Context, req domain.RunRequest) error {
	operator, err := q.operators.ByID(req.OperatorID)
	if err != nil {
		return fmt.Errorf("loading operator %s: %w", req.OperatorID, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	used, err := q.usedToday(ctx, operator)
	if err != nil {
		return err
	}
	if err := operator.CheckRunQuota(used); err != nil {
		return err
	}

	report := req.QueuedReport()
	if report.StartedAt.IsZero() {
		report.StartedAt = q.now().UTC()
	}
	return q.runs.Save(ctx, report)
}

// Release drops the queued record of a run that never reached the queue.
func (q *RunQuota) Release(ctx context.Context, id uuid.UUID) error {
	return q.runs.Delete(ctx, id)
}

func (q *RunQuota) usedToday(ctx context.Context, operator *identity.Operator) (int, error) {
	if operator.RunQuota <= 0 {
		return 0, nil
	}
	reports, err := q.runs.ByOperator(ctx, operator.ID, int64(operator.RunQuota))
	if err != nil {
		return 0, fmt.Errorf("counting runs of %s: %w", operator.ID, err)
	}

	since := identity.QuotaDay(q.now())
	used := 0
	for _, r := range reports {
		if !r.StartedAt.Before(since) {
			used++
		}
	}
	return used, nil
}
