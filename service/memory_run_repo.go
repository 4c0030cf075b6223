package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/google/uuid"
)

var ErrReportNotFound = errors.New("report not found")

// MemoryRunRepo keeps run reports in process. It backs local simulations and tests.
type MemoryRunRepo struct {
	reports map[uuid.UUID]domain.RunReport
	order   []uuid.UUID
	sync.RWMutex
}

func NewMemoryRunRepo() *MemoryRunRepo {
	return &MemoryRunRepo{reports: make(map[uuid.UUID]domain.RunReport)}
}

func (r *MemoryRunRepo) Save(_ context.Context, report *domain.RunReport) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.reports[report.ID]; !ok {
		r.order = append(r.order, report.ID)
	}
	r.reports[report.ID] = *report
	return nil
}

func (r *MemoryRunRepo) ByID(_ context.Context, id uuid.UUID) (*domain.RunReport, error) {
	r.RLock()
	defer r.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &report, nil
}

// ByOperator returns the newest reports of an operator first.
func (r *MemoryRunRepo) ByOperator(_ context.Context, operatorID uuid.UUID, limit int64) ([]domain.RunReport, error) {
	r.RLock()
	defer r.RUnlock()
	var out []domain.RunReport
	for _, id := range slices.Backward(r.order) {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		if report := r.reports[id]; report.OperatorID == operatorID {
			out = append(out, report)
		}
	}
	return out, nil
}

func (r *MemoryRunRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(r.reports, id)
	r.order = slices.DeleteFunc(r.order, func(o uuid.UUID) bool { return o == id })
	return nil
}
