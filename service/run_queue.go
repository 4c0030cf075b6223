package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPrefix = "maze-swarm"
	queueKeyFmt   = "%s:queue:runs"
)

var (
	ErrNoRunHandler = errors.New("run queue has no handler")
)

type RunHandler func(ctx context.Context, req domain.RunRequest) error

type QueueOptions struct {
	Prefix  string
	Handler RunHandler
}

// RunQueue orders run requests by the time they were made and hands them to
// the handler whenever a simulation slot is free.
type RunQueue struct {
	sortedQueue i.SortedQueue
	logger      i.Logger
	opts        *QueueOptions
}

func NewRunQueue(sortedQueue i.SortedQueue, logger i.Logger, opts *QueueOptions) (*RunQueue, error) {
	if sortedQueue == nil || logger == nil {
		return nil, ErrMissingDependency
	}
	if opts == nil {
		opts = &QueueOptions{}
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}

	return &RunQueue{
		sortedQueue: sortedQueue,
		logger:      logger,
		opts:        opts,
	}, nil
}

// Push enqueues req and triggers a dispatch in the background.
func (rq *RunQueue) Push(ctx context.Context, req domain.RunRequest) error {
	if rq.opts.Handler == nil {
		return ErrNoRunHandler
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}

	if err := rq.enqueue(ctx, req); err != nil {
		rq.logger.Error(fmt.Sprintf("Failed to enqueue run: %s", err))
		return err
	}

	rq.logger.Info(fmt.Sprintf("Run enqueued successfully: ID=%s", req.ID))
	go rq.Dispatch(context.WithoutCancel(ctx))
	return nil
}

func (rq *RunQueue) enqueue(ctx context.Context, req domain.RunRequest) error {
	raw, err := msgpack.Marshal(req)
	if err != nil {
		return err
	}
	return rq.sortedQueue.Enqueue(ctx, rq.queueKey(), float64(req.RequestedAt.UnixNano()), string(raw))
}

// Dispatch hands queued requests to the handler, oldest first, until the queue is
// empty or the handler reports that no simulation slot is free.
func (rq *RunQueue) Dispatch(ctx context.Context) {
	for rq.sortedQueue.Count(ctx, rq.queueKey()) > 0 {
		rawRuns, err := rq.sortedQueue.DequeTops(ctx, rq.queueKey(), 1)
		if err != nil {
			rq.logger.Error(fmt.Sprintf("obtaining queue lock: %s", err))
			return
		}
		if len(rawRuns) == 0 {
			return
		}

		for _, raw := range rawRuns {
			var req domain.RunRequest
			if err := msgpack.Unmarshal([]byte(raw), &req); err != nil {
				rq.logger.Warning(fmt.Sprintf("Undecodable run in queue: %s", err))
				continue
			}

			err := rq.opts.Handler(ctx, req)
			switch {
			case errors.Is(err, ErrTooManyRuns):
				rq.logger.Info(fmt.Sprintf("No free slot for run %s, keeping it queued", req.ID))
				if err := rq.enqueue(ctx, req); err != nil {
					rq.logger.Error(fmt.Sprintf("Failed to requeue run %s: %s", req.ID, err))
				}
				return
			case err != nil:
				rq.logger.Error(fmt.Sprintf("Dropping run %s: %s", req.ID, err))
			}
		}
	}
}

// Len returns the number of queued runs.
func (rq *RunQueue) Len(ctx context.Context) int64 {
	return rq.sortedQueue.Count(ctx, rq.queueKey())
}

func (rq *RunQueue) SetRunHandler(f RunHandler) {
	rq.opts.Handler = f
}

func (rq *RunQueue) queueKey() string {
	return fmt.Sprintf(queueKeyFmt, rq.opts.Prefix)
}
