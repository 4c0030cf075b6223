package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/maze"
	"github.com/google/uuid"
)

var errNoMaze = errors.New("maze source unavailable")

type failingSource struct{}

func (failingSource) Maze(context.Context, int, int, int64) (*maze.Grid, error) {
	return nil, errNoMaze
}

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}

type member struct {
	score float64
	value string
}

// memoryQueue is a single process stand-in for the redis sorted queue.
type memoryQueue struct {
	queues map[string][]member
	mu     sync.Mutex
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{queues: make(map[string][]member)}
}

func (q *memoryQueue) Enqueue(_ context.Context, key string, score float64, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[key] = append(q.queues[key], member{score: score, value: value})
	slices.SortStableFunc(q.queues[key], func(a, b member) int {
		switch {
		case a.score < b.score:
			return -1
		case a.score > b.score:
			return 1
		}
		return 0
	})
	return nil
}

func (q *memoryQueue) DequeTops(_ context.Context, key string, amount int64) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	if int64(len(q.queues[key])) >= amount {
		for _, m := range q.queues[key][:amount] {
			out = append(out, m.value)
		}
		q.queues[key] = q.queues[key][amount:]
	}
	return out, nil
}

func (q *memoryQueue) Count(_ context.Context, key string) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[key]))
}

type memoryOperatorRepo struct {
	operators map[string]*identity.Operator
}

func (r *memoryOperatorRepo) Save(o *identity.Operator) error {
	if existing, ok := r.operators[o.Username]; ok && existing.ID != o.ID {
		return identity.ErrUsernameTaken
	}
	r.operators[o.Username] = o
	return nil
}

func (r *memoryOperatorRepo) ByID(id uuid.UUID) (*identity.Operator, error) {
	for _, o := range r.operators {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errors.New("operator not found")
}

func (r *memoryOperatorRepo) ByUsername(username string) (*identity.Operator, error) {
	o, ok := r.operators[username]
	if !ok {
		return nil, errors.New("operator not found")
	}
	return o, nil
}
