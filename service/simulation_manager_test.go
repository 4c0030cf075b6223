package service

import (
	"context"
	"testing"
	"time"

	"github.com/beka-birhanu/maze-swarm/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxRuns int) (*SimulationManager, *MemoryRunRepo) {
	t.Helper()
	repo := NewMemoryRunRepo()
	m, err := NewSimulationManager(&ManagerConfig{
		Source:  NewGeneratorSource(nopLogger{}),
		Repo:    repo,
		Logger:  nopLogger{},
		MaxRuns: maxRuns,
	})
	require.NoError(t, err)
	t.Cleanup(m.StopAll)
	return m, repo
}

func runRequest(agents int, delay time.Duration) domain.RunRequest {
	return domain.RunRequest{
		ID:         uuid.New(),
		OperatorID: uuid.New(),
		Width:      15,
		Height:     11,
		Seed:       3,
		Agents:     agents,
		Mode:       "parallel",
		TickDelay:  delay,
	}
}

func waitDone(t *testing.T, m *SimulationManager, id uuid.UUID) {
	t.Helper()
	done, err := m.Done(id)
	if err != nil {
		return // already archived
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("run %s did not end", id)
	}
}

func TestSimulationManager(t *testing.T) {
	t.Run("Requires its dependencies", func(t *testing.T) {
		_, err := NewSimulationManager(&ManagerConfig{Logger: nopLogger{}})
		assert.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("Runs a swarm to completion and archives it", func(t *testing.T) {
		m, repo := newTestManager(t, 2)
		req := runRequest(3, 0)

		require.NoError(t, m.Start(context.Background(), req))
		waitDone(t, m, req.ID)

		assert.Eventually(t, func() bool { return m.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
		archived, err := repo.ByID(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunCompleted, archived.Status)
		assert.Equal(t, 3, archived.Finished)
		assert.Equal(t, int64(3), archived.Seed)
		assert.Positive(t, archived.Ticks)

		status, err := m.Status(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, archived, status)
	})

	t.Run("Streams events until the run ends", func(t *testing.T) {
		m, _ := newTestManager(t, 1)
		req := runRequest(2, 2*time.Millisecond)
		require.NoError(t, m.Start(context.Background(), req))

		events, unsubscribe, err := m.Subscribe(req.ID)
		require.NoError(t, err)
		defer unsubscribe()

		var last *domain.RunEvent
		timeout := time.After(10 * time.Second)
		for done := false; !done; {
			select {
			case ev, ok := <-events:
				if !ok {
					done = true
					break
				}
				assert.Equal(t, req.ID, ev.RunID)
				last = &ev
			case <-timeout:
				t.Fatal("event stream did not close")
			}
		}
		require.NotNil(t, last)
		assert.Equal(t, domain.EventRunEnded, last.Type)
		require.NotNil(t, last.Report)
		assert.Equal(t, domain.RunCompleted, last.Report.Status)
	})

	t.Run("Cancels a live run", func(t *testing.T) {
		m, repo := newTestManager(t, 1)
		req := runRequest(2, time.Hour)
		require.NoError(t, m.Start(context.Background(), req))

		status, err := m.Status(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunRunning, status.Status)

		require.NoError(t, m.Cancel(req.ID))
		waitDone(t, m, req.ID)
		assert.Eventually(t, func() bool {
			archived, err := repo.ByID(context.Background(), req.ID)
			return err == nil && archived.Status == domain.RunCancelled
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("Enforces the run limit", func(t *testing.T) {
		m, _ := newTestManager(t, 1)
		first := runRequest(1, time.Hour)
		require.NoError(t, m.Start(context.Background(), first))

		assert.ErrorIs(t, m.Start(context.Background(), first), ErrRunExists)
		assert.ErrorIs(t, m.Start(context.Background(), runRequest(1, 0)), ErrTooManyRuns)
	})

	t.Run("Rejects invalid requests", func(t *testing.T) {
		m, _ := newTestManager(t, 1)
		req := runRequest(0, 0)
		assert.ErrorIs(t, m.Start(context.Background(), req), domain.ErrInvalidRunRequest)
	})

	t.Run("A run that cannot start replaces its queued record", func(t *testing.T) {
		repo := NewMemoryRunRepo()
		m, err := NewSimulationManager(&ManagerConfig{Source: failingSource{}, Repo: repo, Logger: nopLogger{}})
		require.NoError(t, err)

		req := runRequest(1, 0)
		require.NoError(t, repo.Save(context.Background(), req.QueuedReport()))
		queued, err := m.Status(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunQueued, queued.Status)

		assert.ErrorIs(t, m.Start(context.Background(), req), errNoMaze)
		failed, err := m.Status(context.Background(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunFailed, failed.Status)
		assert.Contains(t, failed.Error, errNoMaze.Error())
		assert.Equal(t, req.OperatorID, failed.OperatorID)
	})

	t.Run("Unknown runs are reported", func(t *testing.T) {
		m, _ := newTestManager(t, 1)
		_, err := m.Status(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrRunNotFound)
		assert.ErrorIs(t, m.Cancel(uuid.New()), ErrRunNotFound)
		_, _, err = m.Subscribe(uuid.New())
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("StopAll archives every run as cancelled", func(t *testing.T) {
		m, repo := newTestManager(t, 2)
		reqs := []domain.RunRequest{runRequest(1, time.Hour), runRequest(2, time.Hour)}
		for _, req := range reqs {
			require.NoError(t, m.Start(context.Background(), req))
		}

		m.StopAll()
		assert.Equal(t, 0, m.Active())
		for _, req := range reqs {
			archived, err := repo.ByID(context.Background(), req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RunCancelled, archived.Status)
		}
	})
}
