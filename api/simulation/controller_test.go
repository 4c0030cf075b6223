package simulationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/maze-swarm/api"
	apii "github.com/beka-birhanu/maze-swarm/api/i"
	"github.com/beka-birhanu/maze-swarm/api/identity"
	"github.com/beka-birhanu/maze-swarm/domain"
	dmn "github.com/beka-birhanu/maze-swarm/identity"
	"github.com/beka-birhanu/maze-swarm/infrastruture/token"
	"github.com/beka-birhanu/maze-swarm/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	pushed []domain.RunRequest
	err    error
}

func (q *fakeQueue) Push(_ context.Context, req domain.RunRequest) error {
	if q.err != nil {
		return q.err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	q.pushed = append(q.pushed, req)
	return nil
}

type fakeQuota struct {
	limit    int
	reserved map[uuid.UUID]int
	released []uuid.UUID
}

func (q *fakeQuota) Reserve(_ context.Context, req domain.RunRequest) error {
	if q.reserved[req.OperatorID] >= q.limit {
		return dmn.ErrRunQuotaExceeded
	}
	q.reserved[req.OperatorID]++
	return nil
}

func (q *fakeQuota) Release(_ context.Context, id uuid.UUID) error {
	q.released = append(q.released, id)
	return nil
}

type fakeManager struct {
	reports   map[uuid.UUID]*domain.RunReport
	events    []domain.RunEvent
	cancelled []uuid.UUID
}

func (m *fakeManager) Start(context.Context, domain.RunRequest) error { return nil }

func (m *fakeManager) Status(_ context.Context, id uuid.UUID) (*domain.RunReport, error) {
	if r, ok := m.reports[id]; ok {
		return r, nil
	}
	return nil, service.ErrRunNotFound
}

func (m *fakeManager) Cancel(id uuid.UUID) error {
	if _, ok := m.reports[id]; !ok {
		return service.ErrRunNotFound
	}
	m.cancelled = append(m.cancelled, id)
	return nil
}

func (m *fakeManager) Subscribe(id uuid.UUID) (<-chan domain.RunEvent, func(), error) {
	if _, ok := m.reports[id]; !ok {
		return nil, nil, service.ErrRunNotFound
	}
	ch := make(chan domain.RunEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, func() {}, nil
}

func (m *fakeManager) StopAll() {}

type testEnv struct {
	engine      *gin.Engine
	queue       *fakeQueue
	manager     *fakeManager
	quota       *fakeQuota
	bearer      string
	operator    uuid.UUID
	otherBearer string // token of a second operator
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokenizer := token.NewJwtService("test-secret", "maze-swarm")
	sign := func(operator uuid.UUID) string {
		tok, err := tokenizer.Generate(map[string]interface{}{"operatorID": operator.String()}, time.Minute)
		require.NoError(t, err)
		return "Bearer " + tok
	}
	operator := uuid.New()

	queue := &fakeQueue{}
	manager := &fakeManager{reports: make(map[uuid.UUID]*domain.RunReport)}
	quota := &fakeQuota{limit: 3, reserved: make(map[uuid.UUID]int)}
	controller, err := NewSimulationController(service.NewGeneratorSource(nil), queue, manager, quota)
	require.NoError(t, err)

	router := api.NewRouter(api.Config{
		BaseURL:                 "/api",
		Controllers:             []apii.Controller{controller},
		AuthorizationMiddleware: identity.Authorize(tokenizer),
	})
	return &testEnv{
		engine:      router.Engine(),
		queue:       queue,
		manager:     manager,
		quota:       quota,
		bearer:      sign(operator),
		operator:    operator,
		otherBearer: sign(uuid.New()),
	}
}

func (e *testEnv) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	bearer := ""
	if authorized {
		bearer = e.bearer
	}
	return e.doAs(bearer, method, path, body)
}

func (e *testEnv) doAs(bearer, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// ownRun registers a live run of the env's operator with the fake manager.
func (e *testEnv) ownRun(status domain.RunStatus) uuid.UUID {
	id := uuid.New()
	e.manager.reports[id] = &domain.RunReport{ID: id, OperatorID: e.operator, Status: status, Ticks: 12}
	return id
}

func TestPreview(t *testing.T) {
	env := setup(t)

	t.Run("Returns a seeded maze", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/mazes", `{"width":10,"height":8,"seed":42}`, false)
		require.Equal(t, http.StatusOK, w.Code)

		var resp MazeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 11, resp.Width)
		assert.Equal(t, 9, resp.Height)
		assert.Equal(t, int64(42), resp.Seed)
		assert.Len(t, resp.Rows, 9)
		assert.True(t, resp.Perfect)
		assert.GreaterOrEqual(t, resp.SolutionLength, 2)
	})

	t.Run("Rejects oversized mazes", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/mazes", `{"width":5000,"height":8}`, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuns(t *testing.T) {
	t.Run("Requires a bearer token", func(t *testing.T) {
		env := setup(t)
		w := env.do(http.MethodPost, "/api/v1/runs", `{"agents":2}`, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Queues a run for the operator", func(t *testing.T) {
		env := setup(t)
		w := env.do(http.MethodPost, "/api/v1/runs", `{"width":21,"height":21,"seed":7,"agents":3,"mode":"parallel","tick_delay_ms":20}`, true)
		require.Equal(t, http.StatusAccepted, w.Code)

		var accepted RunAccepted
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
		require.Len(t, env.queue.pushed, 1)
		pushed := env.queue.pushed[0]
		assert.Equal(t, accepted.ID, pushed.ID)
		assert.Equal(t, env.operator, pushed.OperatorID)
		assert.Equal(t, 3, pushed.Agents)
		assert.Equal(t, 20*time.Millisecond, pushed.TickDelay)
	})

	t.Run("Rejects invalid runs", func(t *testing.T) {
		env := setup(t)
		for _, body := range []string{`{"agents":0}`, `{"agents":2,"mode":"chaotic"}`, `not json`} {
			w := env.do(http.MethodPost, "/api/v1/runs", body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		assert.Empty(t, env.queue.pushed)
		assert.Empty(t, env.quota.reserved)
	})

	t.Run("Enforces the daily quota", func(t *testing.T) {
		env := setup(t)
		body := `{"width":21,"height":21,"agents":1}`
		for range env.quota.limit {
			require.Equal(t, http.StatusAccepted, env.do(http.MethodPost, "/api/v1/runs", body, true).Code)
		}
		w := env.do(http.MethodPost, "/api/v1/runs", body, true)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Len(t, env.queue.pushed, env.quota.limit)

		// Quotas are per operator.
		assert.Equal(t, http.StatusAccepted, env.doAs(env.otherBearer, http.MethodPost, "/api/v1/runs", body).Code)
	})

	t.Run("Releases the reservation when queueing fails", func(t *testing.T) {
		env := setup(t)
		env.queue.err = errors.New("redis down")
		w := env.do(http.MethodPost, "/api/v1/runs", `{"agents":1}`, true)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Len(t, env.quota.released, 1)
	})

	t.Run("Reports and cancels runs", func(t *testing.T) {
		env := setup(t)
		id := env.ownRun(domain.RunRunning)

		w := env.do(http.MethodGet, "/api/v1/runs/"+id.String(), "", true)
		require.Equal(t, http.StatusOK, w.Code)
		var report domain.RunReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, domain.RunRunning, report.Status)
		assert.Equal(t, 12, report.Ticks)

		w = env.do(http.MethodDelete, "/api/v1/runs/"+id.String(), "", true)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, []uuid.UUID{id}, env.manager.cancelled)

		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/runs/"+uuid.NewString(), "", true).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/v1/runs/"+uuid.NewString(), "", true).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/runs/not-a-uuid", "", true).Code)
	})

	t.Run("Runs of other operators are hidden", func(t *testing.T) {
		env := setup(t)
		id := env.ownRun(domain.RunRunning)
		path := "/api/v1/runs/" + id.String()

		assert.Equal(t, http.StatusNotFound, env.doAs(env.otherBearer, http.MethodGet, path, "").Code)
		assert.Equal(t, http.StatusNotFound, env.doAs(env.otherBearer, http.MethodDelete, path, "").Code)
		assert.Equal(t, http.StatusNotFound, env.doAs(env.otherBearer, http.MethodGet, path+"/events", "").Code)
		assert.Empty(t, env.manager.cancelled)

		assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, "", true).Code)
		assert.Equal(t, []uuid.UUID{id}, env.manager.cancelled)
	})

	t.Run("Streams run events", func(t *testing.T) {
		env := setup(t)
		id := env.ownRun(domain.RunCompleted)
		report := env.manager.reports[id]
		env.manager.events = []domain.RunEvent{
			{Type: domain.EventGridChanged, RunID: id, Tick: 1},
			{Type: domain.EventAgentFinished, RunID: id, Tick: 2, Agent: "Agent_0"},
			{Type: domain.EventRunEnded, RunID: id, Tick: 2, Report: report},
		}

		srv := httptest.NewServer(env.engine)
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/runs/"+id.String()+"/events", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", env.bearer)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		grid := bytes.Index(body, []byte("event:grid_changed"))
		finished := bytes.Index(body, []byte("event:agent_finished"))
		ended := bytes.Index(body, []byte("event:run_ended"))
		require.True(t, grid >= 0 && finished > grid && ended > finished, string(body))
		assert.Contains(t, string(body), `"agent":"Agent_0"`)
	})
}

func TestNewSimulationControllerRequiresDependencies(t *testing.T) {
	_, err := NewSimulationController(nil, &fakeQueue{}, &fakeManager{}, &fakeQuota{})
	assert.True(t, errors.Is(err, service.ErrMissingDependency))
	_, err = NewSimulationController(service.NewGeneratorSource(nil), &fakeQueue{}, &fakeManager{}, nil)
	assert.True(t, errors.Is(err, service.ErrMissingDependency))
}
