package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/navdeck/internal/platform/filestore"
	"github.com/kestrelworks/navdeck/internal/remote"
	"github.com/kestrelworks/navdeck/internal/task"
)

// scriptedRemote plays back a fixed submission response and task state.
type scriptedRemote struct {
	mu        sync.Mutex
	submitErr error
	submitID  string
	state     *remote.TaskState
}

func (r *scriptedRemote) SubmitCommand(ctx context.Context, command string) (*remote.SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitErr != nil {
		return nil, r.submitErr
	}
	return &remote.SubmitResult{TaskID: r.submitID}, nil
}

func (r *scriptedRemote) QueryTask(ctx context.Context, taskID string) (*remote.TaskState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return &remote.TaskState{Status: "running"}, nil
	}
	return r.state, nil
}

func newTestServer(t *testing.T, client task.RemoteExecutor, executor task.Executor) (*httptest.Server, *task.Manager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := filestore.New(t.TempDir(), logger)
	require.NoError(t, err)

	settings := task.NewSettings(context.Background(), st, "http://localhost:5000", logger)
	cfg := task.ManagerConfig{PollInterval: 2 * time.Millisecond, PollMaxAttempts: 200}
	manager := task.NewManager(cfg, st, settings, client, executor, nil, logger)
	t.Cleanup(manager.Stop)

	server := httptest.NewServer(NewRouter(manager))
	t.Cleanup(server.Close)
	return server, manager
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, &scriptedRemote{submitID: "srv-1"}, nil)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitTaskEndpoint(t *testing.T) {
	t.Run("accepted submission returns the tracked record", func(t *testing.T) {
		client := &scriptedRemote{submitID: "srv-1", state: &remote.TaskState{Status: "running"}}
		server, _ := newTestServer(t, client, nil)

		resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks", map[string]string{"command": "check news"})
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var got TaskResponse
		decodeBody(t, resp, &got)
		assert.Equal(t, "srv-1", got.ID)
		assert.Equal(t, "check news", got.Command)
		assert.Equal(t, "running", got.Status)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("whitespace command is acknowledged without a record", func(t *testing.T) {
		server, manager := newTestServer(t, &scriptedRemote{submitID: "srv-1"}, nil)

		resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks", map[string]string{"command": "   "})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, manager.Tasks(""))
	})

	t.Run("malformed body", func(t *testing.T) {
		server, _ := newTestServer(t, &scriptedRemote{submitID: "srv-1"}, nil)

		resp, err := http.Post(server.URL+"/api/tasks", "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("executor outage still yields an accepted record", func(t *testing.T) {
		client := &scriptedRemote{submitErr: errors.New("connection refused")}
		server, _ := newTestServer(t, client, task.NewSimulatedExecutor(2*time.Millisecond))

		resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks", map[string]string{"command": "check news"})
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var got TaskResponse
		decodeBody(t, resp, &got)

		// Simulation drives the record to completion.
		require.Eventually(t, func() bool {
			r, err := http.Get(server.URL + "/api/tasks/" + got.ID)
			if err != nil {
				return false
			}
			defer func() { _ = r.Body.Close() }()
			var current TaskResponse
			if err := json.NewDecoder(r.Body).Decode(&current); err != nil {
				return false
			}
			return current.Status == "done" && current.Progress == 100
		}, time.Second, 5*time.Millisecond)
	})
}

func TestListAndGetTasks(t *testing.T) {
	client := &scriptedRemote{submitErr: errors.New("down")}
	server, manager := newTestServer(t, client, task.NewSimulatedExecutor(time.Minute))

	first, err := manager.Submit(context.Background(), "check news")
	require.NoError(t, err)
	_, err = manager.Submit(context.Background(), "send report")
	require.NoError(t, err)

	t.Run("list returns most recent first", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/tasks")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			Tasks []TaskResponse `json:"tasks"`
		}
		decodeBody(t, resp, &got)
		require.Len(t, got.Tasks, 2)
		assert.Equal(t, "send report", got.Tasks[0].Command)
		assert.Equal(t, "check news", got.Tasks[1].Command)
	})

	t.Run("q filters by command substring", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/tasks?q=NEWS")
		require.NoError(t, err)

		var got struct {
			Tasks []TaskResponse `json:"tasks"`
		}
		decodeBody(t, resp, &got)
		require.Len(t, got.Tasks, 1)
		assert.Equal(t, "check news", got.Tasks[0].Command)
	})

	t.Run("get by id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/tasks/" + first.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got TaskResponse
		decodeBody(t, resp, &got)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/tasks/missing")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteAndClearEndpoints(t *testing.T) {
	t.Run("delete is idempotent", func(t *testing.T) {
		client := &scriptedRemote{submitErr: errors.New("down")}
		server, manager := newTestServer(t, client, task.NewSimulatedExecutor(time.Minute))

		rec, err := manager.Submit(context.Background(), "x")
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			resp := doJSON(t, http.MethodDelete, server.URL+"/api/tasks/"+rec.ID, nil)
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		}
		assert.Empty(t, manager.Tasks(""))
	})

	t.Run("clear requires confirmation", func(t *testing.T) {
		client := &scriptedRemote{submitErr: errors.New("down")}
		server, manager := newTestServer(t, client, task.NewSimulatedExecutor(time.Minute))

		_, err := manager.Submit(context.Background(), "x")
		require.NoError(t, err)

		resp := doJSON(t, http.MethodDelete, server.URL+"/api/tasks", nil)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Len(t, manager.Tasks(""), 1)

		resp = doJSON(t, http.MethodDelete, server.URL+"/api/tasks?confirm=true", nil)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, manager.Tasks(""))
	})
}

func TestRerunEndpoint(t *testing.T) {
	client := &scriptedRemote{submitErr: errors.New("down")}
	server, manager := newTestServer(t, client, task.NewSimulatedExecutor(time.Minute))

	rec, err := manager.Submit(context.Background(), "check news")
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks/"+rec.ID+"/rerun", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var got TaskResponse
	decodeBody(t, resp, &got)
	assert.NotEqual(t, rec.ID, got.ID)
	assert.Equal(t, "check news", got.Command)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/tasks/missing/rerun", nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPromoteEndpoint(t *testing.T) {
	client := &scriptedRemote{
		submitID: "srv-1",
		state:    &remote.TaskState{Status: "done", Result: map[string]any{"items": []any{"a"}}},
	}
	server, manager := newTestServer(t, client, nil)

	_, err := manager.Submit(context.Background(), "check news")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		rec, err := manager.Task("srv-1")
		return err == nil && rec.Status == "done"
	}, time.Second, time.Millisecond)

	t.Run("completed record", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks/srv-1/promote", nil)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got ResultEntryResponse
		decodeBody(t, resp, &got)
		assert.Equal(t, "srv-1", got.ID)
		assert.Equal(t, "check news", got.Command)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/tasks/missing/promote", nil)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-completed record conflicts", func(t *testing.T) {
		pending := &scriptedRemote{submitID: "srv-2", state: &remote.TaskState{Status: "running"}}
		pendingServer, pendingManager := newTestServer(t, pending, nil)

		_, err := pendingManager.Submit(context.Background(), "slow job")
		require.NoError(t, err)

		resp := doJSON(t, http.MethodPost, pendingServer.URL+"/api/tasks/srv-2/promote", nil)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestResultsAndExportEndpoints(t *testing.T) {
	client := &scriptedRemote{
		submitID: "srv-1",
		state: &remote.TaskState{
			Status: "done",
			Result: map[string]any{"items": []any{"one", "two"}},
		},
	}
	server, manager := newTestServer(t, client, nil)

	_, err := manager.Submit(context.Background(), "check news")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(manager.Results()) == 1 }, time.Second, time.Millisecond)

	t.Run("list results", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/results")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			Results []ResultEntryResponse `json:"results"`
		}
		decodeBody(t, resp, &got)
		require.Len(t, got.Results, 1)
		assert.Equal(t, "srv-1", got.Results[0].ID)
	})

	t.Run("json export", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/exports/results.json")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="results.json"`)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var entries []map[string]any
		require.NoError(t, json.Unmarshal(body, &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "check news", entries[0]["command"])
	})

	t.Run("csv export", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/exports/results.csv")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="results.csv"`)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		lines := strings.Split(string(body), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"command"`)
		assert.Contains(t, lines[0], `"result.items"`)
		assert.Contains(t, lines[1], `"one | two"`)
	})

	t.Run("empty results export as an empty csv body", func(t *testing.T) {
		emptyServer, _ := newTestServer(t, &scriptedRemote{submitID: "x"}, nil)

		resp, err := http.Get(emptyServer.URL + "/api/exports/results.csv")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Empty(t, string(body))
	})
}

func TestSettingsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &scriptedRemote{submitID: "srv-1"}, nil)

	t.Run("get returns the current endpoint", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/settings/endpoint")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got EndpointResponse
		decodeBody(t, resp, &got)
		assert.Equal(t, "http://localhost:5000", got.Endpoint)
	})

	t.Run("put updates the endpoint", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/endpoint",
			map[string]string{"endpoint": "http://executor.internal:5001"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got EndpointResponse
		decodeBody(t, resp, &got)
		assert.Equal(t, "http://executor.internal:5001", got.Endpoint)

		check, err := http.Get(server.URL + "/api/settings/endpoint")
		require.NoError(t, err)
		decodeBody(t, check, &got)
		assert.Equal(t, "http://executor.internal:5001", got.Endpoint)
	})

	t.Run("rejects a value that is not a url", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/endpoint",
			map[string]string{"endpoint": "not a url"})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects a missing value", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/endpoint", map[string]string{})
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
