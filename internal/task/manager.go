package task

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelworks/navdeck/internal/domain"
	"github.com/kestrelworks/navdeck/internal/events"
	"github.com/kestrelworks/navdeck/internal/remote"
	"github.com/kestrelworks/navdeck/internal/store"
)

// RemoteExecutor is the subset of the remote client the manager needs.
// It exists so tests can substitute a scripted executor.
type RemoteExecutor interface {
	SubmitCommand(ctx context.Context, command string) (*remote.SubmitResult, error)
	QueryTask(ctx context.Context, taskID string) (*remote.TaskState, error)
}

// ManagerConfig holds the timing policy for polling and simulation.
type ManagerConfig struct {
	// PollInterval is the fixed delay between status queries.
	PollInterval time.Duration

	// PollMaxAttempts is the hard attempt budget per task. Exhausting it
	// forces the record to failed; there is no backoff.
	PollMaxAttempts int
}

// DefaultManagerConfig returns a ManagerConfig with the standard timing
// policy: a 1.5s poll interval with a 120-attempt budget (three minutes).
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PollInterval:    1500 * time.Millisecond,
		PollMaxAttempts: 120,
	}
}

// Manager owns the task-history and results collections and drives every
// record from submission to a terminal state. All collection access goes
// through a single mutex; readers receive snapshots. Each in-flight task
// holds exactly one watcher goroutine (poll loop or simulation consumer)
// registered under its task id with a cancellation handle, released on
// terminal transition, removal, or shutdown.
type Manager struct {
	cfg      ManagerConfig
	store    store.StateStore
	settings *Settings
	client   RemoteExecutor
	executor Executor
	emitter  events.Emitter
	logger   *slog.Logger

	mu       sync.Mutex
	history  []*domain.TaskRecord
	results  []domain.ResultEntry
	watchers map[string]context.CancelFunc

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a Manager. A nil executor disables simulated
// execution: submission failures then terminate the record as failed. A
// nil emitter disables event publication.
func NewManager(
	cfg ManagerConfig,
	stateStore store.StateStore,
	settings *Settings,
	client RemoteExecutor,
	executor Executor,
	emitter events.Emitter,
	logger *slog.Logger,
) *Manager {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		store:    stateStore,
		settings: settings,
		client:   client,
		executor: executor,
		emitter:  emitter,
		logger:   logger.With("component", "task_manager"),
		watchers: make(map[string]context.CancelFunc),
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
}

// Settings exposes the mutable endpoint configuration.
func (m *Manager) Settings() *Settings {
	return m.settings
}

// Recover loads the persisted task history. Records left non-terminal by a
// previous process have no watcher to drive them anymore, so they are
// marked failed. A corrupt persisted collection degrades to an empty one.
func (m *Manager) Recover(ctx context.Context) error {
	history, err := m.store.LoadHistory(ctx)
	if err != nil {
		m.logger.Warn("failed to load persisted history, starting empty", "error", err)
		history = nil
	}

	interrupted := 0
	for _, rec := range history {
		if !rec.Terminal() {
			_ = rec.AdvanceStatus(domain.TaskStatusFailed)
			interrupted++
		}
	}

	m.mu.Lock()
	m.history = history
	if interrupted > 0 {
		m.persistLocked(ctx)
	}
	m.mu.Unlock()

	m.logger.Info("task history recovered",
		"record_count", len(history),
		"interrupted_count", interrupted)
	return nil
}

// Stop cancels all watchers and waits for them to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Submit creates a task record for the given command, prepends it to the
// history, and attempts remote submission. On success the record's id is
// rebound to the server-assigned identifier atomically with its transition
// to running, and a polling watcher starts. On failure the record is handed
// to the simulation executor under its original local id.
//
// A command that is empty after trimming whitespace is a silent no-op:
// Submit returns (nil, nil) and the history is unchanged.
func (m *Manager) Submit(ctx context.Context, command string) (*domain.TaskRecord, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		m.logger.Debug("ignoring empty command submission")
		return nil, nil
	}

	rec, err := domain.NewTaskRecord(trimmed)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.history = append([]*domain.TaskRecord{rec}, m.history...)
	m.persistLocked(ctx)
	snapshot := rec.Clone()
	m.mu.Unlock()

	m.emit(ctx, snapshot, false)

	submission, err := m.client.SubmitCommand(ctx, trimmed)
	if err != nil {
		// Degrade, never surface: the executor being down must not break
		// the submission surface.
		m.logger.Warn("remote submission failed, falling back to local simulation",
			"task_id", snapshot.ID,
			"error", err)
		m.startSimulation(ctx, snapshot.ID, trimmed)
		return snapshot, nil
	}

	serverID := submission.TaskID
	if serverID == "" {
		serverID = uuid.NewString()
	}

	m.mu.Lock()
	current := m.findLocked(snapshot.ID)
	if current == nil {
		// Removed while the submission was in flight; nothing to track.
		m.mu.Unlock()
		return snapshot, nil
	}
	// The id rebind and the transition to running happen under the same
	// lock acquisition so no update can ever target a stale identifier.
	current.ID = serverID
	_ = current.AdvanceStatus(domain.TaskStatusRunning)
	m.persistLocked(ctx)
	snapshot = current.Clone()
	m.mu.Unlock()

	m.emit(ctx, snapshot, false)
	m.startPolling(serverID)
	return snapshot, nil
}

// Rerun submits the command of an existing record as a brand-new task. The
// original record is never mutated.
func (m *Manager) Rerun(ctx context.Context, id string) (*domain.TaskRecord, error) {
	m.mu.Lock()
	rec := m.findLocked(id)
	if rec == nil {
		m.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	command := rec.Command
	m.mu.Unlock()

	return m.Submit(ctx, command)
}

// Remove deletes the record with the given id along with any result
// entries sharing that id, and cancels its watcher if one is active.
// Removing a nonexistent id is a no-op.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	cancel, watching := m.watchers[id]
	if watching {
		delete(m.watchers, id)
	}

	filtered := m.history[:0]
	for _, rec := range m.history {
		if rec.ID != id {
			filtered = append(filtered, rec)
		}
	}
	m.history = filtered

	keptResults := m.results[:0]
	for _, entry := range m.results {
		if entry.ID != id {
			keptResults = append(keptResults, entry)
		}
	}
	m.results = keptResults

	m.persistLocked(ctx)
	m.mu.Unlock()

	if watching {
		cancel()
	}
}

// Clear empties the history and results collections and their persisted
// mirror, cancelling every active watcher. Confirmation is a boundary
// concern; callers gate this operation before invoking it.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.watchers))
	for id, cancel := range m.watchers {
		cancels = append(cancels, cancel)
		delete(m.watchers, id)
	}
	m.history = nil
	m.results = nil
	m.persistLocked(ctx)
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Promote materializes a result entry from a completed historical record.
// Promoting the same record repeatedly yields multiple entries.
func (m *Manager) Promote(id string) (domain.ResultEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.findLocked(id)
	if rec == nil {
		return domain.ResultEntry{}, ErrTaskNotFound
	}
	if rec.Status != domain.TaskStatusDone {
		return domain.ResultEntry{}, ErrTaskNotCompleted
	}

	entry := domain.ResultEntry{ID: rec.ID, Command: rec.Command, Result: rec.Result}
	m.results = append(m.results, entry)
	return entry, nil
}

// Tasks returns a snapshot of the history collection, most recent first.
// A non-empty filter keeps only records whose command contains it,
// case-insensitively.
func (m *Manager) Tasks(filter string) []*domain.TaskRecord {
	filter = strings.ToLower(strings.TrimSpace(filter))

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]*domain.TaskRecord, 0, len(m.history))
	for _, rec := range m.history {
		if filter != "" && !strings.Contains(strings.ToLower(rec.Command), filter) {
			continue
		}
		snapshot = append(snapshot, rec.Clone())
	}
	return snapshot
}

// Task returns a snapshot of a single record, or ErrTaskNotFound.
func (m *Manager) Task(id string) (*domain.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.findLocked(id)
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	return rec.Clone(), nil
}

// Results returns a snapshot of the results collection in materialization
// order.
func (m *Manager) Results() []domain.ResultEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]domain.ResultEntry, len(m.results))
	copy(snapshot, m.results)
	return snapshot
}

// startPolling registers a watcher for the given id and launches the poll
// loop. A second watcher for an id already being watched is never started.
func (m *Manager) startPolling(id string) {
	ctx, ok := m.registerWatcher(id)
	if !ok {
		return
	}

	m.wg.Add(1)
	go m.pollLoop(ctx, id)
}

// pollLoop queries the executor at a fixed interval until the record
// reaches a terminal state or the attempt budget runs out. Transport and
// decode errors are transient: the tick is consumed and polling continues.
func (m *Manager) pollLoop(ctx context.Context, id string) {
	defer m.wg.Done()
	defer m.releaseWatcher(id)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < m.cfg.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := m.client.QueryTask(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("status query failed, will retry on next tick",
				"task_id", id,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		if terminal := m.merge(ctx, id, state); terminal {
			return
		}
	}

	// Hard timeout: the budget is exhausted, not retried with backoff.
	m.logger.Warn("polling attempt budget exhausted, marking task failed",
		"task_id", id,
		"max_attempts", m.cfg.PollMaxAttempts)
	m.failTask(ctx, id)
}

// merge folds one status-query response into the matching record and
// reports whether the record reached a terminal state. A missing record
// (removed while the query was in flight) is a no-op.
func (m *Manager) merge(ctx context.Context, id string, state *remote.TaskState) bool {
	m.mu.Lock()
	rec := m.findLocked(id)
	if rec == nil {
		m.mu.Unlock()
		return false
	}

	prevStatus, prevProgress := rec.Status, rec.Progress

	if state.Progress != nil {
		rec.AdvanceProgress(*state.Progress)
	}

	terminal := false
	if status, ok := domain.ParseTaskStatus(state.Status); ok {
		switch status {
		case domain.TaskStatusDone:
			result := state.Result
			if result == nil {
				// No dedicated result field; keep the whole response body.
				result = any(state.Raw)
			}
			if rec.Result == nil {
				rec.Result = result
			}
			_ = rec.AdvanceStatus(domain.TaskStatusDone)
			m.results = append(m.results, domain.ResultEntry{
				ID:      rec.ID,
				Command: rec.Command,
				Result:  rec.Result,
			})
			terminal = true
		case domain.TaskStatusFailed:
			_ = rec.AdvanceStatus(domain.TaskStatusFailed)
			terminal = true
		default:
			_ = rec.AdvanceStatus(status)
		}
	}

	changed := rec.Status != prevStatus || rec.Progress != prevProgress
	if changed {
		m.persistLocked(ctx)
	}
	snapshot := rec.Clone()
	m.mu.Unlock()

	if changed {
		m.emit(ctx, snapshot, false)
	}
	return terminal
}

// failTask forces the record to failed, leaving progress untouched.
func (m *Manager) failTask(ctx context.Context, id string) {
	m.mu.Lock()
	rec := m.findLocked(id)
	if rec == nil || rec.Terminal() {
		m.mu.Unlock()
		return
	}
	_ = rec.AdvanceStatus(domain.TaskStatusFailed)
	m.persistLocked(ctx)
	snapshot := rec.Clone()
	m.mu.Unlock()

	m.emit(ctx, snapshot, false)
}

// startSimulation hands the record to the local executor under its
// original local id; no rebinding happens on this path. With simulation
// disabled the record fails immediately.
func (m *Manager) startSimulation(ctx context.Context, id, command string) {
	if m.executor == nil {
		m.logger.Warn("simulation disabled, marking task failed", "task_id", id)
		m.failTask(ctx, id)
		return
	}

	watchCtx, ok := m.registerWatcher(id)
	if !ok {
		return
	}

	m.wg.Add(1)
	go m.simulationLoop(watchCtx, id, command)
}

// simulationLoop consumes the executor's progress sequence, mutating the
// record exactly the way the polling path does.
func (m *Manager) simulationLoop(ctx context.Context, id, command string) {
	defer m.wg.Done()
	defer m.releaseWatcher(id)

	// The record is running from the moment simulated execution begins.
	m.mu.Lock()
	if rec := m.findLocked(id); rec != nil {
		_ = rec.AdvanceStatus(domain.TaskStatusRunning)
		m.persistLocked(ctx)
		snapshot := rec.Clone()
		m.mu.Unlock()
		m.emit(ctx, snapshot, true)
	} else {
		m.mu.Unlock()
		return
	}

	for update := range m.executor.Execute(ctx, command) {
		m.mu.Lock()
		rec := m.findLocked(id)
		if rec == nil {
			m.mu.Unlock()
			return
		}

		rec.AdvanceProgress(update.Progress)
		if update.Done {
			if rec.Result == nil {
				rec.Result = update.Result
			}
			_ = rec.AdvanceStatus(domain.TaskStatusDone)
			m.results = append(m.results, domain.ResultEntry{
				ID:      rec.ID,
				Command: rec.Command,
				Result:  rec.Result,
			})
		}
		m.persistLocked(ctx)
		snapshot := rec.Clone()
		m.mu.Unlock()

		m.emit(ctx, snapshot, true)
		if update.Done {
			return
		}
	}
}

// registerWatcher stores a cancellation handle for the id and returns the
// watcher context. Returns ok=false when a watcher already exists for the
// id; a record never has more than one active watcher.
func (m *Manager) registerWatcher(id string) (context.Context, bool) {
	ctx, cancel := context.WithCancel(m.baseCtx)

	m.mu.Lock()
	if _, exists := m.watchers[id]; exists {
		m.mu.Unlock()
		cancel()
		return nil, false
	}
	m.watchers[id] = cancel
	m.mu.Unlock()

	return ctx, true
}

// releaseWatcher drops the cancellation handle for the id, if still
// registered, and cancels the watcher context.
func (m *Manager) releaseWatcher(id string) {
	m.mu.Lock()
	cancel, ok := m.watchers[id]
	if ok {
		delete(m.watchers, id)
	}
	m.mu.Unlock()

	if ok {
		cancel()
	}
}

// findLocked returns the record with the given id. Callers hold m.mu.
func (m *Manager) findLocked(id string) *domain.TaskRecord {
	for _, rec := range m.history {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// persistLocked mirrors the full history collection to durable storage.
// Persistence failures are logged, never propagated: the in-memory
// collection stays authoritative and consistent. Callers hold m.mu.
func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.store.SaveHistory(ctx, m.history); err != nil {
		m.logger.Error("failed to persist task history", "error", err)
	}
}

// emit publishes a transition event when an emitter is configured.
func (m *Manager) emit(ctx context.Context, record *domain.TaskRecord, simulated bool) {
	if m.emitter == nil {
		return
	}
	m.emitter.EmitEvent(ctx, events.NewTaskEvent(record, simulated))
}
