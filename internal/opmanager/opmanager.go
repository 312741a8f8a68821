// Package opmanager implements the in-memory, insertion-ordered operation
// registry: one record per workflow run, with progress updates, a
// bounded history of completed runs, and rejection of overlapping runs
// against the same save.
package opmanager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

// Kind identifies the workflow an Operation tracks.
type Kind string

const (
	Initialize  Kind = "initialize"
	Translate   Kind = "translate"
	Commit      Kind = "commit"
	Reconstruct Kind = "reconstruct"
)

// Status is an Operation's lifecycle state.
type Status string

const (
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// Progress is a single progress update emitted at a phase boundary or
// at a bounded rate within a long phase.
type Progress struct {
	StepName string
	Current  int
	Total    int
	Message  string
}

// Operation is one tracked workflow run.
type Operation struct {
	ID          string
	SavePath    string
	Kind        Kind
	CurrentStep int
	TotalSteps  int
	Message     string
	StartedAt   time.Time
	EndedAt     *time.Time

	mu     sync.Mutex
	status Status
	events chan Progress
}

// Status returns the operation's current lifecycle state.
func (o *Operation) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Events returns a channel of progress updates for this operation. The
// channel is closed when the operation completes; Complete itself sends no
// update. Sends are non-blocking, so emitting progress never becomes a
// suspension point an I/O-bound phase waits on: an update sent while the
// buffer is full is dropped, and a slow consumer still observes the close.
func (o *Operation) Events() <-chan Progress {
	return o.events
}

// Manager tracks active and completed operations. At most one Running
// operation may exist per save path at a time.
type Manager struct {
	mu      sync.Mutex
	active  map[string]*Operation // savePath -> running operation
	history []*Operation          // bounded ring of completed operations
}

// MaxHistory bounds the number of completed operations retained per
// process.
const MaxHistory = 200

// New returns an empty Manager.
func New() *Manager {
	return &Manager{active: make(map[string]*Operation)}
}

// Start begins a new operation for savePath. It fails with a Collision
// error if another operation is already Running for the same save.
func (m *Manager) Start(savePath string, kind Kind, totalSteps int) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.active[savePath]; ok {
		return nil, coreerr.New(coreerr.Collision, savePath, "a "+string(existing.Kind)+" workflow is already running for this save", nil)
	}
	op := &Operation{
		ID:         uuid.NewString(),
		SavePath:   savePath,
		Kind:       kind,
		TotalSteps: totalSteps,
		StartedAt:  time.Now(),
		status:     Running,
		events:     make(chan Progress, 16),
	}
	m.active[savePath] = op
	return op, nil
}

// Update advances an operation's progress and emits a Progress event.
func (m *Manager) Update(op *Operation, step int, stepName, message string) {
	op.mu.Lock()
	op.CurrentStep = step
	op.Message = message
	op.mu.Unlock()

	select {
	case op.events <- Progress{StepName: stepName, Current: step, Total: op.TotalSteps, Message: message}:
	default:
	}
}

// Complete marks an operation terminal and moves it from active into the
// bounded history.
func (m *Manager) Complete(op *Operation, success bool, message string) {
	now := time.Now()
	op.mu.Lock()
	if success {
		op.status = Succeeded
	} else {
		op.status = Failed
	}
	if message != "" {
		op.Message = message
	}
	op.EndedAt = &now
	op.mu.Unlock()
	close(op.events)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[op.SavePath] == op {
		delete(m.active, op.SavePath)
	}
	m.history = append(m.history, op)
	if len(m.history) > MaxHistory {
		m.history = m.history[len(m.history)-MaxHistory:]
	}
}

// GetActive returns the Running operation for savePath, optionally
// filtered by kind (empty kind matches any).
func (m *Manager) GetActive(savePath string, kind Kind) (*Operation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.active[savePath]
	if !ok {
		return nil, false
	}
	if kind != "" && op.Kind != kind {
		return nil, false
	}
	return op, true
}

// History returns completed operations for savePath, most recent last.
func (m *Manager) History(savePath string) []*Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Operation
	for _, op := range m.history {
		if op.SavePath == savePath {
			out = append(out, op)
		}
	}
	return out
}
