package pipeline

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/present"
	"github.com/dgallion1/layertree/internal/walker"
)

// RunStatus represents the state of a selection run.
type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusWalking    RunStatus = "walking"
	StatusCompleted  RunStatus = "completed"
	StatusEmpty      RunStatus = "empty"
	StatusFailed     RunStatus = "failed"
	StatusSuperseded RunStatus = "superseded"
)

// Run tracks one walk attempt over a selection.
type Run struct {
	mu sync.Mutex

	ID      string         `json:"run_id"`
	Status  RunStatus      `json:"status"`
	Options walker.Options `json:"options"`
	Roots   []string       `json:"roots"`
	Stats   walker.Stats   `json:"stats"`
	Error   string         `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: set once the run finishes.
	payload  *present.SelectionData
	finished chan struct{}
}

// NewRun creates a queued run. Options are captured here so the walk never
// sees a later change to the option cache.
func NewRun(opts walker.Options, nodes []doctree.Node) *Run {
	roots := make([]string, 0, len(nodes))
	for _, n := range nodes {
		roots = append(roots, n.ID())
	}
	now := time.Now()
	return &Run{
		ID:        ulid.Make().String(),
		Status:    StatusQueued,
		Options:   opts,
		Roots:     roots,
		CreatedAt: now,
		UpdatedAt: now,
		finished:  make(chan struct{}),
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.UpdatedAt = time.Now()
}

// Finish records the outcome and releases waiters. Only the first call counts.
func (r *Run) Finish(status RunStatus, stats walker.Stats, data present.SelectionData, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payload != nil {
		return
	}
	r.Status = status
	r.Stats = stats
	r.Error = errMsg
	r.payload = &data
	r.UpdatedAt = time.Now()
	close(r.finished)
}

// Done is closed when the run has a result.
func (r *Run) Done() <-chan struct{} {
	return r.finished
}

// Payload returns the selection-data payload, false while the run is pending.
func (r *Run) Payload() (present.SelectionData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payload == nil {
		return present.SelectionData{}, false
	}
	return *r.payload, true
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string                 `json:"run_id"`
	Status    RunStatus              `json:"status"`
	Options   walker.Options         `json:"options"`
	Roots     []string               `json:"roots"`
	Stats     walker.Stats           `json:"stats"`
	Error     string                 `json:"error,omitempty"`
	Result    *present.SelectionData `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	roots := append([]string{}, r.Roots...)
	var result *present.SelectionData
	if r.payload != nil {
		p := *r.payload
		result = &p
	}
	return RunSnapshot{
		ID:        r.ID,
		Status:    r.Status,
		Options:   r.Options,
		Roots:     roots,
		Stats:     r.Stats,
		Error:     r.Error,
		Result:    result,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		updated := run.UpdatedAt
		run.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.runs, id)
		}
	}
}
