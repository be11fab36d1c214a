package upscale

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long a terminal session is kept for Status
// and Result queries before the tracker evicts it.
const DefaultRetention = 10 * time.Minute

// Status is the lifecycle state of a processing session.
type Status uint8

const (
	// StatusQueued: accepted, waiting for a worker.
	StatusQueued Status = iota

	// StatusAnalyzing: plan being built against the current budget.
	StatusAnalyzing

	// StatusAccelerated: a stage is running on the GPU path.
	StatusAccelerated

	// StatusCPU: a stage is running on the CPU path.
	StatusCPU

	// StatusFinalizing: stages done, result being materialized on the
	// host.
	StatusFinalizing

	// StatusComplete: result available via Result.
	StatusComplete

	// StatusCancelled: caller cancelled; honored at a stage boundary.
	StatusCancelled

	// StatusError: unrecoverable failure; the error is available via
	// Status and Result.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusAnalyzing:
		return "analyzing"
	case StatusAccelerated:
		return "accelerated"
	case StatusCPU:
		return "cpu"
	case StatusFinalizing:
		return "finalizing"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusError
}

// SessionStatus is the externally visible snapshot of a session.
type SessionStatus struct {
	// Status is the current lifecycle state.
	Status Status

	// Progress is the completed fraction in [0, 1], advancing at stage
	// granularity.
	Progress float64

	// StageIndex is the number of completed stages.
	StageIndex int

	// TotalStages is the stage count of the active plan.
	TotalStages int

	// Err is the terminal error for StatusError, ErrCancelled for
	// StatusCancelled, nil otherwise.
	Err error
}

// session is the engine-private state of one request. The engine is the
// only writer; external callers read through snapshots.
type session struct {
	id uuid.UUID

	// Request, immutable after submission.
	input   *ImageBuffer
	factor  float64
	quality Quality

	cancelled atomic.Bool

	// done is closed once the session reaches a terminal state.
	done chan struct{}

	mu          sync.Mutex
	status      Status
	progress    float64
	stageIndex  int
	totalStages int
	result      *ImageBuffer
	err         error
	finishedAt  time.Time
}

// snapshot returns the externally visible state.
func (s *session) snapshot() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		Status:      s.status,
		Progress:    s.progress,
		StageIndex:  s.stageIndex,
		TotalStages: s.totalStages,
		Err:         s.err,
	}
}

// setStatus moves the session to a non-terminal state.
func (s *session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// setPlan records the active plan's stage count.
func (s *session) setPlan(total int) {
	s.mu.Lock()
	s.totalStages = total
	s.mu.Unlock()
}

// stageDone advances progress after a completed stage.
func (s *session) stageDone(index, total int) {
	s.mu.Lock()
	s.stageIndex = index
	s.totalStages = total
	if total > 0 {
		s.progress = float64(index) / float64(total)
	}
	s.mu.Unlock()
}

// finish moves the session to a terminal state with a result or error.
func (s *session) finish(st Status, result *ImageBuffer, err error) {
	s.mu.Lock()
	s.status = st
	s.result = result
	s.err = err
	if st == StatusComplete {
		s.progress = 1
	}
	s.finishedAt = time.Now()
	s.mu.Unlock()
}

// tracker holds all live sessions, keyed by UUID, and evicts terminal
// sessions after the retention window.
type tracker struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*session
	retention time.Duration
}

func newTracker(retention time.Duration) *tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &tracker{
		sessions:  make(map[uuid.UUID]*session),
		retention: retention,
	}
}

// add registers a new session and opportunistically prunes expired ones.
func (t *tracker) add(s *session) {
	t.mu.Lock()
	t.pruneLocked(time.Now())
	t.sessions[s.id] = s
	t.mu.Unlock()
}

// get looks up a session by ID.
func (t *tracker) get(id uuid.UUID) (*session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// release removes a session explicitly (caller acknowledgment).
func (t *tracker) release(id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(t.sessions, id)
	return nil
}

// active returns the number of sessions not yet terminal.
func (t *tracker) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.sessions {
		if !s.snapshot().Status.Terminal() {
			n++
		}
	}
	return n
}

// pruneLocked evicts terminal sessions past the retention window.
// Caller must hold mu.
func (t *tracker) pruneLocked(now time.Time) {
	for id, s := range t.sessions {
		s.mu.Lock()
		expired := s.status.Terminal() && now.Sub(s.finishedAt) > t.retention
		s.mu.Unlock()
		if expired {
			delete(t.sessions, id)
		}
	}
}
