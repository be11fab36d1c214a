package upscale

import (
	"context"
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/gogpu/upscale/internal/cpu"
	"github.com/gogpu/upscale/internal/hostmem"
)

// sessionWorkers is the number of goroutines draining the submission
// queue. Sessions beyond this run concurrently only in their internal
// row-band parallelism; the queue bounds device contention.
const sessionWorkers = 2

// Upscaler accepts upscaling requests and runs them through the
// progressive engine. All methods are safe for concurrent use.
type Upscaler struct {
	cfg     config
	profile HardwareProfile
	engine  *engine
	tracker *tracker

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue // of *session
	closed  bool
	wg      sync.WaitGroup
}

// New creates an Upscaler. The accelerated path uses the accelerator
// injected via WithAccelerator, or the one registered through
// RegisterAccelerator; with neither, every session runs on the CPU
// path.
func New(opts ...Option) (*Upscaler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	accel := cfg.accelerator
	if !cfg.accelSet {
		accel = registeredAccelerator()
	}

	var profile HardwareProfile
	if accel != nil {
		profile = accel.Profile()
		if cfg.memoryLimit > 0 && cfg.memoryLimit < profile.CeilingBytes {
			profile.CeilingBytes = cfg.memoryLimit
		}
	} else {
		profile = HardwareProfile{Name: "cpu", Class: PerfNone}
	}

	hostCeiling := cfg.hostLimit
	if hostCeiling == 0 {
		hostCeiling = uint64(float64(hostmem.TotalBytes()) * cfg.ceilingFraction)
	}

	u := &Upscaler{
		cfg:     cfg,
		profile: profile,
		engine: &engine{
			accel:      accel,
			profile:    profile,
			cpu:        cpu.NewProcessor(cfg.workers),
			hostBudget: MemoryUsage{CeilingBytes: hostCeiling},
		},
		tracker: newTracker(cfg.retention),
		pending: queue.New(),
	}
	u.cond = sync.NewCond(&u.mu)

	for i := 0; i < sessionWorkers; i++ {
		u.wg.Add(1)
		go u.worker()
	}

	Logger().Info("upscale: engine ready",
		"device", profile.Name,
		"class", profile.Class.String(),
		"host_ceiling_bytes", hostCeiling,
		"workers", cfg.workers)
	return u, nil
}

// worker drains the submission queue until Close.
func (u *Upscaler) worker() {
	defer u.wg.Done()
	for {
		u.mu.Lock()
		for u.pending.Length() == 0 && !u.closed {
			u.cond.Wait()
		}
		if u.pending.Length() == 0 && u.closed {
			u.mu.Unlock()
			return
		}
		s := u.pending.Remove().(*session)
		u.mu.Unlock()

		u.engine.run(s)
		close(s.done)
	}
}

// Submit validates and enqueues an upscaling request, returning the
// session ID for status polling. It fails with ErrInvalidInput for
// malformed parameters and with ErrImageTooLarge when even the minimal
// plan cannot fit the host memory budget; in both cases nothing was
// allocated or queued.
func (u *Upscaler) Submit(img *ImageBuffer, factor float64, q Quality) (uuid.UUID, error) {
	if img == nil || img.Width() <= 0 || img.Height() <= 0 {
		return uuid.Nil, fmt.Errorf("%w: nil or zero-area image", ErrInvalidInput)
	}

	// Admission: the CPU path is the floor every session can fall to,
	// so a request must at minimum plan against host memory. The plan
	// itself is rebuilt by the engine against the live budget.
	if _, err := BuildPlan(img.Width(), img.Height(), factor, q, u.engine.hostBudget); err != nil {
		return uuid.Nil, err
	}

	s := &session{
		id:      uuid.New(),
		input:   img,
		factor:  factor,
		quality: q,
		status:  StatusQueued,
		done:    make(chan struct{}),
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return uuid.Nil, ErrClosed
	}
	u.tracker.add(s)
	u.pending.Add(s)
	u.cond.Signal()
	u.mu.Unlock()

	Logger().Debug("upscale: session submitted",
		"session", s.id,
		"source", fmt.Sprintf("%dx%d", img.Width(), img.Height()),
		"factor", factor,
		"quality", q.String())
	return s.id, nil
}

// Status returns the current snapshot of a session.
func (u *Upscaler) Status(id uuid.UUID) (SessionStatus, error) {
	s, err := u.tracker.get(id)
	if err != nil {
		return SessionStatus{}, err
	}
	return s.snapshot(), nil
}

// Result returns the output image once the session is complete. It
// fails with ErrNotReady while the session is still running, with
// ErrCancelled for cancelled sessions, and with the terminal error for
// failed ones.
func (u *Upscaler) Result(id uuid.UUID) (*ImageBuffer, error) {
	s, err := u.tracker.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusComplete:
		return s.result, nil
	case StatusCancelled:
		return nil, ErrCancelled
	case StatusError:
		return nil, s.err
	default:
		return nil, fmt.Errorf("%w: session is %s", ErrNotReady, s.status)
	}
}

// Cancel requests cancellation of a session. Best-effort: honored at
// the next stage boundary, not mid-kernel.
func (u *Upscaler) Cancel(id uuid.UUID) error {
	s, err := u.tracker.get(id)
	if err != nil {
		return err
	}
	s.cancelled.Store(true)
	return nil
}

// Release evicts a session from the tracker (explicit acknowledgment).
// The session's result becomes unreachable.
func (u *Upscaler) Release(id uuid.UUID) error {
	return u.tracker.release(id)
}

// Capabilities returns the hardware profile the engine routes on.
func (u *Upscaler) Capabilities() HardwareProfile {
	return u.profile
}

// Usage returns the device memory accounting, or a zero snapshot when
// no accelerator is active.
func (u *Upscaler) Usage() MemoryUsage {
	if u.engine.accel == nil {
		return MemoryUsage{}
	}
	return u.engine.accel.Usage()
}

// Upscale is the synchronous convenience wrapper: submit with the
// configured default quality, wait for a terminal state, and return the
// result. Cancellation of ctx cancels the session.
func (u *Upscaler) Upscale(ctx context.Context, img *ImageBuffer, factor float64) (*ImageBuffer, error) {
	id, err := u.Submit(img, factor, u.cfg.defaultQuality)
	if err != nil {
		return nil, err
	}
	s, err := u.tracker.get(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-s.done:
		return u.Result(id)
	case <-ctx.Done():
		s.cancelled.Store(true)
		<-s.done
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Close stops accepting submissions, waits for in-flight sessions to
// finish, and releases the CPU worker pool. The accelerator is left
// open; it may be shared by other consumers and is owned by whoever
// registered it.
func (u *Upscaler) Close() {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return
	}
	u.closed = true
	u.cond.Broadcast()
	u.mu.Unlock()

	u.wg.Wait()
	u.engine.cpu.Close()
}
