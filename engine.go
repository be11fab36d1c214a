package upscale

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/upscale/internal/cpu"
)

// engine runs sessions through the plan state machine:
//
//	Queued -> Analyzing -> {Accelerated | CPU} (per stage) -> Finalizing -> Complete
//
// with Cancelled and Error as terminal states. A failed accelerated
// stage enters the fallback transition: the remaining work is re-planned
// against host memory and continues on the CPU path from the last
// completed stage output. The retry policy is exactly once per session
// (accelerated to CPU); a CPU stage failure is fatal.
type engine struct {
	accel      Accelerator // nil when unavailable or disabled
	profile    HardwareProfile
	cpu        *cpu.Processor
	hostBudget MemoryUsage

	// Counters surfaced by the metrics collector.
	stagesAccelerated atomic.Uint64
	stagesCPU         atomic.Uint64
	fallbacks         atomic.Uint64
	sessionsComplete  atomic.Uint64
	sessionsFailed    atomic.Uint64
	sessionsCancelled atomic.Uint64
}

// run executes one session to a terminal state. It is the only writer
// of session state.
func (e *engine) run(s *session) {
	s.setStatus(StatusAnalyzing)

	sw, sh := s.input.Width(), s.input.Height()

	// Plan against the device budget when an accelerated path exists;
	// an infeasible device plan is not an error, just a CPU session.
	accelerated := e.accel != nil && e.profile.Class != PerfNone
	var plan *Plan
	if accelerated {
		p, err := BuildPlan(sw, sh, s.factor, s.quality, e.accel.Usage())
		if err != nil {
			Logger().Debug("engine: device plan infeasible, using cpu path",
				"session", s.id, "err", err)
			accelerated = false
		} else {
			plan = p
		}
	}
	if plan == nil {
		p, err := BuildPlan(sw, sh, s.factor, s.quality, e.hostBudget)
		if err != nil {
			e.sessionsFailed.Add(1)
			s.finish(StatusError, nil, err)
			return
		}
		plan = p
	}
	s.setPlan(plan.TotalStages())

	Logger().Debug("engine: plan built",
		"session", s.id,
		"stages", plan.TotalStages(),
		"target", fmt.Sprintf("%dx%d", plan.DstWidth, plan.DstHeight),
		"accelerated", accelerated)

	// Stage outputs live on the host between stages; device buffers are
	// scoped inside the accelerator's RunStage.
	cur := s.input.packed()
	cw, ch := sw, sh
	stages := plan.Stages
	completed := 0

	for i := 0; i < len(stages); {
		// Cancellation is honored at stage boundaries only.
		if s.cancelled.Load() {
			e.sessionsCancelled.Add(1)
			s.finish(StatusCancelled, nil, ErrCancelled)
			return
		}

		st := stages[i]
		if accelerated {
			s.setStatus(StatusAccelerated)
			out, err := e.accel.RunStage(st.Algorithm, cur, st.InWidth, st.InHeight, st.OutWidth, st.OutHeight)
			if err != nil {
				// Fallback transition: keep completed work, re-plan the
				// remaining factor against host memory, continue on CPU.
				e.fallbacks.Add(1)
				Logger().Warn("engine: accelerated stage failed, falling back to cpu",
					"session", s.id, "stage", st.String(), "err", err)
				accelerated = false
				rp, perr := planTo(cw, ch, plan.DstWidth, plan.DstHeight, s.quality, e.hostBudget)
				if perr != nil {
					e.sessionsFailed.Add(1)
					s.finish(StatusError, nil, perr)
					return
				}
				stages = rp.Stages
				i = 0
				s.stageDone(completed, completed+len(stages))
				continue
			}
			e.stagesAccelerated.Add(1)
			cur = out
		} else {
			s.setStatus(StatusCPU)
			out, err := e.cpu.RunStage(st.Algorithm.kernel(), cur, st.InWidth, st.InHeight, st.OutWidth, st.OutHeight)
			if err != nil {
				e.sessionsFailed.Add(1)
				s.finish(StatusError, nil, fmt.Errorf("%w: cpu stage %s: %v", ErrFatal, st, err))
				return
			}
			e.stagesCPU.Add(1)
			cur = out
		}

		cw, ch = st.OutWidth, st.OutHeight
		completed++
		i++
		s.stageDone(completed, completed+len(stages)-i)
	}

	s.setStatus(StatusFinalizing)
	result := fromPacked(cur, plan.DstWidth, plan.DstHeight)
	e.sessionsComplete.Add(1)
	s.finish(StatusComplete, result, nil)

	Logger().Info("engine: session complete",
		"session", s.id,
		"result", fmt.Sprintf("%dx%d", result.Width(), result.Height()),
		"stages", completed)
}
