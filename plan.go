package upscale

import (
	"fmt"
	"math"
)

// maxDimension bounds a single output axis. Beyond this the byte
// arithmetic risks overflow long before any real workload needs it.
const maxDimension = 1 << 24

// MemoryUsage is a point-in-time snapshot of a memory budget: how much
// is checked out, how much sits idle in the pool, and the hard ceiling.
// The planner's admission decisions assume idle bytes are reclaimable.
type MemoryUsage struct {
	UsedBytes    uint64
	PooledBytes  uint64
	CeilingBytes uint64
}

// FreeAfterReclaim returns the bytes available once every idle pooled
// buffer has been reclaimed.
func (m MemoryUsage) FreeAfterReclaim() uint64 {
	if m.UsedBytes >= m.CeilingBytes {
		return 0
	}
	return m.CeilingBytes - m.UsedBytes
}

// Stage is one bounded-memory resampling pass, scaling each axis by at
// most 2x.
type Stage struct {
	// InWidth, InHeight are the stage input dimensions.
	InWidth, InHeight int

	// OutWidth, OutHeight are the stage output dimensions. Each axis is
	// at most 2x its input.
	OutWidth, OutHeight int

	// Algorithm is the kernel the stage runs.
	Algorithm Algorithm

	// PeakBytes is the estimated peak memory while the stage runs:
	// input plus output plus working headroom.
	PeakBytes uint64
}

// String returns a compact description of the stage.
func (s Stage) String() string {
	return fmt.Sprintf("%dx%d -> %dx%d (%s)",
		s.InWidth, s.InHeight, s.OutWidth, s.OutHeight, s.Algorithm)
}

// Plan is an ordered sequence of stages covering a full requested scale
// factor. Dimensions strictly increase stage over stage (except a
// 1x identity plan), and the final stage lands exactly on the target.
type Plan struct {
	SrcWidth, SrcHeight int
	DstWidth, DstHeight int
	Stages              []Stage
}

// TotalStages returns the number of stages in the plan.
func (p *Plan) TotalStages() int { return len(p.Stages) }

// PeakBytes returns the largest single-stage peak in the plan.
func (p *Plan) PeakBytes() uint64 {
	var peak uint64
	for _, s := range p.Stages {
		if s.PeakBytes > peak {
			peak = s.PeakBytes
		}
	}
	return peak
}

// stagePeakBytes estimates the working set of one stage: the input and
// output pixel buffers plus half the output again for staging and
// parameters.
func stagePeakBytes(inW, inH, outW, outH int) uint64 {
	in := uint64(inW) * uint64(inH) * BytesPerPixel
	out := uint64(outW) * uint64(outH) * BytesPerPixel
	return in + out + out/2
}

// BuildPlan produces a scaling plan from (w, h) by the given factor.
// Target dimensions are round(w*factor) x round(h*factor); the rounding
// policy is round-to-nearest, applied once, so the final stage is sized
// exactly.
//
// The budget snapshot gates admission: if even the first stage cannot
// fit after a full reclaim, BuildPlan returns ErrImageTooLarge and
// nothing should be attempted.
func BuildPlan(w, h int, factor float64, q Quality, budget MemoryUsage) (*Plan, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: source %dx%d", ErrInvalidInput, w, h)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 1 {
		return nil, fmt.Errorf("%w: scale factor %v", ErrInvalidInput, factor)
	}
	if !q.Valid() {
		return nil, fmt.Errorf("%w: quality %d", ErrInvalidInput, uint8(q))
	}

	tw := int(math.Round(float64(w) * factor))
	th := int(math.Round(float64(h) * factor))
	if tw > maxDimension || th > maxDimension {
		return nil, fmt.Errorf("%w: target %dx%d exceeds dimension limit", ErrImageTooLarge, tw, th)
	}

	return planTo(w, h, tw, th, q, budget)
}

// planTo decomposes (sw, sh) -> (tw, th) into doubling stages followed
// by an exactly sized final stage. It is the shared core of BuildPlan
// and the engine's fallback re-planning, which must land on the original
// target dimensions rather than re-rounding.
func planTo(sw, sh, tw, th int, q Quality, budget MemoryUsage) (*Plan, error) {
	p := &Plan{SrcWidth: sw, SrcHeight: sh, DstWidth: tw, DstHeight: th}

	// Exact doubling while more than one 2x stage of factor remains on
	// either axis. The loop guarantees the leftover factor is <= 2 per
	// axis, so the final stage is always legal.
	cw, ch := sw, sh
	for float64(tw) > 2*float64(cw) || float64(th) > 2*float64(ch) {
		p.Stages = append(p.Stages, Stage{
			InWidth: cw, InHeight: ch,
			OutWidth: cw * 2, OutHeight: ch * 2,
			Algorithm: AlgorithmProgressive2x,
			PeakBytes: stagePeakBytes(cw, ch, cw*2, ch*2),
		})
		cw *= 2
		ch *= 2
	}

	// Final stage lands exactly on the target and honors the quality
	// preference. A 1x request still gets one stage so the result is a
	// fresh buffer.
	if cw != tw || ch != th || len(p.Stages) == 0 {
		p.Stages = append(p.Stages, Stage{
			InWidth: cw, InHeight: ch,
			OutWidth: tw, OutHeight: th,
			Algorithm: q.algorithm(),
			PeakBytes: stagePeakBytes(cw, ch, tw, th),
		})
	}

	// Admission: the first stage must fit with the pool fully drained.
	// Later stages may still fail at run time, which the engine absorbs
	// via fallback; an infeasible first stage is rejected up front.
	if first := p.Stages[0].PeakBytes; first > budget.FreeAfterReclaim() {
		return nil, fmt.Errorf("%w: first stage needs %d bytes, budget has %d",
			ErrImageTooLarge, first, budget.FreeAfterReclaim())
	}

	return p, nil
}
