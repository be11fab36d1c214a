// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cpu implements the host-memory fallback processor. It runs
// the same stage abstraction as the accelerated path, using the kernel
// package's row functions distributed over a worker pool. A stage call
// is synchronous: internal tiling is invisible to the caller.
package cpu

import (
	"fmt"

	"github.com/gogpu/upscale/internal/kernel"
	"github.com/gogpu/upscale/internal/parallel"
)

// minBandRows is the smallest row band worth dispatching to a worker.
// Below this the per-item overhead dominates the resampling work.
const minBandRows = 16

// Processor executes resampling stages on host memory.
//
// Processor is safe for concurrent use; concurrent stages share the
// worker pool.
type Processor struct {
	pool *parallel.WorkerPool
}

// NewProcessor creates a processor with the given parallelism.
// workers <= 0 selects GOMAXPROCS.
func NewProcessor(workers int) *Processor {
	return &Processor{pool: parallel.NewWorkerPool(workers)}
}

// RunStage resamples src (sw x sh RGBA8) to dw x dh using alg and
// returns the freshly allocated destination pixels. It returns an error
// only for invalid arguments or host allocation failure; the CPU path
// has no transient failure mode to retry.
func (p *Processor) RunStage(alg kernel.Algorithm, src []byte, sw, sh, dw, dh int) ([]byte, error) {
	dst, err := allocPixels(dw, dh)
	if err != nil {
		return nil, err
	}
	if err := kernel.Validate(alg, src, sw, sh, dst, dw, dh); err != nil {
		return nil, err
	}

	p.pool.ForEachBand(dh, minBandRows, func(y0, y1 int) {
		kernel.ScaleRows(alg, src, sw, sh, dst, dw, dh, y0, y1)
	})
	return dst, nil
}

// Workers returns the pool's parallelism, for diagnostics.
func (p *Processor) Workers() int { return p.pool.Workers() }

// Close releases the worker pool.
func (p *Processor) Close() { p.pool.Close() }

// allocPixels allocates a dw x dh RGBA8 buffer, converting an
// out-of-range size into an error instead of a runtime panic.
func allocPixels(dw, dh int) (px []byte, err error) {
	if dw <= 0 || dh <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", kernel.ErrInvalidDimensions, dw, dh)
	}
	size := dw * dh * kernel.BytesPerPixel
	if size/kernel.BytesPerPixel/dw != dh {
		return nil, fmt.Errorf("%w: %dx%d overflows", kernel.ErrInvalidDimensions, dw, dh)
	}
	defer func() {
		if recover() != nil {
			px, err = nil, fmt.Errorf("cpu: cannot allocate %d bytes for %dx%d stage", size, dw, dh)
		}
	}()
	return make([]byte, size), nil
}
