// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Memory management errors.
var (
	// ErrBudgetExceeded is returned when an allocation cannot be satisfied
	// within the pool's budget, even after reclaiming idle buffers.
	ErrBudgetExceeded = errors.New("wgpu: memory budget exceeded")

	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("wgpu: buffer pool closed")
)

// MinBudgetBytes is the minimum allowed pool budget (16 MB).
const MinBudgetBytes = 16 << 20

// reuseSlack bounds how much larger a pooled buffer may be than the
// requested size for it to be handed out again. A request of N bytes is
// satisfied by any idle buffer in [N, 2N]; anything larger is left pooled
// so small stages do not pin oversized allocations.
const reuseSlack = 2

// BufferKind describes the role a buffer plays in a scaling dispatch.
// The kind determines the usage flags of the underlying allocation, so
// buffers are only reused across requests of the same kind.
type BufferKind uint8

const (
	// KindInput holds source pixels uploaded from the host.
	KindInput BufferKind = iota

	// KindOutput holds destination pixels written by the compute shader.
	KindOutput

	// KindUniform holds per-dispatch shader parameters.
	KindUniform

	// KindStaging is a host-readable buffer used for output readback.
	KindStaging

	kindCount
)

// String returns the human-readable name of the buffer kind.
func (k BufferKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindUniform:
		return "uniform"
	case KindStaging:
		return "staging"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// usage returns the hal buffer usage flags for this kind.
func (k BufferKind) usage() gputypes.BufferUsage {
	switch k {
	case KindInput:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	case KindOutput:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
	case KindUniform:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	case KindStaging:
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageStorage
	}
}

// BufferAllocator creates and destroys device buffers. The production
// implementation wraps hal.Device; tests substitute a fake.
type BufferAllocator interface {
	Alloc(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error)
	Free(buf hal.Buffer)
}

// NewDeviceAllocator returns the production allocator backed by the
// given device.
func NewDeviceAllocator(dev *Device) BufferAllocator {
	return halAllocator{device: dev.Raw()}
}

// halAllocator is the production BufferAllocator backed by a hal device.
type halAllocator struct {
	device hal.Device
}

func (a halAllocator) Alloc(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	return a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

func (a halAllocator) Free(buf hal.Buffer) {
	if buf != nil {
		a.device.DestroyBuffer(buf)
	}
}

// Buffer is a pooled device buffer handed out by Acquire. The underlying
// allocation may be larger than the requested size; Size reports the
// allocated capacity.
type Buffer struct {
	raw      hal.Buffer
	size     uint64
	kind     BufferKind
	lastUsed time.Time
	elem     *list.Element // non-nil while parked in the free list
}

// Raw returns the underlying hal buffer handle.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Size returns the allocated capacity in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Kind returns the buffer's role.
func (b *Buffer) Kind() BufferKind { return b.kind }

// PoolStats contains buffer pool usage statistics.
type PoolStats struct {
	// BudgetBytes is the total pool budget in bytes.
	BudgetBytes uint64

	// InUseBytes is the total size of buffers currently handed out.
	InUseBytes uint64

	// PooledBytes is the total size of idle buffers awaiting reuse.
	PooledBytes uint64

	// Allocs is the total number of device allocations performed.
	Allocs uint64

	// Reuses is the number of acquisitions satisfied from the free list.
	Reuses uint64

	// Evictions is the number of idle buffers freed to make room.
	Evictions uint64
}

// String returns a human-readable string of pool stats.
func (s PoolStats) String() string {
	return fmt.Sprintf("Pool[%d/%d MB in use, %d MB pooled, %d allocs, %d reuses, %d evictions]",
		s.InUseBytes/(1024*1024),
		s.BudgetBytes/(1024*1024),
		s.PooledBytes/(1024*1024),
		s.Allocs, s.Reuses, s.Evictions)
}

// Pool tracks device buffer allocations against a fixed budget and
// recycles released buffers. Released buffers are parked on a per-kind
// free list (front = most recently used); when an acquisition would
// exceed the budget, idle buffers are freed LRU-first until it fits.
//
// The invariant InUseBytes + PooledBytes <= BudgetBytes holds at all
// times. Pool is safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	alloc BufferAllocator

	budgetBytes uint64
	inUseBytes  uint64
	pooledBytes uint64

	// Idle buffers per kind (front = most recently released).
	free [kindCount]*list.List

	allocCount    uint64
	reuseCount    uint64
	evictionCount uint64

	closed bool
}

// NewPool creates a buffer pool with the given budget. Budgets below
// MinBudgetBytes are raised to the minimum.
func NewPool(alloc BufferAllocator, budgetBytes uint64) *Pool {
	if budgetBytes < MinBudgetBytes {
		budgetBytes = MinBudgetBytes
	}
	p := &Pool{
		alloc:       alloc,
		budgetBytes: budgetBytes,
	}
	for i := range p.free {
		p.free[i] = list.New()
	}
	return p
}

// Acquire returns a buffer of at least size bytes for the given kind.
// An idle buffer is reused when its capacity is within 2x of the request;
// otherwise a fresh allocation is made, evicting idle buffers LRU-first
// if the budget requires it. Returns ErrBudgetExceeded when the request
// cannot fit even with the pool fully drained.
func (p *Pool) Acquire(kind BufferKind, size uint64) (*Buffer, error) {
	if kind >= kindCount {
		return nil, fmt.Errorf("wgpu: invalid buffer kind %d", kind)
	}
	if size == 0 {
		size = 4
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	// Best-fit scan of the free list for this kind.
	if buf := p.takeFitLocked(kind, size); buf != nil {
		p.reuseCount++
		p.inUseBytes += buf.size
		p.pooledBytes -= buf.size
		return buf, nil
	}

	if size > p.budgetBytes {
		return nil, fmt.Errorf("%w: buffer size %d MB exceeds total budget %d MB",
			ErrBudgetExceeded, size/(1024*1024), p.budgetBytes/(1024*1024))
	}

	if err := p.evictForLocked(size); err != nil {
		return nil, err
	}

	raw, err := p.alloc.Alloc(fmt.Sprintf("scale_%s", kind), size, kind.usage())
	if err != nil {
		return nil, fmt.Errorf("wgpu: allocate %s buffer (%d bytes): %w", kind, size, err)
	}
	p.allocCount++
	p.inUseBytes += size

	return &Buffer{raw: raw, size: size, kind: kind}, nil
}

// Release returns a buffer to the pool for reuse. The buffer must not be
// used after this call. Releasing into a closed pool frees the buffer
// immediately.
func (p *Pool) Release(buf *Buffer) {
	if buf == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.alloc.Free(buf.raw)
		return
	}
	if buf.elem != nil {
		// Already parked; double release is a no-op.
		p.mu.Unlock()
		return
	}

	p.inUseBytes -= buf.size
	p.pooledBytes += buf.size
	buf.lastUsed = time.Now()
	buf.elem = p.free[buf.kind].PushFront(buf)
	p.mu.Unlock()
}

// Reclaim frees idle buffers LRU-first until at most target bytes remain
// pooled. Reclaim(0) drains the pool entirely. It returns the number of
// bytes freed. In-use buffers are never touched.
func (p *Pool) Reclaim(target uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var freed uint64
	for p.pooledBytes > target {
		buf := p.evictOldestLocked()
		if buf == nil {
			break
		}
		freed += buf.size
	}
	if freed > 0 {
		slogger().Debug("buffer pool: reclaimed idle buffers",
			"freed_bytes", freed, "pooled_bytes", p.pooledBytes)
	}
	return freed
}

// Stats returns current pool usage statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		BudgetBytes: p.budgetBytes,
		InUseBytes:  p.inUseBytes,
		PooledBytes: p.pooledBytes,
		Allocs:      p.allocCount,
		Reuses:      p.reuseCount,
		Evictions:   p.evictionCount,
	}
}

// Budget returns the pool's budget in bytes.
func (p *Pool) Budget() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.budgetBytes
}

// SetBudget updates the pool budget, evicting idle buffers if the new
// budget is below current usage. In-use buffers are never freed, so the
// invariant may be violated transiently until they are released.
func (p *Pool) SetBudget(budgetBytes uint64) {
	if budgetBytes < MinBudgetBytes {
		budgetBytes = MinBudgetBytes
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.budgetBytes = budgetBytes
	for p.inUseBytes+p.pooledBytes > p.budgetBytes {
		if p.evictOldestLocked() == nil {
			break
		}
	}
}

// Close frees all idle buffers and marks the pool closed. Buffers still
// in use are freed as they are released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	for kind := range p.free {
		l := p.free[kind]
		for e := l.Front(); e != nil; e = e.Next() {
			buf := e.Value.(*Buffer)
			p.alloc.Free(buf.raw)
		}
		l.Init()
	}
	p.pooledBytes = 0
	p.closed = true
}

// takeFitLocked removes and returns the best-fitting idle buffer of the
// given kind, or nil when none fits. Caller must hold mu.
func (p *Pool) takeFitLocked(kind BufferKind, size uint64) *Buffer {
	var best *Buffer
	for e := p.free[kind].Front(); e != nil; e = e.Next() {
		buf := e.Value.(*Buffer)
		if buf.size < size || buf.size > size*reuseSlack {
			continue
		}
		if best == nil || buf.size < best.size {
			best = buf
		}
	}
	if best == nil {
		return nil
	}
	p.free[kind].Remove(best.elem)
	best.elem = nil
	return best
}

// evictForLocked frees idle buffers LRU-first until requested bytes fit
// within the budget. Caller must hold mu.
func (p *Pool) evictForLocked(requested uint64) error {
	for p.inUseBytes+p.pooledBytes+requested > p.budgetBytes {
		if p.evictOldestLocked() == nil {
			return fmt.Errorf("%w: need %d bytes, have %d bytes available",
				ErrBudgetExceeded, requested, p.budgetBytes-p.inUseBytes-p.pooledBytes)
		}
	}
	return nil
}

// evictOldestLocked frees the least recently released idle buffer across
// all kinds. Returns nil when the pool holds no idle buffers. Caller must
// hold mu.
func (p *Pool) evictOldestLocked() *Buffer {
	var oldest *Buffer
	for kind := range p.free {
		e := p.free[kind].Back()
		if e == nil {
			continue
		}
		buf := e.Value.(*Buffer)
		if oldest == nil || buf.lastUsed.Before(oldest.lastUsed) {
			oldest = buf
		}
	}
	if oldest == nil {
		return nil
	}
	p.free[oldest.kind].Remove(oldest.elem)
	oldest.elem = nil
	p.pooledBytes -= oldest.size
	p.evictionCount++
	p.alloc.Free(oldest.raw)
	return oldest
}
