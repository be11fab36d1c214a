// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWorkerPoolDefaults(t *testing.T) {
	p := NewWorkerPool(0)
	defer p.Close()

	if p.Workers() <= 0 {
		t.Errorf("Workers() = %d, want > 0", p.Workers())
	}
	if !p.IsRunning() {
		t.Error("IsRunning() = false after creation")
	}
}

func TestExecuteAllRunsEverything(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var count atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { count.Add(1) }
	}
	p.ExecuteAll(work)

	if got := count.Load(); got != 100 {
		t.Errorf("executed %d items, want 100", got)
	}
}

func TestExecuteAllEmpty(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()
	p.ExecuteAll(nil) // must not block or panic
}

func TestForEachBandCoversAllRows(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	tests := []struct {
		height  int
		minRows int
	}{
		{1, 16},
		{17, 4},
		{100, 16},
		{1000, 1},
	}
	for _, tt := range tests {
		covered := make([]atomic.Int32, tt.height)
		p.ForEachBand(tt.height, tt.minRows, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				covered[y].Add(1)
			}
		})
		for y := range covered {
			if got := covered[y].Load(); got != 1 {
				t.Fatalf("height=%d minRows=%d: row %d covered %d times, want 1",
					tt.height, tt.minRows, y, got)
			}
		}
	}
}

func TestForEachBandZeroHeight(t *testing.T) {
	p := NewWorkerPool(2)
	defer p.Close()

	called := false
	p.ForEachBand(0, 1, func(int, int) { called = true })
	if called {
		t.Error("fn called for zero height")
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := NewWorkerPool(2)
	p.Close()
	p.Close() // must not panic

	if p.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}

	// Work submitted after Close is dropped, not executed.
	var count atomic.Int64
	p.ExecuteAll([]func(){func() { count.Add(1) }})
	if count.Load() != 0 {
		t.Errorf("executed %d items after Close, want 0", count.Load())
	}
}

func TestConcurrentExecuteAll(t *testing.T) {
	p := NewWorkerPool(4)
	defer p.Close()

	var total atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			work := make([]func(), 50)
			for i := range work {
				work[i] = func() { total.Add(1) }
			}
			p.ExecuteAll(work)
		}()
	}
	wg.Wait()

	if got := total.Load(); got != 400 {
		t.Errorf("executed %d items, want 400", got)
	}
}
