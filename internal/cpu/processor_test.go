// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cpu

import (
	"sync"
	"testing"

	"github.com/gogpu/upscale/internal/kernel"
)

func makeImage(sw, sh int) []byte {
	px := make([]byte, sw*sh*kernel.BytesPerPixel)
	for y := range sh {
		for x := range sw {
			i := (y*sw + x) * kernel.BytesPerPixel
			px[i] = byte((x * 7) % 256)
			px[i+1] = byte((y * 11) % 256)
			px[i+2] = byte((x + y) % 256)
			px[i+3] = 255
		}
	}
	return px
}

// Tiled parallel execution must produce exactly the same pixels as a
// direct single-threaded kernel call.
func TestRunStageMatchesDirectScale(t *testing.T) {
	p := NewProcessor(4)
	defer p.Close()

	sw, sh := 64, 48
	src := makeImage(sw, sh)

	tests := []struct {
		alg    kernel.Algorithm
		dw, dh int
	}{
		{kernel.Bilinear, 100, 77},
		{kernel.Bicubic, 128, 96},
		{kernel.Lanczos3, 160, 120},
		{kernel.Progressive2x, 128, 96},
	}
	for _, tt := range tests {
		got, err := p.RunStage(tt.alg, src, sw, sh, tt.dw, tt.dh)
		if err != nil {
			t.Fatalf("%v: RunStage: %v", tt.alg, err)
		}

		want := make([]byte, tt.dw*tt.dh*kernel.BytesPerPixel)
		if err := kernel.Scale(tt.alg, src, sw, sh, want, tt.dw, tt.dh); err != nil {
			t.Fatalf("%v: Scale: %v", tt.alg, err)
		}

		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%v: byte %d differs: tiled=%d direct=%d", tt.alg, i, got[i], want[i])
			}
		}
	}
}

func TestRunStageInvalidArguments(t *testing.T) {
	p := NewProcessor(1)
	defer p.Close()

	src := makeImage(8, 8)

	if _, err := p.RunStage(kernel.Bilinear, src, 8, 8, 0, 16); err == nil {
		t.Error("zero output width: expected error")
	}
	if _, err := p.RunStage(kernel.Progressive2x, src, 8, 8, 15, 16); err == nil {
		t.Error("non-doubling progressive stage: expected error")
	}
	if _, err := p.RunStage(kernel.Bilinear, src[:16], 8, 8, 16, 16); err == nil {
		t.Error("short source: expected error")
	}
}

// Concurrent stages share one pool without interference.
func TestRunStageConcurrent(t *testing.T) {
	p := NewProcessor(4)
	defer p.Close()

	sw, sh := 32, 32
	src := makeImage(sw, sh)

	want, err := p.RunStage(kernel.Bicubic, src, sw, sh, 64, 64)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.RunStage(kernel.Bicubic, src, sw, sh, 64, 64)
			if err != nil {
				t.Errorf("RunStage: %v", err)
				return
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("byte %d differs under concurrency", i)
					return
				}
			}
		}()
	}
	wg.Wait()
}
