// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"testing"
)

// solid returns a sw x sh RGBA8 image filled with one color.
func solid(sw, sh int, r, g, b, a byte) []byte {
	px := make([]byte, sw*sh*BytesPerPixel)
	for i := 0; i < len(px); i += BytesPerPixel {
		px[i] = r
		px[i+1] = g
		px[i+2] = b
		px[i+3] = a
	}
	return px
}

// gradientH returns an image whose red channel increases left to right.
func gradientH(sw, sh int) []byte {
	px := make([]byte, sw*sh*BytesPerPixel)
	for y := range sh {
		for x := range sw {
			i := (y*sw + x) * BytesPerPixel
			px[i] = byte(x * 255 / (sw - 1))
			px[i+3] = 255
		}
	}
	return px
}

func allAlgorithms() []Algorithm {
	return []Algorithm{Bilinear, Bicubic, Lanczos3, Progressive2x}
}

func TestAlgorithmString(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{Bilinear, "bilinear"},
		{Bicubic, "bicubic"},
		{Lanczos3, "lanczos3"},
		{Progressive2x, "progressive2x"},
		{Algorithm(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.alg.String(); got != tt.want {
			t.Errorf("Algorithm(%d).String() = %q, want %q", tt.alg, got, tt.want)
		}
	}
}

func TestAlgorithmTaps(t *testing.T) {
	if Bicubic.Taps() != 4 {
		t.Errorf("Bicubic.Taps() = %d, want 4", Bicubic.Taps())
	}
	if Lanczos3.Taps() != 6 {
		t.Errorf("Lanczos3.Taps() = %d, want 6", Lanczos3.Taps())
	}
}

// A uniform image must stay uniform under every kernel: the weights of
// each algorithm sum to one.
func TestScaleUniformPreserved(t *testing.T) {
	src := solid(7, 5, 120, 80, 200, 255)

	for _, alg := range allAlgorithms() {
		dw, dh := 13, 9
		if alg == Progressive2x {
			dw, dh = 14, 10
		}
		dst := make([]byte, dw*dh*BytesPerPixel)
		if err := Scale(alg, src, 7, 5, dst, dw, dh); err != nil {
			t.Fatalf("%v: Scale: %v", alg, err)
		}
		for i := 0; i < len(dst); i += BytesPerPixel {
			if delta(dst[i], 120) > 1 || delta(dst[i+1], 80) > 1 ||
				delta(dst[i+2], 200) > 1 || delta(dst[i+3], 255) > 1 {
				t.Fatalf("%v: pixel %d = %v, want ~[120 80 200 255]",
					alg, i/BytesPerPixel, dst[i:i+4])
			}
		}
	}
}

func delta(a, b byte) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}

// Upscaling a horizontal gradient must stay monotonically non-decreasing
// along each row for the separable kernels.
func TestScaleGradientMonotonic(t *testing.T) {
	sw, sh := 16, 4
	src := gradientH(sw, sh)

	for _, alg := range []Algorithm{Bilinear, Progressive2x} {
		dw, dh := sw*2, sh*2
		dst := make([]byte, dw*dh*BytesPerPixel)
		if err := Scale(alg, src, sw, sh, dst, dw, dh); err != nil {
			t.Fatalf("%v: Scale: %v", alg, err)
		}
		for y := range dh {
			prev := -1
			for x := range dw {
				v := int(dst[(y*dw+x)*BytesPerPixel])
				if v < prev-1 { // 1 count of rounding slack
					t.Fatalf("%v: row %d not monotonic at x=%d: %d < %d", alg, y, x, v, prev)
				}
				if v > prev {
					prev = v
				}
			}
		}
	}
}

// Edge clamping: a 1x1 source must scale to any size without panicking
// and fill the output with the single source color.
func TestScaleOnePixelSource(t *testing.T) {
	src := []byte{10, 20, 30, 255}
	for _, alg := range allAlgorithms() {
		dw, dh := 5, 3
		if alg == Progressive2x {
			dw, dh = 2, 2
		}
		dst := make([]byte, dw*dh*BytesPerPixel)
		if err := Scale(alg, src, 1, 1, dst, dw, dh); err != nil {
			t.Fatalf("%v: Scale: %v", alg, err)
		}
		for i := 0; i < len(dst); i += BytesPerPixel {
			if delta(dst[i], 10) > 1 || delta(dst[i+1], 20) > 1 || delta(dst[i+2], 30) > 1 {
				t.Fatalf("%v: pixel %d = %v, want ~[10 20 30 255]", alg, i/4, dst[i:i+4])
			}
		}
	}
}

func TestScaleValidation(t *testing.T) {
	src := solid(4, 4, 0, 0, 0, 255)
	dst := make([]byte, 8*8*BytesPerPixel)

	tests := []struct {
		name string
		run  func() error
	}{
		{"zero width", func() error { return Scale(Bilinear, src, 0, 4, dst, 8, 8) }},
		{"short src", func() error { return Scale(Bilinear, src[:10], 4, 4, dst, 8, 8) }},
		{"short dst", func() error { return Scale(Bilinear, src, 4, 4, dst[:10], 8, 8) }},
		{"bad algorithm", func() error { return Scale(Algorithm(42), src, 4, 4, dst, 8, 8) }},
		{"progressive non-2x", func() error { return Scale(Progressive2x, src, 4, 4, dst, 7, 8) }},
	}
	for _, tt := range tests {
		if err := tt.run(); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

// ScaleRows over disjoint bands must produce exactly the same output as
// a single full-image Scale call.
func TestScaleRowsMatchesScale(t *testing.T) {
	sw, sh := 9, 7
	src := gradientH(sw, sh)

	for _, alg := range allAlgorithms() {
		dw, dh := 17, 13
		if alg == Progressive2x {
			dw, dh = sw*2, sh*2
		}

		whole := make([]byte, dw*dh*BytesPerPixel)
		if err := Scale(alg, src, sw, sh, whole, dw, dh); err != nil {
			t.Fatalf("%v: Scale: %v", alg, err)
		}

		banded := make([]byte, dw*dh*BytesPerPixel)
		for y := 0; y < dh; y += 3 {
			ScaleRows(alg, src, sw, sh, banded, dw, dh, y, y+3)
		}

		for i := range whole {
			if whole[i] != banded[i] {
				t.Fatalf("%v: byte %d differs: whole=%d banded=%d", alg, i, whole[i], banded[i])
			}
		}
	}
}

// The progressive kernel keeps a hard diagonal edge hard: the corner
// pixels of the doubled output must stay close to their source colors.
func TestProgressive2xPreservesCorners(t *testing.T) {
	// 2x2 checker: white/black diagonal.
	src := []byte{
		255, 255, 255, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 255, 255, 255, 255,
	}
	dst := make([]byte, 4*4*BytesPerPixel)
	if err := Scale(Progressive2x, src, 2, 2, dst, 4, 4); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	// Output corner pixels replicate the nearest source pixel heavily.
	if dst[0] < 128 {
		t.Errorf("top-left corner darkened too much: %d", dst[0])
	}
	last := (3*4 + 3) * BytesPerPixel
	if dst[last] < 128 {
		t.Errorf("bottom-right corner darkened too much: %d", dst[last])
	}
}

func BenchmarkScaleBicubic2x(b *testing.B) {
	sw, sh := 256, 256
	src := gradientH(sw, sh)
	dst := make([]byte, sw*2*sh*2*BytesPerPixel)
	b.ResetTimer()
	for range b.N {
		_ = Scale(Bicubic, src, sw, sh, dst, sw*2, sh*2)
	}
}

func BenchmarkScaleProgressive2x(b *testing.B) {
	sw, sh := 256, 256
	src := gradientH(sw, sh)
	dst := make([]byte, sw*2*sh*2*BytesPerPixel)
	b.ResetTimer()
	for range b.N {
		_ = Scale(Progressive2x, src, sw, sh, dst, sw*2, sh*2)
	}
}
