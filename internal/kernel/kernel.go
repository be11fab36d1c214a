// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel implements the resampling algorithms shared by the CPU
// and GPU execution paths.
//
// Every kernel is a pure function of (source pixels, source dimensions,
// destination dimensions). The arithmetic is float32 throughout so that
// the WGSL compute shaders in internal/gpu, which use the same formulas
// in f32, produce results within a small per-channel tolerance of the
// CPU path. All source fetches clamp to the image edge; there are no
// out-of-range reads.
package kernel

import (
	"errors"
	"fmt"
	"math"
)

// Pixel layout constants. All kernels operate on tightly packed RGBA8.
const (
	// BytesPerPixel is the size of one RGBA8 pixel.
	BytesPerPixel = 4
)

// Kernel errors.
var (
	// ErrInvalidDimensions is returned when a dimension is non-positive.
	ErrInvalidDimensions = errors.New("kernel: invalid dimensions")

	// ErrBufferTooSmall is returned when a pixel slice cannot hold the
	// stated dimensions.
	ErrBufferTooSmall = errors.New("kernel: pixel buffer too small")

	// ErrNotDoubling is returned when the progressive kernel is invoked
	// with output dimensions that are not exactly twice the input.
	ErrNotDoubling = errors.New("kernel: progressive kernel requires exact 2x dimensions")
)

// Algorithm identifies one resampling kernel. The set is closed: the
// planner selects one Algorithm per stage and the execution paths
// dispatch through a single table, never through scattered conditionals.
type Algorithm uint8

const (
	// Bilinear interpolates between the 4 nearest pixels. Fastest;
	// used for speed-priority requests.
	Bilinear Algorithm = iota

	// Bicubic interpolates a 4x4 neighborhood with Catmull-Rom
	// weights. The balanced default.
	Bicubic

	// Lanczos3 interpolates a 6x6 neighborhood with a sinc-windowed
	// kernel (a=3). Highest quality, highest cost.
	Lanczos3

	// Progressive2x is the edge-directed kernel specialized for exact
	// doubling. It is used for every intermediate stage of a
	// multi-stage plan regardless of the caller's quality preference.
	Progressive2x

	// AlgorithmCount is the number of kernels; useful for dispatch tables.
	AlgorithmCount
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	case Lanczos3:
		return "lanczos3"
	case Progressive2x:
		return "progressive2x"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// Valid reports whether a names a known algorithm.
func (a Algorithm) Valid() bool { return a < AlgorithmCount }

// Taps returns the filter support per axis (samples consulted per
// output pixel along one dimension).
func (a Algorithm) Taps() int {
	switch a {
	case Bicubic:
		return 4
	case Lanczos3:
		return 6
	default:
		return 2
	}
}

// rowFunc fills destination rows [y0, y1).
type rowFunc func(src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int)

// rowFuncs is the dispatch table, indexed by Algorithm.
var rowFuncs = [AlgorithmCount]rowFunc{
	Bilinear:      scaleRowsBilinear,
	Bicubic:       scaleRowsBicubic,
	Lanczos3:      scaleRowsLanczos3,
	Progressive2x: scaleRowsProgressive2x,
}

// Scale resamples src (sw x sh RGBA8) into dst (dw x dh RGBA8) using
// the given algorithm. dst must be pre-allocated to dw*dh*4 bytes.
func Scale(alg Algorithm, src []byte, sw, sh int, dst []byte, dw, dh int) error {
	if err := validate(alg, src, sw, sh, dst, dw, dh); err != nil {
		return err
	}
	rowFuncs[alg](src, sw, sh, dst, dw, dh, 0, dh)
	return nil
}

// ScaleRows resamples only destination rows [y0, y1). It is the unit of
// work for tiled parallel execution; callers must validate arguments
// once via Validate before splitting a stage into bands.
func ScaleRows(alg Algorithm, src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int) {
	if y0 < 0 {
		y0 = 0
	}
	if y1 > dh {
		y1 = dh
	}
	if y0 >= y1 {
		return
	}
	rowFuncs[alg](src, sw, sh, dst, dw, dh, y0, y1)
}

// Validate checks dimensions and buffer sizes for a full-stage scale.
func Validate(alg Algorithm, src []byte, sw, sh int, dst []byte, dw, dh int) error {
	return validate(alg, src, sw, sh, dst, dw, dh)
}

func validate(alg Algorithm, src []byte, sw, sh int, dst []byte, dw, dh int) error {
	if !alg.Valid() {
		return fmt.Errorf("%w: algorithm %d", ErrInvalidDimensions, alg)
	}
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return fmt.Errorf("%w: %dx%d -> %dx%d", ErrInvalidDimensions, sw, sh, dw, dh)
	}
	if len(src) < sw*sh*BytesPerPixel {
		return fmt.Errorf("%w: src has %d bytes, need %d", ErrBufferTooSmall, len(src), sw*sh*BytesPerPixel)
	}
	if len(dst) < dw*dh*BytesPerPixel {
		return fmt.Errorf("%w: dst has %d bytes, need %d", ErrBufferTooSmall, len(dst), dw*dh*BytesPerPixel)
	}
	if alg == Progressive2x && (dw != sw*2 || dh != sh*2) {
		return fmt.Errorf("%w: %dx%d -> %dx%d", ErrNotDoubling, sw, sh, dw, dh)
	}
	return nil
}

// clampi clamps v to [0, hi].
func clampi(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// clampf clamps v to [0, 255].
func clampf(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// fetch returns the clamped pixel (x, y) as four float32 channels.
func fetch(src []byte, sw, sh, x, y int) (r, g, b, a float32) {
	x = clampi(x, sw-1)
	y = clampi(y, sh-1)
	i := (y*sw + x) * BytesPerPixel
	return float32(src[i]), float32(src[i+1]), float32(src[i+2]), float32(src[i+3])
}

// store writes the rounded, clamped channels to dst pixel (x, y).
func store(dst []byte, dw, x, y int, r, g, b, a float32) {
	i := (y*dw + x) * BytesPerPixel
	dst[i] = byte(clampf(r) + 0.5)
	dst[i+1] = byte(clampf(g) + 0.5)
	dst[i+2] = byte(clampf(b) + 0.5)
	dst[i+3] = byte(clampf(a) + 0.5)
}

// srcCoord maps a destination index to a continuous source coordinate
// using pixel-center alignment. The same mapping is used in WGSL.
func srcCoord(d, dn, sn int) float32 {
	return (float32(d)+0.5)*float32(sn)/float32(dn) - 0.5
}

func scaleRowsBilinear(src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int) {
	for dy := y0; dy < y1; dy++ {
		fy := srcCoord(dy, dh, sh)
		iy := int(floor32(fy))
		ty := fy - float32(iy)
		for dx := range dw {
			fx := srcCoord(dx, dw, sw)
			ix := int(floor32(fx))
			tx := fx - float32(ix)

			r00, g00, b00, a00 := fetch(src, sw, sh, ix, iy)
			r10, g10, b10, a10 := fetch(src, sw, sh, ix+1, iy)
			r01, g01, b01, a01 := fetch(src, sw, sh, ix, iy+1)
			r11, g11, b11, a11 := fetch(src, sw, sh, ix+1, iy+1)

			store(dst, dw, dx, dy,
				lerp2(r00, r10, r01, r11, tx, ty),
				lerp2(g00, g10, g01, g11, tx, ty),
				lerp2(b00, b10, b01, b11, tx, ty),
				lerp2(a00, a10, a01, a11, tx, ty))
		}
	}
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func lerp2(v00, v10, v01, v11, tx, ty float32) float32 {
	return lerp(lerp(v00, v10, tx), lerp(v01, v11, tx), ty)
}

func floor32(v float32) float32 { return float32(math.Floor(float64(v))) }

// catmullRom computes the Catmull-Rom weight for distance t
// (Mitchell-Netravali with B=0, C=0.5).
func catmullRom(t float32) float32 {
	if t < 0 {
		t = -t
	}
	switch {
	case t < 1:
		return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	default:
		return 0
	}
}

func scaleRowsBicubic(src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int) {
	for dy := y0; dy < y1; dy++ {
		fy := srcCoord(dy, dh, sh)
		iy := int(floor32(fy))
		ty := fy - float32(iy)

		var wy [4]float32
		for j := range 4 {
			wy[j] = catmullRom(ty - float32(j-1))
		}

		for dx := range dw {
			fx := srcCoord(dx, dw, sw)
			ix := int(floor32(fx))
			tx := fx - float32(ix)

			var wx [4]float32
			for j := range 4 {
				wx[j] = catmullRom(tx - float32(j-1))
			}

			var r, g, b, a float32
			for j := range 4 {
				for i := range 4 {
					w := wx[i] * wy[j]
					if w == 0 {
						continue
					}
					pr, pg, pb, pa := fetch(src, sw, sh, ix+i-1, iy+j-1)
					r += pr * w
					g += pg * w
					b += pb * w
					a += pa * w
				}
			}
			store(dst, dw, dx, dy, r, g, b, a)
		}
	}
}

// lanczos3 is the sinc-windowed kernel with support a=3.
func lanczos3(t float32) float32 {
	if t < 0 {
		t = -t
	}
	if t >= 3 {
		return 0
	}
	if t < 1e-6 {
		return 1
	}
	x := float64(t) * math.Pi
	return float32(3 * math.Sin(x) * math.Sin(x/3) / (x * x))
}

func scaleRowsLanczos3(src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int) {
	for dy := y0; dy < y1; dy++ {
		fy := srcCoord(dy, dh, sh)
		iy := int(floor32(fy))
		ty := fy - float32(iy)

		var wy [6]float32
		for j := range 6 {
			wy[j] = lanczos3(ty - float32(j-2))
		}

		for dx := range dw {
			fx := srcCoord(dx, dw, sw)
			ix := int(floor32(fx))
			tx := fx - float32(ix)

			var wx [6]float32
			for i := range 6 {
				wx[i] = lanczos3(tx - float32(i-2))
			}

			// Lanczos weights do not sum to exactly one; normalize so
			// flat regions keep their value.
			var r, g, b, a, wsum float32
			for j := range 6 {
				for i := range 6 {
					w := wx[i] * wy[j]
					if w == 0 {
						continue
					}
					pr, pg, pb, pa := fetch(src, sw, sh, ix+i-2, iy+j-2)
					r += pr * w
					g += pg * w
					b += pb * w
					a += pa * w
					wsum += w
				}
			}
			if wsum != 0 {
				inv := 1 / wsum
				r *= inv
				g *= inv
				b *= inv
				a *= inv
			}
			store(dst, dw, dx, dy, r, g, b, a)
		}
	}
}

// luma returns the BT.601 luminance of a pixel, used by the progressive
// kernel to pick the interpolation direction.
func luma(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

// edgeThreshold is the minimum luma difference (0..255 scale) between
// the two diagonals before the progressive kernel deviates from plain
// quarter-pixel bilinear weights.
const edgeThreshold = 16

func scaleRowsProgressive2x(src []byte, sw, sh int, dst []byte, dw, dh, y0, y1 int) {
	_ = dh
	for dy := y0; dy < y1; dy++ {
		iy := dy >> 1
		ny := iy - 1
		if dy&1 == 1 {
			ny = iy + 1
		}
		for dx := range dw {
			ix := dx >> 1
			nx := ix - 1
			if dx&1 == 1 {
				nx = ix + 1
			}

			pr, pg, pb, pa := fetch(src, sw, sh, ix, iy)
			hr, hg, hb, ha := fetch(src, sw, sh, nx, iy)
			vr, vg, vb, va := fetch(src, sw, sh, ix, ny)
			dr, dg, db, da := fetch(src, sw, sh, nx, ny)

			// Compare the two diagonals. A strong luma difference means
			// an edge runs along the weaker diagonal; interpolate along
			// it instead of across it.
			dHV := luma(hr, hg, hb) - luma(vr, vg, vb)
			if dHV < 0 {
				dHV = -dHV
			}
			dPD := luma(pr, pg, pb) - luma(dr, dg, db)
			if dPD < 0 {
				dPD = -dPD
			}

			// Quarter-pixel bilinear weights by default.
			wp, wh, wv, wd := float32(0.5625), float32(0.1875), float32(0.1875), float32(0.0625)
			switch {
			case dPD+edgeThreshold < dHV:
				// Edge along the nearest/diagonal axis.
				wp, wh, wv, wd = 0.5, 0.125, 0.125, 0.25
			case dHV+edgeThreshold < dPD:
				// Edge along the horizontal/vertical neighbor axis.
				wp, wh, wv, wd = 0.375, 0.25, 0.25, 0.125
			}

			store(dst, dw, dx, dy,
				pr*wp+hr*wh+vr*wv+dr*wd,
				pg*wp+hg*wh+vg*wv+dg*wd,
				pb*wp+hb*wh+vb*wv+db*wd,
				pa*wp+ha*wh+va*wv+da*wd)
		}
	}
}
