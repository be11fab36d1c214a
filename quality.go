package upscale

import (
	"fmt"

	"github.com/gogpu/upscale/internal/kernel"
)

// Quality is the caller-supplied cost/fidelity tradeoff. It selects the
// final stage's kernel; intermediate stages of a multi-stage plan always
// use the progressive doubling kernel regardless of this preference.
type Quality uint8

const (
	// QualityFast selects bilinear interpolation for the final stage.
	QualityFast Quality = iota

	// QualityBalanced selects Catmull-Rom bicubic. The default.
	QualityBalanced

	// QualityHigh selects 3-lobe Lanczos resampling.
	QualityHigh

	qualityCount
)

// String returns the quality name.
func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityHigh:
		return "high"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(q))
	}
}

// Valid reports whether q names a known quality preference.
func (q Quality) Valid() bool { return q < qualityCount }

// ParseQuality converts a string ("fast", "balanced", "high") to a
// Quality value.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "fast":
		return QualityFast, nil
	case "balanced":
		return QualityBalanced, nil
	case "high":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown quality %q", ErrInvalidInput, s)
	}
}

// Algorithm identifies one resampling kernel. The planner selects one
// Algorithm per stage; the execution paths dispatch on it through a
// single table.
type Algorithm uint8

const (
	// AlgorithmBilinear interpolates the 4 nearest pixels.
	AlgorithmBilinear Algorithm = iota

	// AlgorithmBicubic interpolates a 4x4 neighborhood with Catmull-Rom
	// weights.
	AlgorithmBicubic

	// AlgorithmLanczos3 interpolates a 6x6 neighborhood with a
	// sinc-windowed kernel.
	AlgorithmLanczos3

	// AlgorithmProgressive2x is the edge-directed kernel specialized for
	// exact doubling, used for intermediate stages.
	AlgorithmProgressive2x
)

// String returns the algorithm name.
func (a Algorithm) String() string { return a.kernel().String() }

// kernel maps the public identifier to the internal dispatch value.
// The enums are defined in the same order.
func (a Algorithm) kernel() kernel.Algorithm { return kernel.Algorithm(a) }

// algorithm returns the final-stage kernel for this quality preference.
func (q Quality) algorithm() Algorithm {
	switch q {
	case QualityFast:
		return AlgorithmBilinear
	case QualityHigh:
		return AlgorithmLanczos3
	default:
		return AlgorithmBicubic
	}
}
