package upscale

import (
	"fmt"

	"github.com/gogpu/gputypes"

	igpu "github.com/gogpu/upscale/internal/gpu"
)

// Default memory assumptions used when the VRAM probe reports nothing
// (default builds, non-NVIDIA hardware). Deliberately conservative.
const (
	defaultVRAMFull  = 4 << 30 // discrete adapter, unknown VRAM
	defaultVRAMBasic = 1 << 30 // integrated adapter, unknown VRAM

	// DefaultCeilingFraction is the fraction of total device memory the
	// buffer pool may use, leaving headroom for driver and OS overhead.
	DefaultCeilingFraction = 0.7
)

// PerfClass is a coarse performance classification of the detected
// hardware, used to route execution.
type PerfClass uint8

const (
	// PerfNone means no usable accelerated device; everything runs on
	// the CPU path.
	PerfNone PerfClass = iota

	// PerfBasic means an integrated or unknown adapter.
	PerfBasic

	// PerfFull means a discrete adapter.
	PerfFull
)

// String returns the class name.
func (c PerfClass) String() string {
	switch c {
	case PerfNone:
		return "none"
	case PerfBasic:
		return "basic"
	case PerfFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// HardwareProfile is a static capability descriptor for the detected
// compute device. Immutable after detection; re-detected only on
// explicit request.
type HardwareProfile struct {
	// Name is the adapter name, or "cpu" when no device is available.
	Name string

	// Backend identifies the device API ("vulkan", or "" for CPU-only).
	Backend string

	// Class is the coarse performance classification.
	Class PerfClass

	// TotalMemoryBytes is the device memory size (host memory size for
	// CPU-only profiles).
	TotalMemoryBytes uint64

	// CeilingBytes is the safe allocation ceiling, a configured
	// fraction of TotalMemoryBytes.
	CeilingBytes uint64

	// Features lists supported capabilities, e.g. "compute".
	Features []string
}

// String returns a one-line summary of the profile.
func (p HardwareProfile) String() string {
	return fmt.Sprintf("%s (%s, %d MB, ceiling %d MB)",
		p.Name, p.Class, p.TotalMemoryBytes/(1024*1024), p.CeilingBytes/(1024*1024))
}

// DetectHardware probes for an accelerated device and classifies it.
// Detection never fails: driver errors and absent hardware both produce
// a profile with class PerfNone, which routes all work to the CPU path.
// ceilingFraction <= 0 or > 1 falls back to DefaultCeilingFraction.
func DetectHardware(ceilingFraction float64) HardwareProfile {
	if ceilingFraction <= 0 || ceilingFraction > 1 {
		ceilingFraction = DefaultCeilingFraction
	}

	info, ok := igpu.Probe()
	if !ok {
		Logger().Debug("hardware: no accelerated device found")
		return HardwareProfile{Name: "cpu", Class: PerfNone}
	}

	class := PerfBasic
	if info.Type == gputypes.DeviceTypeDiscreteGPU {
		class = PerfFull
	}

	total := info.VRAMBytes
	if total == 0 {
		if class == PerfFull {
			total = defaultVRAMFull
		} else {
			total = defaultVRAMBasic
		}
	}

	p := HardwareProfile{
		Name:             info.Name,
		Backend:          info.Backend,
		Class:            class,
		TotalMemoryBytes: total,
		CeilingBytes:     uint64(float64(total) * ceilingFraction),
		Features:         []string{"compute", "storage-buffers"},
	}
	Logger().Info("hardware: device detected",
		"adapter", p.Name, "class", p.Class.String(),
		"total_bytes", p.TotalMemoryBytes, "ceiling_bytes", p.CeilingBytes)
	return p
}
