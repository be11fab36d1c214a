package upscale

import (
	"errors"
	"sync"
)

// Accelerator is an optional GPU execution provider for scaling stages.
//
// When registered via RegisterAccelerator, the engine runs plan stages
// on the accelerator first. Any stage error triggers the fallback
// transition: the remaining stages are re-planned against host memory
// and run on the CPU path. Errors should wrap ErrOutOfMemory or
// ErrDeviceFailure so the engine can classify them.
//
// Implementations are provided by backend packages (upscale/gpu/).
// Users opt in via blank import:
//
//	import _ "github.com/gogpu/upscale/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes device resources. Called once during
	// registration.
	Init() error

	// Close releases device resources.
	Close()

	// Profile returns the capability descriptor for the device the
	// accelerator opened.
	Profile() HardwareProfile

	// Usage returns the current device buffer accounting, used by the
	// planner for admission decisions.
	Usage() MemoryUsage

	// RunStage scales src (sw x sh, tightly packed RGBA) to dw x dh
	// with the given kernel and returns the new host pixel buffer.
	RunStage(alg Algorithm, src []byte, sw, sh, dw, dh int) ([]byte, error)
}

// DeviceProviderAware is an optional interface for accelerators that
// can share a GPU device owned by an external provider (e.g. a gogpu
// window) instead of opening their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a GPU accelerator for optional
// accelerated execution.
//
// Only one accelerator can be registered; subsequent calls replace the
// previous one and close it. The accelerator's Init method is called
// during registration; if it fails, the accelerator is not registered
// and the error is returned.
//
// Typical usage via init in backend packages:
//
//	func init() {
//		upscale.RegisterAccelerator(NewWGPUAccelerator())
//	}
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("upscale: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	propagateLogger(a, Logger())
	Logger().Info("upscale: accelerator registered", "name", a.Name())
	return nil
}

// registeredAccelerator returns the current accelerator, or nil.
func registeredAccelerator() Accelerator {
	accelMu.RLock()
	defer accelMu.RUnlock()
	return accel
}
