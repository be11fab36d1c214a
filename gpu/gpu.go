// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu registers the wgpu accelerator for hardware-accelerated
// upscaling.
//
// Import this package to run scaling stages as compute shaders on the
// best available adapter, with device buffers drawn from a budgeted
// pool. If GPU initialization fails (no Vulkan available, no adapters),
// registration is silently skipped and all sessions run on the CPU
// path.
//
// Usage:
//
//	import _ "github.com/gogpu/upscale/gpu" // enable GPU acceleration
package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/upscale"
	igpu "github.com/gogpu/upscale/internal/gpu"
	"github.com/gogpu/upscale/internal/kernel"
)

// kernelAlgorithm maps the public algorithm identifier onto the
// internal dispatch value. The enums are defined in the same order.
func kernelAlgorithm(a upscale.Algorithm) kernel.Algorithm {
	return kernel.Algorithm(a)
}

// DeviceProvider is an alias for gpucontext.DeviceProvider, the
// contract for sharing one GPU device between this accelerator and
// other gogpu consumers (e.g. a window surface).
type DeviceProvider = gpucontext.DeviceProvider

func init() {
	if err := upscale.RegisterAccelerator(New()); err != nil {
		upscale.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// Accelerator runs scaling stages on a wgpu device. It implements
// upscale.Accelerator.
type Accelerator struct {
	mu sync.Mutex

	dev      *igpu.Device
	pool     *igpu.Pool
	executor *igpu.Executor
	profile  upscale.HardwareProfile
	ready    bool
}

var _ upscale.Accelerator = (*Accelerator)(nil)

// New creates an unopened accelerator. Init opens the device; it is
// called by upscale.RegisterAccelerator.
func New() *Accelerator {
	return &Accelerator{}
}

// Name implements upscale.Accelerator.
func (a *Accelerator) Name() string { return "wgpu" }

// Init opens the best available adapter, sizes the buffer pool to the
// profile's memory ceiling, and compiles the scaling pipelines.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ready {
		return nil
	}

	profile := upscale.DetectHardware(upscale.DefaultCeilingFraction)
	if profile.Class == upscale.PerfNone {
		return errors.New("gpu: no usable adapter")
	}

	dev, err := igpu.Open()
	if err != nil {
		return fmt.Errorf("gpu: open device: %w", err)
	}

	pool := igpu.NewPool(igpu.NewDeviceAllocator(dev), profile.CeilingBytes)
	executor := igpu.NewExecutor(dev, pool)
	if err := executor.Init(); err != nil {
		pool.Close()
		dev.Close()
		return fmt.Errorf("gpu: init pipelines: %w", err)
	}

	a.dev = dev
	a.pool = pool
	a.executor = executor
	a.profile = profile
	a.ready = true
	return nil
}

// Close releases all device resources.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return
	}
	a.executor.Close()
	a.pool.Close()
	a.dev.Close()
	a.executor = nil
	a.pool = nil
	a.dev = nil
	a.ready = false
}

// Profile implements upscale.Accelerator.
func (a *Accelerator) Profile() upscale.HardwareProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

// Usage implements upscale.Accelerator.
func (a *Accelerator) Usage() upscale.MemoryUsage {
	a.mu.Lock()
	ready := a.ready
	pool := a.pool
	a.mu.Unlock()

	if !ready {
		return upscale.MemoryUsage{}
	}
	st := pool.Stats()
	return upscale.MemoryUsage{
		UsedBytes:    st.InUseBytes,
		PooledBytes:  st.PooledBytes,
		CeilingBytes: st.BudgetBytes,
	}
}

// RunStage implements upscale.Accelerator. Internal pool and device
// errors are mapped onto the package's error taxonomy so the engine can
// classify the failure.
func (a *Accelerator) RunStage(alg upscale.Algorithm, src []byte, sw, sh, dw, dh int) ([]byte, error) {
	a.mu.Lock()
	ready := a.ready
	executor := a.executor
	a.mu.Unlock()

	if !ready {
		return nil, fmt.Errorf("%w: accelerator not initialized", upscale.ErrDeviceFailure)
	}

	out, err := executor.RunStage(kernelAlgorithm(alg), src, sw, sh, dw, dh)
	if err != nil {
		if errors.Is(err, igpu.ErrBudgetExceeded) {
			return nil, fmt.Errorf("%w: %v", upscale.ErrOutOfMemory, err)
		}
		return nil, fmt.Errorf("%w: %v", upscale.ErrDeviceFailure, err)
	}
	return out, nil
}

// SetLogger propagates the package logger into the device layer.
// Called by upscale.SetLogger via the optional loggerSetter interface.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	igpu.SetLogger(l)
}

// SetDeviceProvider switches the accelerator to a shared GPU device
// from an external provider instead of the one it opened itself. The
// provider must expose HAL access (gpucontext.HalProvider).
func (a *Accelerator) SetDeviceProvider(provider any) error {
	dev, err := igpu.OpenShared(provider)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Tear down owned resources before adopting the shared device.
	if a.ready {
		a.executor.Close()
		a.pool.Close()
		a.dev.Close()
	}

	profile := upscale.DetectHardware(upscale.DefaultCeilingFraction)
	pool := igpu.NewPool(igpu.NewDeviceAllocator(dev), profile.CeilingBytes)
	executor := igpu.NewExecutor(dev, pool)
	if err := executor.Init(); err != nil {
		pool.Close()
		return fmt.Errorf("gpu: init pipelines with shared device: %w", err)
	}

	a.dev = dev
	a.pool = pool
	a.executor = executor
	a.profile = profile
	a.ready = true
	return nil
}

var _ upscale.DeviceProviderAware = (*Accelerator)(nil)
