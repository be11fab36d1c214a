// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/upscale/internal/vram"
)

// ErrNoAdapter is returned when no usable GPU adapter is present.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

// DeviceInfo describes the adapter a Device was opened on.
type DeviceInfo struct {
	// Name is the adapter name as reported by the driver.
	Name string

	// Backend is the HAL backend identifier ("vulkan").
	Backend string

	// Type is the adapter device type (discrete, integrated, ...).
	Type gputypes.DeviceType

	// VRAMBytes is the dedicated video memory, or 0 when unknown.
	VRAMBytes uint64
}

// Device owns a HAL device and queue opened on the best available
// adapter. When constructed from a shared provider the underlying
// device is not destroyed on Close.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     DeviceInfo
	external bool
}

// Open probes for a GPU adapter, preferring discrete over integrated,
// and opens a device and queue on it. Returns ErrNoAdapter when no
// backend or adapter is available.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not registered", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters enumerated", ErrNoAdapter)
	}

	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter %q: %w", selected.Info.Name, err)
	}

	d := &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		info: DeviceInfo{
			Name:      selected.Info.Name,
			Backend:   "vulkan",
			Type:      selected.Info.DeviceType,
			VRAMBytes: vram.TotalBytes(),
		},
	}

	slogger().Info("wgpu: device opened",
		"adapter", d.info.Name,
		"type", int(d.info.Type),
		"vram_bytes", d.info.VRAMBytes)
	return d, nil
}

// OpenShared wraps a device and queue owned by an external provider.
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue (the gpucontext provider contract).
func OpenShared(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	return &Device{
		device: device,
		queue:  queue,
		info: DeviceInfo{
			Name:      "shared",
			Backend:   "vulkan",
			Type:      gputypes.DeviceTypeOther,
			VRAMBytes: vram.TotalBytes(),
		},
		external: true,
	}, nil
}

// Probe enumerates adapters without opening a device. It reports the
// best adapter's info and whether any adapter is present.
func Probe() (DeviceInfo, bool) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return DeviceInfo{}, false
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return DeviceInfo{}, false
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return DeviceInfo{}, false
	}
	selected := selectAdapter(adapters)
	return DeviceInfo{
		Name:      selected.Info.Name,
		Backend:   "vulkan",
		Type:      selected.Info.DeviceType,
		VRAMBytes: vram.TotalBytes(),
	}, true
}

// Info returns the adapter info the device was opened on.
func (d *Device) Info() DeviceInfo { return d.info }

// Raw returns the underlying HAL device.
func (d *Device) Raw() hal.Device { return d.device }

// Queue returns the underlying HAL queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// HalDevice exposes the device for sharing with other gogpu consumers.
func (d *Device) HalDevice() any { return d.device }

// HalQueue exposes the queue for sharing with other gogpu consumers.
func (d *Device) HalQueue() any { return d.queue }

// Close destroys the device and instance unless they are shared.
func (d *Device) Close() {
	if d.external {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

// selectAdapter picks a discrete GPU when present, then integrated,
// then whatever came first.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}
