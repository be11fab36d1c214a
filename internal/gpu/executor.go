// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// executor.go owns the compute pipelines for the scaling kernels and
// dispatches single scaling stages: upload source pixels, run one
// shader invocation per destination pixel, read the result back.

package gpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/upscale/internal/kernel"
)

// stageFenceTimeout is the maximum time to wait for a stage dispatch to
// complete on the GPU. Large final stages on slow adapters dominate.
const stageFenceTimeout = 30 * time.Second

// stageParams is the uniform block shared by all scaling shaders.
// Must match the Params struct in shaders.go: 4 consecutive u32 fields.
type stageParams struct {
	SrcWidth  uint32
	SrcHeight uint32
	DstWidth  uint32
	DstHeight uint32
}

// sizeInBytes returns the byte size of stageParams.
func (p stageParams) sizeInBytes() uint64 {
	return 4 * 4
}

// toBytes serializes stageParams in little-endian order.
func (p stageParams) toBytes() []byte {
	buf := make([]byte, p.sizeInBytes())
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.SrcWidth)
	le.PutUint32(buf[4:8], p.SrcHeight)
	le.PutUint32(buf[8:12], p.DstWidth)
	le.PutUint32(buf[12:16], p.DstHeight)
	return buf
}

// Executor compiles the scaling shaders and runs individual stages on a
// device. Buffers come from the shared Pool so stage peaks stay inside
// the device budget.
//
// Executor is safe for concurrent use; dispatches are serialized on the
// queue by the mutex.
type Executor struct {
	mu sync.Mutex

	dev  *Device
	pool *Pool

	modules   [kernel.AlgorithmCount]hal.ShaderModule
	pipelines [kernel.AlgorithmCount]hal.ComputePipeline

	// All kernels share the same binding interface.
	bgLayout   hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	initialized bool
}

// shaderSources maps each algorithm to its WGSL source.
var shaderSources = [kernel.AlgorithmCount]string{
	kernel.Bilinear:      bilinearShaderSource,
	kernel.Bicubic:       bicubicShaderSource,
	kernel.Lanczos3:      lanczos3ShaderSource,
	kernel.Progressive2x: progressive2xShaderSource,
}

// NewExecutor creates an executor on the given device, drawing buffers
// from pool. Init must be called before RunStage.
func NewExecutor(dev *Device, pool *Pool) *Executor {
	return &Executor{dev: dev, pool: pool}
}

// Init compiles all scaling shaders to SPIR-V and builds one compute
// pipeline per kernel. Safe to call more than once; subsequent calls
// are no-ops.
func (e *Executor) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	device := e.dev.Raw()

	bgLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "scale_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	e.bgLayout = bgLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "scale_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		e.destroyLocked()
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	e.pipeLayout = pipeLayout

	for alg := kernel.Algorithm(0); alg < kernel.AlgorithmCount; alg++ {
		spirvBytes, err := naga.Compile(shaderSources[alg])
		if err != nil {
			e.destroyLocked()
			return fmt.Errorf("wgpu: compile %s shader: %w", alg, err)
		}
		spirv := make([]uint32, len(spirvBytes)/4)
		for i := range spirv {
			spirv[i] = uint32(spirvBytes[i*4]) |
				uint32(spirvBytes[i*4+1])<<8 |
				uint32(spirvBytes[i*4+2])<<16 |
				uint32(spirvBytes[i*4+3])<<24
		}

		module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  "scale_" + alg.String(),
			Source: hal.ShaderSource{SPIRV: spirv},
		})
		if err != nil {
			e.destroyLocked()
			return fmt.Errorf("wgpu: create %s shader module: %w", alg, err)
		}
		e.modules[alg] = module

		pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  "scale_" + alg.String(),
			Layout: pipeLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			e.destroyLocked()
			return fmt.Errorf("wgpu: create %s pipeline: %w", alg, err)
		}
		e.pipelines[alg] = pipeline
	}

	slogger().Info("wgpu: scale pipelines initialized",
		"kernels", int(kernel.AlgorithmCount),
		"adapter", e.dev.Info().Name)

	e.initialized = true
	return nil
}

// RunStage scales src (sw x sh, packed RGBA) to a new dw x dh pixel
// buffer using the given kernel on the GPU. Device buffers for the
// stage are acquired from the pool and released before returning, so
// the pool's in-use level reflects only running stages.
func (e *Executor) RunStage(alg kernel.Algorithm, src []byte, sw, sh, dw, dh int) ([]byte, error) {
	dstBytes := dw * dh * kernel.BytesPerPixel
	if dw <= 0 || dh <= 0 || dstBytes/kernel.BytesPerPixel != dw*dh {
		return nil, fmt.Errorf("%w: destination %dx%d", kernel.ErrInvalidDimensions, dw, dh)
	}
	dst := make([]byte, dstBytes)
	if err := kernel.Validate(alg, src, sw, sh, dst, dw, dh); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, fmt.Errorf("wgpu: executor not initialized, call Init first")
	}

	params := stageParams{
		SrcWidth:  uint32(sw),
		SrcHeight: uint32(sh),
		DstWidth:  uint32(dw),
		DstHeight: uint32(dh),
	}

	srcSize := uint64(len(src))
	dstSize := uint64(dstBytes)

	// Acquire the stage's working set up front so a budget failure
	// surfaces before any upload happens.
	inputBuf, err := e.pool.Acquire(KindInput, srcSize)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(inputBuf)

	outputBuf, err := e.pool.Acquire(KindOutput, dstSize)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(outputBuf)

	stagingBuf, err := e.pool.Acquire(KindStaging, dstSize)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(stagingBuf)

	uniformBuf, err := e.pool.Acquire(KindUniform, params.sizeInBytes())
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(uniformBuf)

	queue := e.dev.Queue()
	queue.WriteBuffer(inputBuf.Raw(), 0, src)
	queue.WriteBuffer(uniformBuf.Raw(), 0, params.toBytes())

	if err := e.dispatchLocked(alg, params, inputBuf, outputBuf, stagingBuf, uniformBuf, srcSize, dstSize); err != nil {
		return nil, err
	}

	if err := queue.ReadBuffer(stagingBuf.Raw(), 0, dst); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}

	slogger().Debug("wgpu: stage dispatched",
		"kernel", alg.String(),
		"src", fmt.Sprintf("%dx%d", sw, sh),
		"dst", fmt.Sprintf("%dx%d", dw, dh))
	return dst, nil
}

// dispatchLocked encodes and submits a single stage and waits for the
// fence. Caller must hold mu.
func (e *Executor) dispatchLocked(
	alg kernel.Algorithm, params stageParams,
	inputBuf, outputBuf, stagingBuf, uniformBuf *Buffer,
	srcSize, dstSize uint64,
) error {
	device := e.dev.Raw()

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "scale_bind",
		Layout: e.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniformBuf.Raw().NativeHandle(), Offset: 0, Size: params.sizeInBytes()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: inputBuf.Raw().NativeHandle(), Offset: 0, Size: srcSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: outputBuf.Raw().NativeHandle(), Offset: 0, Size: dstSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	defer device.DestroyBindGroup(bg)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "scale_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("scale_stage"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "scale_pass"})
	pass.SetPipeline(e.pipelines[alg])
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(
		(params.DstWidth+shaderWorkgroupDim-1)/shaderWorkgroupDim,
		(params.DstHeight+shaderWorkgroupDim-1)/shaderWorkgroupDim,
		1)
	pass.End()

	encoder.CopyBufferToBuffer(outputBuf.Raw(), stagingBuf.Raw(), []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: dstSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := e.dev.Queue().Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := device.Wait(fence, 1, stageFenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: GPU timeout after %v", stageFenceTimeout)
	}
	return nil
}

// Close destroys all pipelines and shader modules. The executor must be
// re-initialized with Init before further use.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyLocked()
}

// destroyLocked releases all GPU pipeline resources. Caller must hold mu.
func (e *Executor) destroyLocked() {
	device := e.dev.Raw()
	if device == nil {
		e.initialized = false
		return
	}
	for i := range e.pipelines {
		if e.pipelines[i] != nil {
			device.DestroyComputePipeline(e.pipelines[i])
			e.pipelines[i] = nil
		}
		if e.modules[i] != nil {
			device.DestroyShaderModule(e.modules[i])
			e.modules[i] = nil
		}
	}
	if e.pipeLayout != nil {
		device.DestroyPipelineLayout(e.pipeLayout)
		e.pipeLayout = nil
	}
	if e.bgLayout != nil {
		device.DestroyBindGroupLayout(e.bgLayout)
		e.bgLayout = nil
	}
	e.initialized = false
}
