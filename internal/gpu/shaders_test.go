// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"

	"github.com/gogpu/upscale/internal/kernel"
)

func TestShaderSourcesComplete(t *testing.T) {
	for alg := kernel.Algorithm(0); alg < kernel.AlgorithmCount; alg++ {
		src := shaderSources[alg]
		if src == "" {
			t.Fatalf("no shader source for %s", alg)
		}
		for _, want := range []string{
			"@compute",
			"@workgroup_size(8, 8)",
			"fn main(",
			"@group(0) @binding(0) var<uniform> params",
			"@group(0) @binding(1) var<storage, read> src_pixels",
			"@group(0) @binding(2) var<storage, read_write> dst_pixels",
		} {
			if !strings.Contains(src, want) {
				t.Errorf("%s shader missing %q", alg, want)
			}
		}
	}
}

// TestShaderCompilation runs every WGSL source through naga so a
// shader regression is caught without a GPU.
func TestShaderCompilation(t *testing.T) {
	for alg := kernel.Algorithm(0); alg < kernel.AlgorithmCount; alg++ {
		spirvBytes, err := naga.Compile(shaderSources[alg])
		if err != nil {
			if strings.Contains(err.Error(), "not yet implemented") ||
				strings.Contains(err.Error(), "not supported") {
				t.Skipf("naga feature not yet implemented: %v", err)
			}
			t.Fatalf("compile %s shader: %v", alg, err)
		}
		if len(spirvBytes) < 4 {
			t.Fatalf("%s shader: SPIR-V too short (%d bytes)", alg, len(spirvBytes))
		}
		magic := uint32(spirvBytes[0]) |
			uint32(spirvBytes[1])<<8 |
			uint32(spirvBytes[2])<<16 |
			uint32(spirvBytes[3])<<24
		if magic != 0x07230203 {
			t.Errorf("%s shader: SPIR-V magic = %#x, want 0x07230203", alg, magic)
		}
	}
}

func TestShaderBoundsGuard(t *testing.T) {
	// Every shader must guard against the over-dispatch from ceil
	// division before touching the destination buffer.
	for alg := kernel.Algorithm(0); alg < kernel.AlgorithmCount; alg++ {
		src := shaderSources[alg]
		if !strings.Contains(src, "gid.x >= params.dst_width") ||
			!strings.Contains(src, "gid.y >= params.dst_height") {
			t.Errorf("%s shader missing destination bounds guard", alg)
		}
	}
}
