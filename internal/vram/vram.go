// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vram reports the total dedicated memory of the primary GPU.
//
// The NVML-backed probe is opt-in via the nvml build tag because NVML
// is cgo-backed while the goffi layer under the wgpu hal requires
// CGO_ENABLED=0; the two cannot link into one binary. Default builds
// report 0 and callers substitute a conservative per-class estimate.
// This package must stay free of hal imports so a hal-free helper
// binary can carry the tagged probe.
package vram

// TotalBytes returns the primary GPU's dedicated memory in bytes, or 0
// when it cannot be determined.
func TotalBytes() uint64 {
	return probeTotalBytes()
}
