// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hostmem reports the total physical memory of the host, used
// to size the CPU fallback path's planning budget.
package hostmem

// DefaultTotalBytes is assumed when the platform probe is unavailable
// or fails. Deliberately conservative: overestimating host memory would
// let the planner admit work the fallback path cannot finish.
const DefaultTotalBytes = 4 << 30

// TotalBytes returns the host's total physical memory in bytes, or
// DefaultTotalBytes if it cannot be determined.
func TotalBytes() uint64 {
	if total := probeTotalBytes(); total > 0 {
		return total
	}
	return DefaultTotalBytes
}
