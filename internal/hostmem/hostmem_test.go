// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hostmem

import "testing"

func TestTotalBytesNonZero(t *testing.T) {
	total := TotalBytes()
	if total == 0 {
		t.Fatal("TotalBytes() = 0, want > 0")
	}
	// Either a real probe result or the documented default.
	if total < 64<<20 {
		t.Errorf("TotalBytes() = %d, implausibly small", total)
	}
}
