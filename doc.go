// Package upscale provides adaptive progressive image upscaling with
// GPU acceleration and a transparent CPU fallback.
//
// Large scale factors (2x to 15x and beyond) are decomposed into a
// sequence of bounded-memory stages, each scaling at most 2x per axis,
// so that a 30000x45000 target can be produced without ever holding
// more than one stage's working set on the device. Device buffers come
// from a budgeted pool with a hard ceiling below total VRAM; any
// accelerated failure (out of memory, device lost, kernel fault)
// switches the remaining stages to the CPU path, preserving completed
// work.
//
// Basic usage:
//
//	u, err := upscale.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer u.Close()
//
//	id, err := u.Submit(img, 4.0, upscale.QualityBalanced)
//	...
//	result, err := u.Result(id)
//
// GPU acceleration is opt-in via blank import:
//
//	import _ "github.com/gogpu/upscale/gpu"
//
// Without it, every session runs on the CPU path.
package upscale
