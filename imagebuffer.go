package upscale

import "fmt"

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// Location tags which memory an ImageBuffer's pixels live in. Buffers
// returned to callers are always host-resident; the device tag exists
// for buffers in flight inside the engine.
type Location uint8

const (
	// LocationHost marks pixels resident in host memory.
	LocationHost Location = iota

	// LocationDevice marks pixels resident in device memory.
	LocationDevice
)

// String returns the location name.
func (l Location) String() string {
	switch l {
	case LocationHost:
		return "host"
	case LocationDevice:
		return "device"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// ImageBuffer is an RGBA8 pixel buffer with optional row stride.
//
// Ownership is exclusive: once submitted, the engine holds the buffer
// until the session reaches a terminal state, and callers must not
// mutate it. Result buffers are freshly allocated and owned by the
// caller.
type ImageBuffer struct {
	data     []byte
	width    int
	height   int
	stride   int
	location Location
}

// NewImageBuffer allocates a host image buffer with a tight stride.
func NewImageBuffer(width, height int) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, width, height)
	}
	stride := width * BytesPerPixel
	if stride/BytesPerPixel != width || stride*height/stride != height {
		return nil, fmt.Errorf("%w: dimensions %dx%d overflow", ErrInvalidInput, width, height)
	}
	return &ImageBuffer{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
	}, nil
}

// NewImageBufferFrom wraps existing RGBA8 pixel data without copying.
// stride is in bytes; pass 0 for a tight stride.
func NewImageBufferFrom(data []byte, width, height, stride int) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, width, height)
	}
	if stride == 0 {
		stride = width * BytesPerPixel
	}
	if stride < width*BytesPerPixel {
		return nil, fmt.Errorf("%w: stride %d too small for width %d", ErrInvalidInput, stride, width)
	}
	if len(data) < stride*(height-1)+width*BytesPerPixel {
		return nil, fmt.Errorf("%w: data length %d too small for %dx%d stride %d",
			ErrInvalidInput, len(data), width, height, stride)
	}
	return &ImageBuffer{
		data:   data,
		width:  width,
		height: height,
		stride: stride,
	}, nil
}

// Width returns the image width in pixels.
func (b *ImageBuffer) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *ImageBuffer) Height() int { return b.height }

// Stride returns the row stride in bytes.
func (b *ImageBuffer) Stride() int { return b.stride }

// Channels returns the channel count (always 4, RGBA).
func (b *ImageBuffer) Channels() int { return BytesPerPixel }

// Location reports which memory the pixels live in.
func (b *ImageBuffer) Location() Location { return b.location }

// Data returns the underlying pixel slice. Rows are stride bytes apart;
// mutating the slice mutates the image.
func (b *ImageBuffer) Data() []byte { return b.data }

// Pixel returns the RGBA components at (x, y). Out-of-bounds
// coordinates return zeros.
func (b *ImageBuffer) Pixel(x, y int) (r, g, bl, a uint8) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0, 0, 0, 0
	}
	o := y*b.stride + x*BytesPerPixel
	return b.data[o], b.data[o+1], b.data[o+2], b.data[o+3]
}

// SetPixel writes the RGBA components at (x, y). Out-of-bounds
// coordinates are ignored.
func (b *ImageBuffer) SetPixel(x, y int, r, g, bl, a uint8) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	o := y*b.stride + x*BytesPerPixel
	b.data[o] = r
	b.data[o+1] = g
	b.data[o+2] = bl
	b.data[o+3] = a
}

// Clone returns a deep copy with a tight stride.
func (b *ImageBuffer) Clone() *ImageBuffer {
	c, _ := NewImageBuffer(b.width, b.height)
	copy(c.data, b.packed())
	c.location = b.location
	return c
}

// packed returns the pixels with a tight stride (width*4 bytes per
// row). When the buffer is already tight the underlying slice is
// returned without copying.
func (b *ImageBuffer) packed() []byte {
	tight := b.width * BytesPerPixel
	if b.stride == tight {
		return b.data[:tight*b.height]
	}
	out := make([]byte, tight*b.height)
	for y := 0; y < b.height; y++ {
		copy(out[y*tight:(y+1)*tight], b.data[y*b.stride:y*b.stride+tight])
	}
	return out
}

// fromPacked wraps a tightly packed pixel slice produced by a stage.
func fromPacked(data []byte, width, height int) *ImageBuffer {
	return &ImageBuffer{
		data:   data,
		width:  width,
		height: height,
		stride: width * BytesPerPixel,
	}
}
