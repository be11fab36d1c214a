package upscale

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewImageBuffer(t *testing.T) {
	b, err := NewImageBuffer(10, 4)
	if err != nil {
		t.Fatal(err)
	}
	if b.Width() != 10 || b.Height() != 4 {
		t.Errorf("dims = %dx%d, want 10x4", b.Width(), b.Height())
	}
	if b.Stride() != 10*BytesPerPixel {
		t.Errorf("stride = %d, want %d", b.Stride(), 10*BytesPerPixel)
	}
	if b.Location() != LocationHost {
		t.Errorf("location = %s, want host", b.Location())
	}
	if len(b.Data()) != 10*4*BytesPerPixel {
		t.Errorf("data length = %d", len(b.Data()))
	}

	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-1, 5}} {
		if _, err := NewImageBuffer(dims[0], dims[1]); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("NewImageBuffer(%d, %d): err = %v, want ErrInvalidInput", dims[0], dims[1], err)
		}
	}
}

func TestNewImageBufferFrom(t *testing.T) {
	data := make([]byte, 3*2*BytesPerPixel)
	b, err := NewImageBufferFrom(data, 3, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b.Stride() != 3*BytesPerPixel {
		t.Errorf("zero stride not defaulted: %d", b.Stride())
	}

	// Short backing slice.
	if _, err := NewImageBufferFrom(make([]byte, 8), 3, 2, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("short data: err = %v, want ErrInvalidInput", err)
	}
	// Stride smaller than a row.
	if _, err := NewImageBufferFrom(data, 3, 2, 4); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("narrow stride: err = %v, want ErrInvalidInput", err)
	}
}

func TestImageBufferPixelRoundTrip(t *testing.T) {
	b, _ := NewImageBuffer(4, 4)
	b.SetPixel(2, 1, 10, 20, 30, 255)
	r, g, bl, a := b.Pixel(2, 1)
	if r != 10 || g != 20 || bl != 30 || a != 255 {
		t.Errorf("Pixel = %d,%d,%d,%d", r, g, bl, a)
	}
	// Out of bounds reads are zero, writes are dropped.
	if r, _, _, _ := b.Pixel(-1, 0); r != 0 {
		t.Error("out-of-bounds read not zero")
	}
	b.SetPixel(9, 9, 1, 1, 1, 1)
}

func TestImageBufferClone(t *testing.T) {
	b, _ := NewImageBuffer(2, 2)
	b.SetPixel(0, 0, 7, 7, 7, 7)
	c := b.Clone()
	c.SetPixel(0, 0, 9, 9, 9, 9)
	if r, _, _, _ := b.Pixel(0, 0); r != 7 {
		t.Error("clone shares backing storage")
	}
}

func TestImageBufferPacked(t *testing.T) {
	// Tight buffer: packed returns the backing slice as-is.
	tight, _ := NewImageBuffer(3, 2)
	if &tight.packed()[0] != &tight.Data()[0] {
		t.Error("tight buffer was copied")
	}

	// Padded stride: packed compacts rows.
	row := 3 * BytesPerPixel
	stride := row + 8
	data := make([]byte, stride*2)
	data[0] = 0xAA
	data[stride] = 0xBB
	padded, err := NewImageBufferFrom(data, 3, 2, stride)
	if err != nil {
		t.Fatal(err)
	}
	p := padded.packed()
	if len(p) != row*2 {
		t.Fatalf("packed length = %d, want %d", len(p), row*2)
	}
	if p[0] != 0xAA || p[row] != 0xBB {
		t.Error("rows not compacted in order")
	}
}

func TestFromPacked(t *testing.T) {
	data := bytes.Repeat([]byte{5}, 2*2*BytesPerPixel)
	b := fromPacked(data, 2, 2)
	if b.Width() != 2 || b.Height() != 2 || b.Stride() != 2*BytesPerPixel {
		t.Errorf("fromPacked dims %dx%d stride %d", b.Width(), b.Height(), b.Stride())
	}
}
