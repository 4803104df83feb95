package software

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"honnef.co/go/safeish"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
)

// Texture is a texture in system memory.
type Texture struct {
	desc   device.TextureDescriptor
	pix    []byte
	stride int

	dev       *Device
	locked    bool
	destroyed bool
}

var _ device.Texture = (*Texture)(nil)

// Width implements device.Texture.
func (t *Texture) Width() int { return t.desc.Width }

// Height implements device.Texture.
func (t *Texture) Height() int { return t.desc.Height }

// Format implements device.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Pool implements device.Texture.
func (t *Texture) Pool() device.Pool { return t.desc.Pool }

func (t *Texture) pool() device.Pool { return t.desc.Pool }

// Label returns the descriptor label.
func (t *Texture) Label() string { return t.desc.Label }

// Bounds returns the texture rectangle.
func (t *Texture) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.desc.Width, t.desc.Height)
}

// Lock implements device.Texture.
func (t *Texture) Lock(r image.Rectangle) (device.Mapping, error) {
	if t.destroyed {
		return device.Mapping{}, device.ErrReleased
	}
	if err := t.dev.lostErr(); err != nil {
		return device.Mapping{}, err
	}
	if t.locked {
		return device.Mapping{}, fmt.Errorf("%w: already locked", device.ErrLockFailed)
	}
	if r.Empty() || !r.In(t.Bounds()) {
		return device.Mapping{}, fmt.Errorf("%w: region %v outside %v", device.ErrLockFailed, r, t.Bounds())
	}
	t.locked = true
	o := r.Min.Y*t.stride + r.Min.X*device.BytesPerPixel(t.desc.Format)
	return device.Mapping{Pix: t.pix[o:], Stride: t.stride}, nil
}

// Unlock implements device.Texture.
func (t *Texture) Unlock() error {
	if !t.locked {
		return device.ErrNotLocked
	}
	t.locked = false
	return nil
}

// Destroy implements device.Texture.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.locked = false
	t.dev.release(t)
}

// image returns a view sharing the texture memory, or nil for formats
// the image package cannot describe.
func (t *Texture) image() draw.Image {
	switch device.BytesPerPixel(t.desc.Format) {
	case 4:
		return &image.RGBA{Pix: t.pix, Stride: t.stride, Rect: t.Bounds()}
	case 1:
		return &image.Alpha{Pix: t.pix, Stride: t.stride, Rect: t.Bounds()}
	}
	return nil
}

// load returns the premultiplied texel at (x, y).
func (t *Texture) load(x, y int) rgba {
	return decode(t.desc.Format, t.texel(x, y))
}

// decode converts texel bytes of format f. Single-channel texels read as
// alpha-only white.
func decode(f gputypes.TextureFormat, p []byte) rgba {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm:
		return rgba{p[2], p[1], p[0], p[3]}
	case gputypes.TextureFormatRGBA8Unorm:
		return rgba{p[0], p[1], p[2], p[3]}
	case gputypes.TextureFormatR8Unorm:
		return rgba{p[0], p[0], p[0], p[0]}
	}
	return rgba{}
}

func (t *Texture) store(x, y int, c rgba) {
	switch t.desc.Format {
	case gputypes.TextureFormatBGRA8Unorm:
		p := t.pix[y*t.stride+x*4:]
		p[0], p[1], p[2], p[3] = c.b, c.g, c.r, c.a
	case gputypes.TextureFormatRGBA8Unorm:
		p := t.pix[y*t.stride+x*4:]
		p[0], p[1], p[2], p[3] = c.r, c.g, c.b, c.a
	case gputypes.TextureFormatR8Unorm:
		t.pix[y*t.stride+x] = c.a
	}
}

// texel returns the raw bytes of the texel at (x, y).
func (t *Texture) texel(x, y int) []byte {
	bpp := device.BytesPerPixel(t.desc.Format)
	o := y*t.stride + x*bpp
	return t.pix[o : o+bpp]
}

// sample returns the texel nearest to normalized coordinates (u, v).
func (t *Texture) sample(u, v float32) (x, y int) {
	x = clampInt(int(u*float32(t.desc.Width)), 0, t.desc.Width-1)
	y = clampInt(int(v*float32(t.desc.Height)), 0, t.desc.Height-1)
	return x, y
}

// RGBA returns a copy of the texture as straight-byte RGBA. Single-channel
// textures are returned as gray.
func (t *Texture) RGBA() *image.RGBA {
	img := image.NewRGBA(t.Bounds())
	for y := 0; y < t.desc.Height; y++ {
		for x := 0; x < t.desc.Width; x++ {
			c := t.load(x, y)
			if t.desc.Format == gputypes.TextureFormatR8Unorm {
				c.a = 0xff
			}
			o := y*img.Stride + x*4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.r, c.g, c.b, c.a
		}
	}
	return img
}

// VertexBuffer is a vertex buffer in system memory.
type VertexBuffer struct {
	data    []byte
	memPool device.Pool

	dev       *Device
	locked    bool
	destroyed bool
}

var _ device.VertexBuffer = (*VertexBuffer)(nil)

func (b *VertexBuffer) pool() device.Pool { return b.memPool }

// Size implements device.VertexBuffer.
func (b *VertexBuffer) Size() int { return len(b.data) }

// Lock implements device.VertexBuffer. Draws rasterize immediately, so
// both lock modes behave the same.
func (b *VertexBuffer) Lock(offset, size int, _ device.LockMode) ([]byte, error) {
	if b.destroyed {
		return nil, device.ErrReleased
	}
	if err := b.dev.lostErr(); err != nil {
		return nil, err
	}
	if b.locked {
		return nil, fmt.Errorf("%w: already locked", device.ErrLockFailed)
	}
	if offset < 0 || size <= 0 || offset+size > len(b.data) {
		return nil, fmt.Errorf("%w: range [%d,%d) of %d", device.ErrLockFailed, offset, offset+size, len(b.data))
	}
	b.locked = true
	return b.data[offset : offset+size], nil
}

// Unlock implements device.VertexBuffer.
func (b *VertexBuffer) Unlock() error {
	if !b.locked {
		return device.ErrNotLocked
	}
	b.locked = false
	return nil
}

// Destroy implements device.VertexBuffer.
func (b *VertexBuffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.locked = false
	b.dev.release(b)
}

// vertices returns count vertices starting at first, read in the batch
// vertex layout.
func (b *VertexBuffer) vertices(first, count, stride int) ([]batch.Vertex, error) {
	if stride != batch.VertexSize {
		return nil, fmt.Errorf("%w: vertex stride %d", device.ErrNotSupported, stride)
	}
	lo, hi := first*stride, (first+count)*stride
	if first < 0 || count < 0 || hi > len(b.data) {
		return nil, fmt.Errorf("%w: vertices [%d,%d) of %d bytes", device.ErrInvalidDescriptor, lo, hi, len(b.data))
	}
	return safeish.SliceCast[[]batch.Vertex](b.data[lo:hi]), nil
}

// SwapChain is a swap chain whose back buffer is an ordinary texture.
type SwapChain struct {
	back      *Texture
	presents  int
	destroyed bool

	dev *Device
}

var _ device.SwapChain = (*SwapChain)(nil)

func (s *SwapChain) pool() device.Pool { return device.PoolDefault }

// BackBuffer implements device.SwapChain.
func (s *SwapChain) BackBuffer() device.Texture { return s.back }

// Presents returns the number of successful Present calls.
func (s *SwapChain) Presents() int { return s.presents }

// Present implements device.SwapChain.
func (s *SwapChain) Present() error {
	if s.destroyed {
		return device.ErrReleased
	}
	if err := s.dev.lostErr(); err != nil {
		return err
	}
	s.presents++
	return nil
}

// Destroy implements device.SwapChain.
func (s *SwapChain) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.back.Destroy()
	s.dev.release(s)
}
