package devicetest

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/device"
)

// Texture is a fake texture holding its texels in Pix.
type Texture struct {
	Desc   device.TextureDescriptor
	Pix    []byte
	Stride int

	// Locks counts successful Lock calls; LockedRects lists their regions.
	Locks       int
	LockedRects []image.Rectangle

	Destroyed bool

	dev        *Device
	locked     bool
	backBuffer bool
}

var _ device.Texture = (*Texture)(nil)

// Width implements device.Texture.
func (t *Texture) Width() int { return t.Desc.Width }

// Height implements device.Texture.
func (t *Texture) Height() int { return t.Desc.Height }

// Format implements device.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.Desc.Format }

// Pool implements device.Texture.
func (t *Texture) Pool() device.Pool { return t.Desc.Pool }

// Bounds returns the texture rectangle.
func (t *Texture) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.Desc.Width, t.Desc.Height)
}

// Locked reports whether a region is currently locked.
func (t *Texture) Locked() bool { return t.locked }

// At returns the texel bytes at (x, y).
func (t *Texture) At(x, y int) []byte {
	bpp := device.BytesPerPixel(t.Desc.Format)
	o := y*t.Stride + x*bpp
	return t.Pix[o : o+bpp]
}

// Lock implements device.Texture.
func (t *Texture) Lock(r image.Rectangle) (device.Mapping, error) {
	if t.Destroyed {
		return device.Mapping{}, device.ErrReleased
	}
	if err := t.dev.fail(OpLockTexture); err != nil {
		return device.Mapping{}, err
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
	t.Locks++
	t.LockedRects = append(t.LockedRects, r)
	bpp := device.BytesPerPixel(t.Desc.Format)
	o := r.Min.Y*t.Stride + r.Min.X*bpp
	return device.Mapping{Pix: t.Pix[o:], Stride: t.Stride}, nil
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
	t.Destroyed = true
	t.locked = false
}

// BufferLock records one vertex buffer lock.
type BufferLock struct {
	Offset int
	Size   int
	Mode   device.LockMode
}

// VertexBuffer is a fake vertex buffer holding its bytes in Data.
type VertexBuffer struct {
	Data  []byte
	Pool  device.Pool
	Locks []BufferLock

	Destroyed bool

	dev    *Device
	locked bool
}

var _ device.VertexBuffer = (*VertexBuffer)(nil)

// Size implements device.VertexBuffer.
func (b *VertexBuffer) Size() int { return len(b.Data) }

// Lock implements device.VertexBuffer.
func (b *VertexBuffer) Lock(offset, size int, mode device.LockMode) ([]byte, error) {
	if b.Destroyed {
		return nil, device.ErrReleased
	}
	if err := b.dev.fail(OpLockBuffer); err != nil {
		return nil, err
	}
	if err := b.dev.lostErr(); err != nil {
		return nil, err
	}
	if b.locked {
		return nil, fmt.Errorf("%w: already locked", device.ErrLockFailed)
	}
	if offset < 0 || size <= 0 || offset+size > len(b.Data) {
		return nil, fmt.Errorf("%w: range [%d,%d) of %d", device.ErrLockFailed, offset, offset+size, len(b.Data))
	}
	b.locked = true
	b.Locks = append(b.Locks, BufferLock{Offset: offset, Size: size, Mode: mode})
	return b.Data[offset : offset+size], nil
}

// Unlock implements device.VertexBuffer.
func (b *VertexBuffer) Unlock() error {
	if !b.locked {
		return device.ErrNotLocked
	}
	b.locked = false
	return nil
}

// Locked reports whether a range is currently locked.
func (b *VertexBuffer) Locked() bool { return b.locked }

// Destroy implements device.VertexBuffer.
func (b *VertexBuffer) Destroy() {
	b.Destroyed = true
	b.locked = false
}

// SwapChain is a fake swap chain.
type SwapChain struct {
	Back      *Texture
	Presents  int
	Destroyed bool

	dev *Device
}

var _ device.SwapChain = (*SwapChain)(nil)

// BackBuffer implements device.SwapChain.
func (s *SwapChain) BackBuffer() device.Texture { return s.Back }

// Present implements device.SwapChain.
func (s *SwapChain) Present() error {
	if s.Destroyed {
		return device.ErrReleased
	}
	if err := s.dev.lostErr(); err != nil {
		return err
	}
	s.Presents++
	return nil
}

// Destroy implements device.SwapChain.
func (s *SwapChain) Destroy() {
	s.Destroyed = true
	s.Back.Destroy()
}
