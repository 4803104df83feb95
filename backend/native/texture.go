package native

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/exp/constraints"

	"github.com/gogpu/gputext/device"
)

// copyPitchAlignment is the row alignment texture-to-buffer copies need.
const copyPitchAlignment = 256

func alignUp[T constraints.Unsigned](v, a T) T {
	return (v + a - 1) / a * a
}

// Texture is a HAL texture with a CPU shadow copy.
type Texture struct {
	desc   device.TextureDescriptor
	raw    hal.Texture
	view   hal.TextureView
	shadow []byte
	stride int

	// stale is set when the GPU copy was drawn to after the last read.
	stale bool

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

// Raw returns the HAL texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

// View returns the texture view used for sampling and rendering.
func (t *Texture) View() hal.TextureView { return t.view }

func (t *Texture) bounds() image.Rectangle {
	return image.Rect(0, 0, t.desc.Width, t.desc.Height)
}

// Lock implements device.Texture. Locking a render target that was drawn
// to first reads it back.
func (t *Texture) Lock(r image.Rectangle) (device.Mapping, error) {
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.destroyed {
		return device.Mapping{}, device.ErrReleased
	}
	if err := d.lostErr(); err != nil {
		return device.Mapping{}, err
	}
	if t.locked {
		return device.Mapping{}, fmt.Errorf("%w: already locked", device.ErrLockFailed)
	}
	if r.Empty() || !r.In(t.bounds()) {
		return device.Mapping{}, fmt.Errorf("%w: region %v outside %v", device.ErrLockFailed, r, t.bounds())
	}
	if err := d.refresh(t); err != nil {
		return device.Mapping{}, fmt.Errorf("%w: %w", device.ErrLockFailed, err)
	}
	t.locked = true
	o := r.Min.Y*t.stride + r.Min.X*device.BytesPerPixel(t.desc.Format)
	return device.Mapping{Pix: t.shadow[o:], Stride: t.stride}, nil
}

// Unlock implements device.Texture. The shadow is written to the GPU
// unless the texture lives in system memory.
func (t *Texture) Unlock() error {
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !t.locked {
		return device.ErrNotLocked
	}
	t.locked = false
	if t.desc.Pool == device.PoolSystemMem {
		return nil
	}
	if err := d.lostErr(); err != nil {
		return err
	}
	d.writeTexture(t)
	return nil
}

// Destroy implements device.Texture.
func (t *Texture) Destroy() {
	d := t.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.destroyed {
		return
	}
	t.free(d.dev)
	delete(d.live, t)
	if d.target == t {
		d.target = nil
	}
	for i, b := range d.bound {
		if b == t {
			d.bound[i] = nil
		}
	}
}

func (t *Texture) free(dev hal.Device) {
	t.destroyed = true
	t.locked = false
	if t.view != nil {
		dev.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		dev.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// VertexBuffer is a HAL vertex buffer with a CPU shadow copy.
type VertexBuffer struct {
	raw     hal.Buffer
	shadow  []byte
	memPool device.Pool

	dev       *Device
	locked    bool
	lockOff   int
	lockSize  int
	destroyed bool
}

var _ device.VertexBuffer = (*VertexBuffer)(nil)

func (b *VertexBuffer) pool() device.Pool { return b.memPool }

// Size implements device.VertexBuffer.
func (b *VertexBuffer) Size() int { return len(b.shadow) }

// Lock implements device.VertexBuffer. Draws complete before they
// return, so both lock modes behave the same.
func (b *VertexBuffer) Lock(offset, size int, _ device.LockMode) ([]byte, error) {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.destroyed {
		return nil, device.ErrReleased
	}
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if b.locked {
		return nil, fmt.Errorf("%w: already locked", device.ErrLockFailed)
	}
	if offset < 0 || size <= 0 || offset+size > len(b.shadow) {
		return nil, fmt.Errorf("%w: range [%d,%d) of %d", device.ErrLockFailed, offset, offset+size, len(b.shadow))
	}
	b.locked, b.lockOff, b.lockSize = true, offset, size
	return b.shadow[offset : offset+size], nil
}

// Unlock implements device.VertexBuffer. The locked range is written to
// the GPU.
func (b *VertexBuffer) Unlock() error {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !b.locked {
		return device.ErrNotLocked
	}
	b.locked = false
	if err := d.lostErr(); err != nil {
		return err
	}
	d.queue.WriteBuffer(b.raw, uint64(b.lockOff), b.shadow[b.lockOff:b.lockOff+b.lockSize])
	return nil
}

// Destroy implements device.VertexBuffer.
func (b *VertexBuffer) Destroy() {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.destroyed {
		return
	}
	b.free(d.dev)
	delete(d.live, b)
	if d.vb == b {
		d.vb = nil
	}
}

func (b *VertexBuffer) free(dev hal.Device) {
	b.destroyed = true
	b.locked = false
	if b.raw != nil {
		dev.DestroyBuffer(b.raw)
		b.raw = nil
	}
}
