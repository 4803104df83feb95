package software

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/gputext/device"
)

// MaxSlots is the number of texture slots.
const MaxSlots = 3

// ErrLiveResources is returned by Reset while default-pool resources are
// still alive.
var ErrLiveResources = errors.New("software: default-pool resources alive at reset")

type lossState uint8

const (
	stateOK lossState = iota
	stateLost
	stateNotReset
)

// Device is a CPU implementation of device.Device.
//
// Device is not safe for concurrent use.
type Device struct {
	target *Texture
	state  device.RenderState
	bound  [MaxSlots]*Texture
	vb     *VertexBuffer
	stride int

	loss lossState
	live map[resource]struct{}

	draws int
}

// resource is a default-pool allocation that blocks Reset while alive.
type resource interface {
	pool() device.Pool
}

var _ device.Device = (*Device)(nil)

// New returns a ready device.
func New() *Device {
	return &Device{live: make(map[resource]struct{})}
}

// Lose simulates a device loss. Status reports device.ErrDeviceLost until
// AllowReset is called.
func (d *Device) Lose() {
	d.loss = stateLost
}

// AllowReset moves a lost device to the state where Reset can succeed.
func (d *Device) AllowReset() {
	if d.loss == stateLost {
		d.loss = stateNotReset
	}
}

// Draws returns the number of draw calls rasterized so far.
func (d *Device) Draws() int { return d.draws }

func (d *Device) lostErr() error {
	switch d.loss {
	case stateLost:
		return device.ErrDeviceLost
	case stateNotReset:
		return device.ErrDeviceNotReset
	}
	return nil
}

// Status implements device.Device.
func (d *Device) Status() error {
	return d.lostErr()
}

// Reset implements device.Device. Like a hardware device it refuses to
// reset while default-pool resources are alive.
func (d *Device) Reset() error {
	if d.loss == stateLost {
		return device.ErrDeviceLost
	}
	if n := d.liveDefault(); n > 0 {
		return fmt.Errorf("%w: %d", ErrLiveResources, n)
	}
	d.loss = stateOK
	d.target = nil
	d.state = device.StateReset
	d.bound = [MaxSlots]*Texture{}
	d.vb = nil
	d.stride = 0
	return nil
}

func (d *Device) liveDefault() int {
	n := 0
	for r := range d.live {
		if r.pool() == device.PoolDefault {
			n++
		}
	}
	return n
}

// CreateTexture implements device.Device.
func (d *Device) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newTexture(desc), nil
}

func (d *Device) newTexture(desc device.TextureDescriptor) *Texture {
	bpp := device.BytesPerPixel(desc.Format)
	t := &Texture{
		desc:   desc,
		stride: desc.Width * bpp,
		pix:    make([]byte, desc.Width*desc.Height*bpp),
		dev:    d,
	}
	d.live[t] = struct{}{}
	return t
}

// CreateVertexBuffer implements device.Device.
func (d *Device) CreateVertexBuffer(size int, pool device.Pool) (device.VertexBuffer, error) {
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", device.ErrInvalidDescriptor, size)
	}
	b := &VertexBuffer{data: make([]byte, size), memPool: pool, dev: d}
	d.live[b] = struct{}{}
	return b, nil
}

// CreateSwapChain implements device.Device. The back buffer is an
// ordinary render target; Present counts frames.
func (d *Device) CreateSwapChain(desc device.SwapChainDescriptor) (device.SwapChain, error) {
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	td := device.TextureDescriptor{
		Label:  desc.Label,
		Width:  desc.Width,
		Height: desc.Height,
		Format: desc.Format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}
	if err := td.Validate(); err != nil {
		return nil, err
	}
	s := &SwapChain{back: d.newTexture(td), dev: d}
	d.live[s] = struct{}{}
	return s, nil
}

func (d *Device) release(r resource) {
	delete(d.live, r)
}

// SetRenderTarget implements device.Device.
func (d *Device) SetRenderTarget(target device.Texture) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	t, err := d.own(target)
	if err != nil {
		return err
	}
	d.target = t
	return nil
}

// SetRenderState implements device.Device.
func (d *Device) SetRenderState(state device.RenderState) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	d.state = state
	return nil
}

// BindTexture implements device.Device.
func (d *Device) BindTexture(slot int, tex device.Texture) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	if slot < 0 || slot >= MaxSlots {
		return fmt.Errorf("%w: texture slot %d", device.ErrNotSupported, slot)
	}
	t, err := d.own(tex)
	if err != nil {
		return err
	}
	d.bound[slot] = t
	return nil
}

// BindVertexBuffer implements device.Device.
func (d *Device) BindVertexBuffer(vb device.VertexBuffer, stride int) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	if vb == nil {
		d.vb, d.stride = nil, 0
		return nil
	}
	b, ok := vb.(*VertexBuffer)
	if !ok || b.dev != d {
		return fmt.Errorf("%w: foreign vertex buffer %T", device.ErrNotSupported, vb)
	}
	if b.destroyed {
		return device.ErrReleased
	}
	d.vb, d.stride = b, stride
	return nil
}

// Draw implements device.Device.
func (d *Device) Draw(topology gputypes.PrimitiveTopology, firstVertex, vertexCount int) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	if d.target == nil {
		return fmt.Errorf("%w: draw without render target", device.ErrNotSupported)
	}
	if d.vb == nil {
		return fmt.Errorf("%w: draw without vertex buffer", device.ErrNotSupported)
	}
	vs, err := d.vb.vertices(firstVertex, vertexCount, d.stride)
	if err != nil {
		return err
	}
	r := rasterizer{dst: d.target, state: d.state, slots: d.bound}
	switch topology {
	case gputypes.PrimitiveTopologyTriangleList:
		for i := 0; i+2 < len(vs); i += 3 {
			r.triangle(vs[i], vs[i+1], vs[i+2])
		}
	case gputypes.PrimitiveTopologyLineList:
		for i := 0; i+1 < len(vs); i += 2 {
			r.line(vs[i], vs[i+1])
		}
	case gputypes.PrimitiveTopologyLineStrip:
		for i := 0; i+1 < len(vs); i++ {
			r.line(vs[i], vs[i+1])
		}
	case gputypes.PrimitiveTopologyPointList:
		for _, v := range vs {
			r.point(v)
		}
	default:
		return fmt.Errorf("%w: topology %v", device.ErrNotSupported, topology)
	}
	d.draws++
	return nil
}

// CopyFromTarget implements device.Device. Textures of the same texel
// size are copied byte for byte; otherwise texels are converted.
func (d *Device) CopyFromTarget(dst device.Texture, src image.Rectangle, dp image.Point) error {
	if err := d.lostErr(); err != nil {
		return err
	}
	t, err := d.own(dst)
	if err != nil {
		return err
	}
	if t == nil || d.target == nil {
		return fmt.Errorf("%w: copy needs a render target and a destination", device.ErrNotSupported)
	}

	// Clip the source and the destination together.
	sr := src.Intersect(d.target.Bounds())
	dr := sr.Add(dp.Sub(src.Min)).Intersect(t.Bounds())
	if dr.Empty() {
		return nil
	}
	sp := dr.Min.Sub(dp).Add(src.Min)

	if di, si := t.image(), d.target.image(); di != nil && si != nil && sameLayout(t, d.target) {
		draw.Draw(di, dr, si, sp, draw.Src)
		return nil
	}
	for y := 0; y < dr.Dy(); y++ {
		for x := 0; x < dr.Dx(); x++ {
			t.store(dr.Min.X+x, dr.Min.Y+y, d.target.load(sp.X+x, sp.Y+y))
		}
	}
	return nil
}

func sameLayout(a, b *Texture) bool {
	return device.BytesPerPixel(a.desc.Format) == device.BytesPerPixel(b.desc.Format)
}

func (d *Device) own(tex device.Texture) (*Texture, error) {
	if tex == nil {
		return nil, nil
	}
	t, ok := tex.(*Texture)
	if !ok || t.dev != d {
		return nil, fmt.Errorf("%w: foreign texture %T", device.ErrNotSupported, tex)
	}
	if t.destroyed {
		return nil, device.ErrReleased
	}
	return t, nil
}
