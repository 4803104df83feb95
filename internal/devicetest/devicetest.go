// Package devicetest provides a recording in-memory device.Device for
// tests. Every resource keeps its pixels or bytes in CPU memory so tests
// can inspect what was uploaded, and every operation can be made to fail.
package devicetest

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/device"
)

// MaxSlots is the number of texture slots the fake device exposes.
const MaxSlots = 4

// ErrLiveResources is returned by Reset while default-pool resources are
// still alive.
var ErrLiveResources = errors.New("devicetest: default-pool resources alive at reset")

// Op names a device operation for failure injection.
type Op uint8

// Operations that can be made to fail.
const (
	OpCreateTexture Op = iota
	OpCreateVertexBuffer
	OpCreateSwapChain
	OpLockTexture
	OpLockBuffer
	OpSetRenderTarget
	OpSetRenderState
	OpBindTexture
	OpBindVertexBuffer
	OpDraw
	OpCopy
	OpReset
	opCount
)

type lossState uint8

const (
	stateOK lossState = iota
	stateLost
	stateNotReset
)

// Draw records one draw call with the state it was issued under.
type Draw struct {
	Topology gputypes.PrimitiveTopology
	First    int
	Count    int
	State    device.RenderState
	Target   *Texture
	Bound    [MaxSlots]*Texture
	Buffer   *VertexBuffer
	Stride   int
}

// Copy records one CopyFromTarget call.
type Copy struct {
	Dst *Texture
	Src image.Rectangle
	DP  image.Point
}

// Device is a fake device.Device.
type Device struct {
	// Textures and Buffers hold every resource ever created, in order.
	Textures   []*Texture
	Buffers    []*VertexBuffer
	SwapChains []*SwapChain

	// Draws and Copies record issued commands.
	Draws  []Draw
	Copies []Copy

	// Log records operation names in call order.
	Log []string

	// Resets counts successful resets.
	Resets int

	target *Texture
	state  device.RenderState
	bound  [MaxSlots]*Texture
	vb     *VertexBuffer
	stride int

	loss      lossState
	failNext  [opCount][]error
	failAll   [opCount]error
	nextLabel int
}

var _ device.Device = (*Device)(nil)

// New returns an empty device.
func New() *Device {
	return &Device{}
}

// FailNext makes the next call of op return err. Calls queue up.
func (d *Device) FailNext(op Op, err error) {
	d.failNext[op] = append(d.failNext[op], err)
}

// FailAlways makes every call of op return err until ClearFailures.
func (d *Device) FailAlways(op Op, err error) {
	d.failAll[op] = err
}

// ClearFailures removes every injected failure.
func (d *Device) ClearFailures() {
	d.failNext = [opCount][]error{}
	d.failAll = [opCount]error{}
}

func (d *Device) fail(op Op) error {
	if q := d.failNext[op]; len(q) > 0 {
		d.failNext[op] = q[1:]
		return q[0]
	}
	return d.failAll[op]
}

// Lose simulates a device loss. Status reports ErrDeviceLost until
// AllowReset is called.
func (d *Device) Lose() {
	d.loss = stateLost
}

// AllowReset moves a lost device to the not-reset state.
func (d *Device) AllowReset() {
	if d.loss == stateLost {
		d.loss = stateNotReset
	}
}

func (d *Device) lostErr() error {
	switch d.loss {
	case stateLost:
		return device.ErrDeviceLost
	case stateNotReset:
		return device.ErrDeviceNotReset
	default:
		return nil
	}
}

// Status implements device.Device.
func (d *Device) Status() error {
	return d.lostErr()
}

// Reset implements device.Device. It fails while the device is still
// lost or while default-pool resources are alive.
func (d *Device) Reset() error {
	d.Log = append(d.Log, "Reset")
	if err := d.fail(OpReset); err != nil {
		return err
	}
	if d.loss == stateLost {
		return device.ErrDeviceLost
	}
	if n := d.LiveDefaultPool(); n > 0 {
		return fmt.Errorf("%w: %d", ErrLiveResources, n)
	}
	d.loss = stateOK
	d.target = nil
	d.state = device.StateReset
	d.bound = [MaxSlots]*Texture{}
	d.vb = nil
	d.Resets++
	return nil
}

// LiveDefaultPool counts live default-pool textures and buffers.
// Swap chains count as default-pool resources.
func (d *Device) LiveDefaultPool() int {
	n := 0
	for _, t := range d.Textures {
		if !t.Destroyed && t.Desc.Pool == device.PoolDefault && !t.backBuffer {
			n++
		}
	}
	for _, b := range d.Buffers {
		if !b.Destroyed && b.Pool == device.PoolDefault {
			n++
		}
	}
	for _, s := range d.SwapChains {
		if !s.Destroyed {
			n++
		}
	}
	return n
}

// LiveTextures counts textures not yet destroyed, back buffers excluded.
func (d *Device) LiveTextures() int {
	n := 0
	for _, t := range d.Textures {
		if !t.Destroyed && !t.backBuffer {
			n++
		}
	}
	return n
}

// LiveBuffers counts vertex buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	n := 0
	for _, b := range d.Buffers {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

// Target returns the current render target.
func (d *Device) Target() *Texture { return d.target }

// State returns the current render state.
func (d *Device) State() device.RenderState { return d.state }

// CreateTexture implements device.Device.
func (d *Device) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	d.Log = append(d.Log, "CreateTexture")
	if err := d.fail(OpCreateTexture); err != nil {
		return nil, err
	}
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newTexture(desc), nil
}

func (d *Device) newTexture(desc device.TextureDescriptor) *Texture {
	d.nextLabel++
	if desc.Label == "" {
		desc.Label = fmt.Sprintf("texture-%d", d.nextLabel)
	}
	bpp := device.BytesPerPixel(desc.Format)
	t := &Texture{
		Desc:   desc,
		Stride: desc.Width * bpp,
		Pix:    make([]byte, desc.Width*desc.Height*bpp),
		dev:    d,
	}
	d.Textures = append(d.Textures, t)
	return t
}

// CreateVertexBuffer implements device.Device.
func (d *Device) CreateVertexBuffer(size int, pool device.Pool) (device.VertexBuffer, error) {
	d.Log = append(d.Log, "CreateVertexBuffer")
	if err := d.fail(OpCreateVertexBuffer); err != nil {
		return nil, err
	}
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", device.ErrInvalidDescriptor, size)
	}
	b := &VertexBuffer{Data: make([]byte, size), Pool: pool, dev: d}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

// CreateSwapChain implements device.Device.
func (d *Device) CreateSwapChain(desc device.SwapChainDescriptor) (device.SwapChain, error) {
	d.Log = append(d.Log, "CreateSwapChain")
	if err := d.fail(OpCreateSwapChain); err != nil {
		return nil, err
	}
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	back := d.newTexture(device.TextureDescriptor{
		Label:  desc.Label,
		Width:  desc.Width,
		Height: desc.Height,
		Format: desc.Format,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if back.Stride == 0 {
		return nil, fmt.Errorf("%w: swap chain format %v", device.ErrInvalidDescriptor, desc.Format)
	}
	back.backBuffer = true
	s := &SwapChain{Back: back, dev: d}
	d.SwapChains = append(d.SwapChains, s)
	return s, nil
}

// SetRenderTarget implements device.Device.
func (d *Device) SetRenderTarget(target device.Texture) error {
	d.Log = append(d.Log, "SetRenderTarget")
	if err := d.fail(OpSetRenderTarget); err != nil {
		return err
	}
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
	d.Log = append(d.Log, "SetRenderState:"+state.String())
	if err := d.fail(OpSetRenderState); err != nil {
		return err
	}
	if err := d.lostErr(); err != nil {
		return err
	}
	d.state = state
	return nil
}

// BindTexture implements device.Device.
func (d *Device) BindTexture(slot int, tex device.Texture) error {
	d.Log = append(d.Log, fmt.Sprintf("BindTexture:%d", slot))
	if err := d.fail(OpBindTexture); err != nil {
		return err
	}
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
	d.Log = append(d.Log, "BindVertexBuffer")
	if err := d.fail(OpBindVertexBuffer); err != nil {
		return err
	}
	if err := d.lostErr(); err != nil {
		return err
	}
	b, ok := vb.(*VertexBuffer)
	if vb != nil && !ok {
		return fmt.Errorf("%w: foreign vertex buffer %T", device.ErrNotSupported, vb)
	}
	if b != nil && b.Destroyed {
		return device.ErrReleased
	}
	d.vb = b
	d.stride = stride
	return nil
}

// Draw implements device.Device.
func (d *Device) Draw(topology gputypes.PrimitiveTopology, firstVertex, vertexCount int) error {
	d.Log = append(d.Log, "Draw")
	if err := d.fail(OpDraw); err != nil {
		return err
	}
	if err := d.lostErr(); err != nil {
		return err
	}
	d.Draws = append(d.Draws, Draw{
		Topology: topology,
		First:    firstVertex,
		Count:    vertexCount,
		State:    d.state,
		Target:   d.target,
		Bound:    d.bound,
		Buffer:   d.vb,
		Stride:   d.stride,
	})
	return nil
}

// CopyFromTarget implements device.Device. Texels are copied when both
// textures have the same texel size.
func (d *Device) CopyFromTarget(dst device.Texture, src image.Rectangle, dp image.Point) error {
	d.Log = append(d.Log, "CopyFromTarget")
	if err := d.fail(OpCopy); err != nil {
		return err
	}
	if err := d.lostErr(); err != nil {
		return err
	}
	t, err := d.own(dst)
	if err != nil {
		return err
	}
	if d.target == nil {
		return fmt.Errorf("%w: no render target", device.ErrNotSupported)
	}
	d.Copies = append(d.Copies, Copy{Dst: t, Src: src, DP: dp})

	src = src.Intersect(d.target.Bounds())
	bpp := device.BytesPerPixel(t.Desc.Format)
	if bpp != device.BytesPerPixel(d.target.Desc.Format) {
		return nil
	}
	for y := src.Min.Y; y < src.Max.Y; y++ {
		dy := dp.Y + y - src.Min.Y
		if dy < 0 || dy >= t.Desc.Height {
			continue
		}
		for x := src.Min.X; x < src.Max.X; x++ {
			dx := dp.X + x - src.Min.X
			if dx < 0 || dx >= t.Desc.Width {
				continue
			}
			so := y*d.target.Stride + x*bpp
			do := dy*t.Stride + dx*bpp
			copy(t.Pix[do:do+bpp], d.target.Pix[so:so+bpp])
		}
	}
	return nil
}

func (d *Device) own(tex device.Texture) (*Texture, error) {
	if tex == nil {
		return nil, nil
	}
	t, ok := tex.(*Texture)
	if !ok || t.dev != d {
		return nil, fmt.Errorf("%w: foreign texture %T", device.ErrNotSupported, tex)
	}
	if t.Destroyed {
		return nil, device.ErrReleased
	}
	return t, nil
}
