package native

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gputext/device"
)

// MaxSlots is the number of texture slots passed to Pipelines.BindGroup.
const MaxSlots = 3

// waitTimeout bounds how long a submission may take before the device is
// considered lost.
const waitTimeout = 5 * time.Second

var (
	// ErrNilDevice is returned when a HAL device or queue is missing.
	ErrNilDevice = errors.New("native: HAL device or queue is nil")

	// ErrNoHAL is returned by NewFromProvider for providers that do not
	// expose HAL handles.
	ErrNoHAL = errors.New("native: provider does not expose HAL types")

	// ErrLiveResources is returned by Reset while default-pool resources
	// are still alive.
	ErrLiveResources = errors.New("native: default-pool resources alive at reset")
)

// Pipelines supplies the render pipelines and bind groups behind each
// render state. Implementations own the shaders.
type Pipelines interface {
	// Pipeline returns the pipeline drawing topology in state into
	// targets of format.
	Pipeline(state device.RenderState, topology gputypes.PrimitiveTopology, format gputypes.TextureFormat) (hal.RenderPipeline, error)

	// BindGroup returns a bind group sampling views. Unbound slots are nil.
	BindGroup(state device.RenderState, views [MaxSlots]hal.TextureView) (hal.BindGroup, error)
}

type lossState uint8

const (
	stateOK lossState = iota
	stateLost
	stateNotReset
)

// Device implements device.Device on a HAL device and queue.
//
// Device is safe for concurrent use, but draws and locks are expected
// from one render goroutine.
type Device struct {
	mu    sync.Mutex
	dev   hal.Device
	queue hal.Queue
	pipes Pipelines
	log   *slog.Logger

	target *Texture
	state  device.RenderState
	bound  [MaxSlots]*Texture
	vb     *VertexBuffer
	stride int

	loss lossState
	live map[resource]struct{}
}

// resource is a HAL allocation owned by the device.
type resource interface {
	pool() device.Pool
	// free destroys the HAL objects. It runs with the device lock held.
	free(dev hal.Device)
}

var _ device.Device = (*Device)(nil)

// New returns a device drawing with dev and queue.
func New(dev hal.Device, queue hal.Queue, pipes Pipelines) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{
		dev:   dev,
		queue: queue,
		pipes: pipes,
		log:   nopLogger(),
		live:  make(map[resource]struct{}),
	}, nil
}

// NewFromProvider returns a device sharing the HAL device of a host such
// as gogpu. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, pipes Pipelines) (*Device, error) {
	dev, queue, err := halHandles(provider)
	if err != nil {
		return nil, err
	}
	return New(dev, queue, pipes)
}

func halHandles(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return dev, queue, nil
}

// MarkLost records that the underlying device was lost. Every operation
// fails with device.ErrDeviceLost until Rebind.
func (d *Device) MarkLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loss == stateOK {
		d.logger().Warn("native: device lost")
	}
	d.loss = stateLost
}

// Rebind installs the device and queue to use after a loss and makes
// Reset possible. Passing the previous handles resumes on them.
func (d *Device) Rebind(dev hal.Device, queue hal.Queue) error {
	if dev == nil || queue == nil {
		return ErrNilDevice
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dev, d.queue = dev, queue
	if d.loss == stateLost {
		d.loss = stateNotReset
	}
	return nil
}

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
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lostErr()
}

// Reset implements device.Device.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loss == stateLost {
		return device.ErrDeviceLost
	}
	n := 0
	for r := range d.live {
		if r.pool() == device.PoolDefault {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("%w: %d", ErrLiveResources, n)
	}
	d.loss = stateOK
	d.target = nil
	d.state = device.StateReset
	d.bound = [MaxSlots]*Texture{}
	d.vb = nil
	d.stride = 0
	d.logger().Info("native: device reset")
	return nil
}

// Close destroys every resource still alive.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for r := range d.live {
		r.free(d.dev)
		delete(d.live, r)
	}
}

// CreateTexture implements device.Device.
func (d *Device) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.newTexture(desc)
}

func (d *Device) newTexture(desc device.TextureDescriptor) (*Texture, error) {
	usage := desc.Usage
	if desc.Pool != device.PoolSystemMem {
		usage |= gputypes.TextureUsageCopyDst
	}
	if usage&gputypes.TextureUsageRenderAttachment != 0 {
		usage |= gputypes.TextureUsageCopySrc
	}
	raw, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create texture %q: %w: %w", desc.Label, device.ErrOutOfMemory, err)
	}
	view, err := d.dev.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.dev.DestroyTexture(raw)
		return nil, fmt.Errorf("native: create view %q: %w", desc.Label, err)
	}
	bpp := device.BytesPerPixel(desc.Format)
	t := &Texture{
		desc:   desc,
		raw:    raw,
		view:   view,
		shadow: make([]byte, desc.Width*desc.Height*bpp),
		stride: desc.Width * bpp,
		dev:    d,
	}
	d.live[t] = struct{}{}
	return t, nil
}

// CreateVertexBuffer implements device.Device.
func (d *Device) CreateVertexBuffer(size int, pool device.Pool) (device.VertexBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.lostErr(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: buffer size %d", device.ErrInvalidDescriptor, size)
	}
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "gputext_vertices",
		Size:  alignUp(uint64(size), 4),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create vertex buffer: %w: %w", device.ErrOutOfMemory, err)
	}
	b := &VertexBuffer{raw: raw, shadow: make([]byte, size), memPool: pool, dev: d}
	d.live[b] = struct{}{}
	return b, nil
}

// CreateSwapChain implements device.Device. Presentation belongs to the
// host window, so it is not supported.
func (d *Device) CreateSwapChain(device.SwapChainDescriptor) (device.SwapChain, error) {
	return nil, fmt.Errorf("%w: swap chains are owned by the host surface", device.ErrNotSupported)
}

// SetRenderTarget implements device.Device.
func (d *Device) SetRenderTarget(target device.Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.lostErr(); err != nil {
		return err
	}
	t, err := d.own(target)
	if err != nil {
		return err
	}
	if t != nil && t.desc.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		return fmt.Errorf("%w: texture %q is not a render attachment", device.ErrNotSupported, t.desc.Label)
	}
	d.target = t
	return nil
}

// SetRenderState implements device.Device.
func (d *Device) SetRenderState(state device.RenderState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.lostErr(); err != nil {
		return err
	}
	d.state = state
	return nil
}

// BindTexture implements device.Device.
func (d *Device) BindTexture(slot int, tex device.Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	d.mu.Lock()
	defer d.mu.Unlock()
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

// Draw implements device.Device. The draw is encoded in its own render
// pass that loads and stores the target.
func (d *Device) Draw(topology gputypes.PrimitiveTopology, firstVertex, vertexCount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.lostErr(); err != nil {
		return err
	}
	if d.target == nil || d.vb == nil {
		return fmt.Errorf("%w: draw needs a render target and vertices", device.ErrNotSupported)
	}
	if d.pipes == nil {
		return fmt.Errorf("%w: no pipelines", device.ErrNotSupported)
	}
	if vertexCount <= 0 {
		return nil
	}
	pipeline, err := d.pipes.Pipeline(d.state, topology, d.target.desc.Format)
	if err != nil {
		return fmt.Errorf("native: pipeline for %v: %w", d.state, err)
	}
	var views [MaxSlots]hal.TextureView
	for i, t := range d.bound {
		if t != nil {
			views[i] = t.view
		}
	}
	bindGroup, err := d.pipes.BindGroup(d.state, views)
	if err != nil {
		return fmt.Errorf("native: bind group for %v: %w", d.state, err)
	}

	encoder, err := d.beginEncoder("gputext_draw")
	if err != nil {
		return err
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gputext_draw_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    d.target.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	rp.SetPipeline(pipeline)
	if bindGroup != nil {
		rp.SetBindGroup(0, bindGroup, nil)
	}
	rp.SetVertexBuffer(0, d.vb.raw, uint64(firstVertex*d.stride))
	rp.Draw(uint32(vertexCount), 1, 0, 0)
	rp.End()
	if err := d.submit(encoder); err != nil {
		return err
	}
	d.target.stale = true
	return nil
}

// CopyFromTarget implements device.Device. The target is read back and
// the copied texels are written to dst through its shadow.
func (d *Device) CopyFromTarget(dst device.Texture, src image.Rectangle, dp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
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
	bpp := device.BytesPerPixel(t.desc.Format)
	if bpp != device.BytesPerPixel(d.target.desc.Format) {
		return fmt.Errorf("%w: copy from %v to %v", device.ErrNotSupported, d.target.desc.Format, t.desc.Format)
	}
	if err := d.refresh(d.target); err != nil {
		return err
	}

	sr := src.Intersect(d.target.bounds())
	dr := sr.Add(dp.Sub(src.Min)).Intersect(t.bounds())
	if dr.Empty() {
		return nil
	}
	sp := dr.Min.Sub(dp).Add(src.Min)
	n := dr.Dx() * bpp
	for y := 0; y < dr.Dy(); y++ {
		so := (sp.Y+y)*d.target.stride + sp.X*bpp
		do := (dr.Min.Y+y)*t.stride + dr.Min.X*bpp
		copy(t.shadow[do:do+n], d.target.shadow[so:so+n])
	}
	if t.desc.Pool == device.PoolSystemMem {
		return nil
	}
	d.writeTexture(t)
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
	if t.destroyed {
		return nil, device.ErrReleased
	}
	return t, nil
}

func (d *Device) beginEncoder(label string) (hal.CommandEncoder, error) {
	encoder, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, d.failure("create command encoder", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, d.failure("begin encoding", err)
	}
	return encoder, nil
}

// submit ends encoding, submits and waits for completion.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return d.failure("end encoding", err)
	}
	defer d.dev.FreeCommandBuffer(cmdBuf)

	fence, err := d.dev.CreateFence()
	if err != nil {
		return d.failure("create fence", err)
	}
	defer d.dev.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return d.failure("submit", err)
	}
	ok, err := d.dev.Wait(fence, 1, waitTimeout)
	if err != nil || !ok {
		// A submission that never completes means the device is gone.
		d.loss = stateLost
		d.logger().Warn("native: submission did not complete", "err", err)
		return fmt.Errorf("native: wait: %w", device.ErrDeviceLost)
	}
	return nil
}

func (d *Device) failure(op string, err error) error {
	d.logger().Debug("native: "+op+" failed", "err", err)
	return fmt.Errorf("native: %s: %w", op, err)
}

// refresh reads a render target back into its shadow if it was drawn to
// since the last read.
func (d *Device) refresh(t *Texture) error {
	if !t.stale {
		return nil
	}
	bpp := uint32(device.BytesPerPixel(t.desc.Format))
	w, h := uint32(t.desc.Width), uint32(t.desc.Height)
	rowBytes := w * bpp
	aligned := alignUp(rowBytes, copyPitchAlignment)

	staging, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "gputext_readback",
		Size:  uint64(aligned) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return d.failure("create readback buffer", err)
	}
	defer d.dev.DestroyBuffer(staging)

	encoder, err := d.beginEncoder("gputext_readback")
	if err != nil {
		return err
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.raw, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.raw,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	if err := d.submit(encoder); err != nil {
		return err
	}

	data := make([]byte, uint64(aligned)*uint64(h))
	if err := d.queue.ReadBuffer(staging, 0, data); err != nil {
		return d.failure("read back", err)
	}
	for y := uint32(0); y < h; y++ {
		copy(t.shadow[y*rowBytes:(y+1)*rowBytes], data[y*aligned:y*aligned+rowBytes])
	}
	t.stale = false
	return nil
}

// writeTexture uploads the whole shadow of t.
func (d *Device) writeTexture(t *Texture) {
	w, h := uint32(t.desc.Width), uint32(t.desc.Height)
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		t.shadow,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(t.stride), RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}
