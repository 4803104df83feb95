package native

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gputext/device"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	hd, hq := createNoopDevice(t)
	d, err := New(hd, hq, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func createTexture(t *testing.T, d *Device, desc device.TextureDescriptor) *Texture {
	t.Helper()
	tex, err := d.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture(%q): %v", desc.Label, err)
	}
	return tex.(*Texture)
}

func TestNew_NilHandles(t *testing.T) {
	if _, err := New(nil, nil, nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestHalHandles(t *testing.T) {
	hd, hq := createNoopDevice(t)

	if _, _, err := halHandles(struct{}{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("plain value: error = %v, want ErrNoHAL", err)
	}
	if _, _, err := halHandles(halOnly{dev: "device", queue: hq}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("wrong device type: error = %v, want ErrNoHAL", err)
	}
	gotDev, gotQueue, err := halHandles(halOnly{dev: hd, queue: hq})
	if err != nil {
		t.Fatalf("halHandles: %v", err)
	}
	if gotDev != hd || gotQueue != hq {
		t.Error("halHandles returned different handles")
	}
}

type halOnly struct {
	dev   any
	queue any
}

func (h halOnly) HalDevice() any { return h.dev }
func (h halOnly) HalQueue() any  { return h.queue }

func TestTextureLockUnlock(t *testing.T) {
	d := newTestDevice(t)
	tex := createTexture(t, d, device.TextureDescriptor{
		Label:  "glyph-cache",
		Width:  64,
		Height: 32,
		Format: gputypes.TextureFormatR8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})

	m, err := tex.Lock(image.Rect(4, 2, 8, 6))
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if m.Stride != 64 {
		t.Errorf("Stride = %d, want 64", m.Stride)
	}
	m.Pix[0] = 0xaa
	if _, err := tex.Lock(image.Rect(0, 0, 1, 1)); !errors.Is(err, device.ErrLockFailed) {
		t.Errorf("second Lock error = %v, want ErrLockFailed", err)
	}
	if err := tex.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if got := tex.shadow[2*64+4]; got != 0xaa {
		t.Errorf("shadow texel = %#x, want 0xaa", got)
	}
	if err := tex.Unlock(); !errors.Is(err, device.ErrNotLocked) {
		t.Errorf("second Unlock error = %v, want ErrNotLocked", err)
	}
	if _, err := tex.Lock(image.Rect(60, 0, 65, 1)); !errors.Is(err, device.ErrLockFailed) {
		t.Errorf("out of bounds Lock error = %v, want ErrLockFailed", err)
	}
}

func TestVertexBufferLock(t *testing.T) {
	d := newTestDevice(t)
	vb, err := d.CreateVertexBuffer(256, device.PoolDefault)
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	p, err := vb.Lock(32, 64, device.LockNoOverwrite)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if len(p) != 64 {
		t.Errorf("len = %d, want 64", len(p))
	}
	if err := vb.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := vb.Lock(200, 64, device.LockDiscard); !errors.Is(err, device.ErrLockFailed) {
		t.Errorf("overflowing Lock error = %v, want ErrLockFailed", err)
	}
	vb.Destroy()
	if _, err := vb.Lock(0, 4, device.LockDiscard); !errors.Is(err, device.ErrReleased) {
		t.Errorf("Lock after Destroy error = %v, want ErrReleased", err)
	}
}

func TestSetRenderTarget_RequiresAttachment(t *testing.T) {
	d := newTestDevice(t)
	sampled := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding,
	})
	if err := d.SetRenderTarget(sampled); !errors.Is(err, device.ErrNotSupported) {
		t.Errorf("SetRenderTarget(sampled) error = %v, want ErrNotSupported", err)
	}
	rt := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	if err := d.SetRenderTarget(rt); err != nil {
		t.Errorf("SetRenderTarget(rt) error = %v", err)
	}
}

func TestDraw_WithoutPipelines(t *testing.T) {
	d := newTestDevice(t)
	rt := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	vb, err := d.CreateVertexBuffer(64, device.PoolDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Draw(gputypes.PrimitiveTopologyTriangleList, 0, 3); !errors.Is(err, device.ErrNotSupported) {
		t.Errorf("Draw without target error = %v, want ErrNotSupported", err)
	}
	if err := d.SetRenderTarget(rt); err != nil {
		t.Fatal(err)
	}
	if err := d.BindVertexBuffer(vb, 32); err != nil {
		t.Fatal(err)
	}
	if err := d.Draw(gputypes.PrimitiveTopologyTriangleList, 0, 3); !errors.Is(err, device.ErrNotSupported) {
		t.Errorf("Draw without pipelines error = %v, want ErrNotSupported", err)
	}
}

func TestCopyFromTarget(t *testing.T) {
	d := newTestDevice(t)
	rt := createTexture(t, d, device.TextureDescriptor{
		Width:  8,
		Height: 8,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	})
	for i := range rt.shadow {
		rt.shadow[i] = byte(i)
	}
	dst := createTexture(t, d, device.TextureDescriptor{
		Label:  "readback",
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Pool:   device.PoolSystemMem,
	})
	if err := d.SetRenderTarget(rt); err != nil {
		t.Fatal(err)
	}
	if err := d.CopyFromTarget(dst, image.Rect(2, 3, 6, 7), image.Pt(0, 0)); err != nil {
		t.Fatalf("CopyFromTarget: %v", err)
	}
	if got, want := dst.shadow[0], rt.shadow[3*rt.stride+2*4]; got != want {
		t.Errorf("dst[0] = %d, want %d", got, want)
	}

	gray := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatR8Unorm,
	})
	if err := d.CopyFromTarget(gray, image.Rect(0, 0, 4, 4), image.Point{}); !errors.Is(err, device.ErrNotSupported) {
		t.Errorf("format mismatch error = %v, want ErrNotSupported", err)
	}
}

func TestLossAndReset(t *testing.T) {
	d := newTestDevice(t)
	tex := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatR8Unorm,
	})
	sys := createTexture(t, d, device.TextureDescriptor{
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatR8Unorm,
		Pool:   device.PoolSystemMem,
	})

	d.MarkLost()
	if err := d.Status(); !errors.Is(err, device.ErrDeviceLost) {
		t.Errorf("Status() = %v, want ErrDeviceLost", err)
	}
	if _, err := d.CreateVertexBuffer(32, device.PoolDefault); !errors.Is(err, device.ErrDeviceLost) {
		t.Errorf("CreateVertexBuffer while lost = %v, want ErrDeviceLost", err)
	}
	if err := d.Reset(); !errors.Is(err, device.ErrDeviceLost) {
		t.Errorf("Reset() before Rebind = %v, want ErrDeviceLost", err)
	}

	if err := d.Rebind(d.dev, d.queue); err != nil {
		t.Fatal(err)
	}
	if err := d.Status(); !errors.Is(err, device.ErrDeviceNotReset) {
		t.Errorf("Status() after Rebind = %v, want ErrDeviceNotReset", err)
	}
	if err := d.Reset(); !errors.Is(err, ErrLiveResources) {
		t.Errorf("Reset() with live texture = %v, want ErrLiveResources", err)
	}
	tex.Destroy()
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset() = %v", err)
	}
	if _, err := sys.Lock(image.Rect(0, 0, 1, 1)); err != nil {
		t.Errorf("system-memory texture after reset: %v", err)
	}
}

func TestCreateSwapChain_NotSupported(t *testing.T) {
	d := newTestDevice(t)
	_, err := d.CreateSwapChain(device.SwapChainDescriptor{Width: 4, Height: 4, Format: gputypes.TextureFormatBGRA8Unorm})
	if !errors.Is(err, device.ErrNotSupported) {
		t.Errorf("CreateSwapChain error = %v, want ErrNotSupported", err)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, a, want uint32
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{10, 4, 12},
	}
	for _, tt := range tests {
		if got := alignUp(tt.v, tt.a); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.v, tt.a, got, tt.want)
		}
	}
}
