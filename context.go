package gputext

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/lifecycle"
	"github.com/gogpu/gputext/resource"
)

// Context renders glyph lists and masks into surfaces of one device.
//
// A Context owns the device's glyph caches, vertex batcher and helper
// resources. It is not safe for concurrent use; use a RenderQueue to
// drive it from several goroutines.
type Context struct {
	dev      device.Device
	monitor  *lifecycle.Monitor
	tracker  *lifecycle.Tracker
	unlisten func()
	res      *resource.Manager
	batcher  *batch.Batcher
	opts     options
	log      *slog.Logger

	gray cacheSlot
	lcd  cacheSlot

	// lcdBGR is the subpixel order the LCD cache contents were uploaded in.
	lcdBGR bool

	surface   *lifecycle.Surface
	targetSet bool
	owned     map[*resource.Resource]*lifecycle.Surface

	state device.RenderState
	bound [maxSlots]device.Texture

	color    uint32
	gradient *gradientPaint

	// lookup is the contrast whose gamma tables lookupRes holds, or
	// lookupCustom when it holds a user table.
	lookup    int
	lookupRes *resource.Resource

	mask  tileRing
	blit  tileRing
	dest  destCache
	store *GlyphStore

	closed bool
}

const maxSlots = 3

type cacheSlot struct {
	cache       *glyphcache.Cache
	res         *resource.Resource
	unavailable bool
}

// NewContext returns a context drawing with dev. Device loss is reported
// to the tracker monitor keeps for dev, shared with every other context on
// the same device. Tracker options come from the first context.
func NewContext(dev device.Device, monitor *lifecycle.Monitor, opts ...Option) (*Context, error) {
	if dev == nil {
		return nil, fmt.Errorf("gputext: nil device")
	}
	if monitor == nil {
		monitor = lifecycle.NewMonitor()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	res := resource.NewManager(dev)
	c := &Context{
		dev:     dev,
		monitor: monitor,
		tracker: monitor.Acquire(dev, o.trackerOptions()...),
		res:     res,
		batcher: batch.New(dev, res),
		opts:    o,
		log:     o.logger,
		owned:   make(map[*resource.Resource]*lifecycle.Surface),
		color:   0xff000000,
		mask:    tileRing{tiles: resource.MaskTilesX*resource.MaskTilesY - 1},
		blit:    tileRing{tiles: (resource.BlitTextureSize / tileSize) * (resource.BlitTextureSize / tileSize)},
	}
	res.OnRelease(c.resourceReleased)
	c.unlisten = c.tracker.AddListener(lifecycle.Listener{
		DeviceLost:     c.ResetContextOnDeviceLost,
		DeviceRestored: func() { c.logger().Info("gputext: device restored") },
	})
	registerDevice(dev)
	return c, nil
}

func (c *Context) logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}

// Device returns the device the context draws with.
func (c *Context) Device() device.Device { return c.dev }

// Tracker returns the device lifecycle tracker.
func (c *Context) Tracker() *lifecycle.Tracker { return c.tracker }

// Resources returns the resource manager.
func (c *Context) Resources() *resource.Manager { return c.res }

// GrayscaleCache returns the grayscale glyph cache, or nil before first use.
func (c *Context) GrayscaleCache() *glyphcache.Cache { return c.gray.cache }

// LCDCache returns the LCD glyph cache, or nil before first use.
func (c *Context) LCDCache() *glyphcache.Cache { return c.lcd.cache }

// PendingVertices returns the number of batched vertices not yet drawn.
func (c *Context) PendingVertices() int { return c.batcher.PendingVertices() }

// SetColor sets a solid premultiplied ARGB paint.
func (c *Context) SetColor(argb uint32) {
	c.color = argb
	c.gradient = nil
	c.batcher.SetColor(argb)
}

// check reports device loss found in err to the tracker and returns err.
func (c *Context) check(err error) error {
	return c.tracker.Check(err)
}

// usable returns an error when the context cannot draw right now.
func (c *Context) usable() error {
	if c.closed {
		return ErrClosed
	}
	if c.tracker.State() != lifecycle.StateOK {
		return device.ErrDeviceLost
	}
	return nil
}

// Flush draws every batched primitive.
func (c *Context) Flush() error {
	if err := c.usable(); err != nil {
		return err
	}
	return c.check(c.batcher.Render(batch.RenderReset))
}

func (c *Context) flush() error {
	return c.batcher.Render(batch.RenderAppend)
}

// NewSurface creates a w by h render target owned by the context. The
// surface is recreated on demand after its texture is released.
func (c *Context) NewSurface(w, h int) (*lifecycle.Surface, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	desc := device.TextureDescriptor{
		Label:  "surface",
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
	}
	var s *lifecycle.Surface
	create := func() (device.Texture, error) {
		r, err := c.res.CreateTexture(desc)
		if err != nil {
			return nil, err
		}
		c.owned[r] = s
		return r.Texture(), nil
	}
	r, err := c.res.CreateTexture(desc)
	if err != nil {
		return nil, c.check(err)
	}
	s = c.tracker.RegisterSurface(r.Texture(), create)
	c.owned[r] = s
	return s, nil
}

// SetSurface selects the destination of subsequent drawing. Pending
// primitives for the previous surface are drawn first.
func (c *Context) SetSurface(s *lifecycle.Surface) error {
	if err := c.usable(); err != nil {
		return err
	}
	if s == c.surface && c.targetSet && !s.Lost() {
		return nil
	}
	if err := c.flush(); err != nil {
		return c.check(err)
	}
	c.surface = s
	c.targetSet = false
	return c.bindTarget()
}

// bindTarget makes the current surface the device render target,
// recreating it if it was lost.
func (c *Context) bindTarget() error {
	s := c.surface
	if s == nil {
		return ErrNoSurface
	}
	if s.Lost() {
		if err := s.Revalidate(); err != nil {
			return c.check(err)
		}
		c.targetSet = false
	}
	if c.targetSet {
		return nil
	}
	if err := c.dev.SetRenderTarget(s.Target()); err != nil {
		return c.check(err)
	}
	c.targetSet = true
	c.dest.valid = false
	return nil
}

// setState selects a render state and its textures, drawing pending
// primitives first when either changes.
func (c *Context) setState(state device.RenderState, textures ...device.Texture) error {
	var want [maxSlots]device.Texture
	copy(want[:], textures)
	if c.state == state && c.bound == want {
		return nil
	}
	if err := c.flush(); err != nil {
		return err
	}
	if state != device.StateLCD {
		c.dest.valid = false
	}
	if c.state != state {
		if err := c.dev.SetRenderState(state); err != nil {
			c.state = device.StateReset
			return err
		}
		c.state = state
	}
	for i := range want {
		if want[i] == c.bound[i] {
			continue
		}
		if err := c.dev.BindTexture(i, want[i]); err != nil {
			c.bound = [maxSlots]device.Texture{}
			return err
		}
		c.bound[i] = want[i]
	}
	return nil
}

// resetState forgets device state so it is set again before the next draw.
func (c *Context) resetState() {
	c.state = device.StateReset
	c.bound = [maxSlots]device.Texture{}
	c.targetSet = false
	c.dest.valid = false
	c.lookup = 0
	c.lookupRes = nil
	c.mask.next = 0
	c.blit.next = 0
	if c.gradient != nil {
		c.gradient.uploaded = false
	}
}

// resourceReleased keeps caches and surfaces consistent with released
// resources.
func (c *Context) resourceReleased(r *resource.Resource) {
	for _, slot := range []*cacheSlot{&c.gray, &c.lcd} {
		if slot.res == r {
			slot.cache.SetTexture(nil)
			slot.res = nil
		}
	}
	if s, ok := c.owned[r]; ok {
		delete(c.owned, r)
		if s != nil {
			s.Invalidate()
		}
		if s == c.surface {
			c.targetSet = false
		}
	}
	for i, t := range c.bound {
		if t != nil && t == r.Texture() {
			c.bound[i] = nil
		}
	}
}

// FlushSurface draws pending primitives targeting s, detaches it and
// releases its texture if the context owns it. The surface is recreated
// the next time it is selected.
func (c *Context) FlushSurface(s *lifecycle.Surface) error {
	if s == nil {
		return nil
	}
	var err error
	if s == c.surface {
		if c.tracker.State() == lifecycle.StateOK {
			err = c.check(c.batcher.Render(batch.RenderReset))
		} else {
			c.batcher.Discard()
		}
		c.surface = nil
		c.targetSet = false
	}
	for r, owner := range c.owned {
		if owner == s {
			c.res.Release(r)
		}
	}
	return err
}

// DisposeSurface flushes s and stops tracking it.
func (c *Context) DisposeSurface(s *lifecycle.Surface) error {
	err := c.FlushSurface(s)
	c.tracker.UnregisterSurface(s)
	return err
}

// ReleaseDefaultPoolResources draws pending primitives and releases every
// device resource the context holds. Caches, helper textures and owned
// surfaces are recreated lazily.
func (c *Context) ReleaseDefaultPoolResources() error {
	var err error
	if c.tracker.State() == lifecycle.StateOK {
		err = c.check(c.batcher.Render(batch.RenderReset))
	}
	c.batcher.Discard()
	c.resetState()
	c.res.ReleaseDefaultPoolResources()
	c.gray.unavailable = false
	c.lcd.unavailable = false
	return err
}

// ResetContextOnDeviceLost drops pending primitives and releases every
// device resource without drawing. The tracker calls it when the device
// is lost.
func (c *Context) ResetContextOnDeviceLost() {
	c.logger().Info("gputext: device lost, releasing resources",
		"resources", c.res.Len(), "pending_vertices", c.batcher.PendingVertices())
	c.batcher.Discard()
	c.resetState()
	c.res.ReleaseDefaultPoolResources()
	c.gray.unavailable = false
	c.lcd.unavailable = false
}

// Restore attempts to recover a lost device. See lifecycle.Tracker.Restore.
func (c *Context) Restore() (lifecycle.Result, error) {
	res, err := c.tracker.Restore()
	if res == lifecycle.Restored {
		c.resetState()
	}
	return res, err
}

// SetGlyphStore attaches store so Close clears it.
func (c *Context) SetGlyphStore(store *GlyphStore) {
	c.store = store
}

// Close releases every resource. The context cannot be used afterwards.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	var err error
	if c.tracker.State() == lifecycle.StateOK {
		err = c.check(c.batcher.Render(batch.RenderReset))
	}
	if c.store != nil {
		c.store.Clear()
	}
	c.batcher.Discard()
	for _, s := range c.owned {
		c.tracker.UnregisterSurface(s)
	}
	c.res.ReleaseAll()
	if c.surface != nil {
		c.tracker.UnregisterSurface(c.surface)
	}
	c.unlisten()
	c.monitor.Release(c.tracker)
	c.closed = true
	unregisterDevice(c.dev)
	return err
}
