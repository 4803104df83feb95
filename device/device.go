// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// Pool classifies where a resource lives and whether it survives a reset.
type Pool uint8

const (
	// PoolDefault resources live in video memory and are lost on reset.
	PoolDefault Pool = iota

	// PoolManaged resources are backed by a system copy and survive a reset.
	PoolManaged

	// PoolSystemMem resources live in system memory.
	PoolSystemMem
)

// String returns the pool name.
func (p Pool) String() string {
	switch p {
	case PoolDefault:
		return "default"
	case PoolManaged:
		return "managed"
	case PoolSystemMem:
		return "sysmem"
	default:
		return fmt.Sprintf("Pool(%d)", p)
	}
}

// LockMode selects how a vertex buffer range is locked.
type LockMode uint8

const (
	// LockDiscard tells the device the previous contents are no longer needed.
	LockDiscard LockMode = iota

	// LockNoOverwrite promises not to touch vertices referenced by pending draws.
	LockNoOverwrite
)

// String returns the lock mode name.
func (m LockMode) String() string {
	if m == LockNoOverwrite {
		return "no-overwrite"
	}
	return "discard"
}

// RenderState is the fixed-function configuration a batch is drawn with.
// The shaders behind each state are owned by the backend.
type RenderState uint8

const (
	// StateReset means no state has been selected yet.
	StateReset RenderState = iota

	// StateColor draws untextured, vertex-colored primitives.
	StateColor

	// StateMask modulates the color by an alpha mask in texture slot 0.
	StateMask

	// StateGlyph modulates the color by a grayscale glyph cache in slot 0.
	StateGlyph

	// StateLCD composites LCD glyphs in slot 0 against the cached
	// destination in slot 1 with gamma tables from slot 2.
	StateLCD

	// StateTexture draws textured quads without color modulation.
	StateTexture

	// StateGradient samples a multi-stop gradient from slot 0.
	StateGradient

	// StateLookup remaps texels in slot 0 through the table in slot 1.
	StateLookup
)

var renderStateNames = [...]string{
	StateReset:    "reset",
	StateColor:    "color",
	StateMask:     "mask",
	StateGlyph:    "glyph",
	StateLCD:      "lcd",
	StateTexture:  "texture",
	StateGradient: "gradient",
	StateLookup:   "lookup",
}

// String returns the state name.
func (s RenderState) String() string {
	if int(s) < len(renderStateNames) {
		return renderStateNames[s]
	}
	return fmt.Sprintf("RenderState(%d)", s)
}

// TextureDescriptor describes a texture or render-target surface.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the size in pixels.
	Width  int
	Height int

	// Format is the pixel format. R8Unorm, RGBA8Unorm and BGRA8Unorm are
	// the formats every backend must support.
	Format gputypes.TextureFormat

	// Usage lists the intended uses. RenderAttachment marks render targets.
	Usage gputypes.TextureUsage

	// Pool selects the memory pool.
	Pool Pool
}

// Validate checks that the descriptor can be allocated.
func (d *TextureDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if BytesPerPixel(d.Format) == 0 {
		return fmt.Errorf("%w: unsupported format %v", ErrInvalidDescriptor, d.Format)
	}
	return nil
}

// SwapChainDescriptor describes a presentable swap chain.
type SwapChainDescriptor struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat
}

// BytesPerPixel returns the size of one texel of the formats gputext uses,
// or 0 for formats it does not handle.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// Mapping is a CPU view of a locked texture region.
// Pix[0] is the top-left texel of the locked rectangle and rows are Stride
// bytes apart.
type Mapping struct {
	Pix    []byte
	Stride int
}

// Texture is a 2D texture or render-target surface.
type Texture interface {
	// Width returns the width in pixels.
	Width() int

	// Height returns the height in pixels.
	Height() int

	// Format returns the pixel format.
	Format() gputypes.TextureFormat

	// Pool returns the memory pool the texture was allocated in.
	Pool() Pool

	// Lock maps r for exclusive CPU access until Unlock.
	// Only one region may be locked at a time.
	Lock(r image.Rectangle) (Mapping, error)

	// Unlock commits the locked region.
	Unlock() error

	// Destroy releases the texture. Destroy is idempotent.
	Destroy()
}

// VertexBuffer is a dynamic vertex buffer.
type VertexBuffer interface {
	// Size returns the size in bytes.
	Size() int

	// Lock maps size bytes starting at offset.
	Lock(offset, size int, mode LockMode) ([]byte, error)

	// Unlock commits the locked range.
	Unlock() error

	// Destroy releases the buffer. Destroy is idempotent.
	Destroy()
}

// SwapChain presents a back buffer to a window.
type SwapChain interface {
	// BackBuffer returns the texture rendered into this frame.
	BackBuffer() Texture

	// Present shows the back buffer.
	Present() error

	// Destroy releases the swap chain. Destroy is idempotent.
	Destroy()
}

// Device is the GPU device contract.
type Device interface {
	// CreateTexture allocates a texture or render-target surface.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateVertexBuffer allocates a dynamic vertex buffer of size bytes.
	CreateVertexBuffer(size int, pool Pool) (VertexBuffer, error)

	// CreateSwapChain allocates a swap chain.
	CreateSwapChain(desc SwapChainDescriptor) (SwapChain, error)

	// SetRenderTarget selects the texture subsequent draws render into.
	SetRenderTarget(target Texture) error

	// SetRenderState selects the configuration for subsequent draws.
	SetRenderState(state RenderState) error

	// BindTexture binds tex to a sampler slot. A nil tex unbinds the slot.
	BindTexture(slot int, tex Texture) error

	// BindVertexBuffer selects the vertex stream for subsequent draws.
	BindVertexBuffer(vb VertexBuffer, stride int) error

	// Draw issues one draw call of vertexCount vertices starting at firstVertex.
	Draw(topology gputypes.PrimitiveTopology, firstVertex, vertexCount int) error

	// CopyFromTarget copies src of the current render target into dst at dp.
	CopyFromTarget(dst Texture, src image.Rectangle, dp image.Point) error

	// Status returns nil, ErrDeviceLost or ErrDeviceNotReset.
	Status() error

	// Reset recreates the device after a loss.
	Reset() error
}
