// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
)

// Sizes of the shared helper resources.
const (
	// BlitTextureSize is the edge of the square blit texture.
	BlitTextureSize = 256

	// CachedDestWidth and CachedDestHeight are the size of the texture
	// holding destination pixels under LCD glyphs.
	CachedDestWidth  = 512
	CachedDestHeight = 32

	// GradientWidth is the number of texels of the gradient texture.
	GradientWidth = 256

	// LookupWidth and LookupHeight are the size of the lookup texture:
	// one 256-entry table per row.
	LookupWidth  = 256
	LookupHeight = 4

	// MaskTileSize is the edge of one tile of the mask texture.
	MaskTileSize = 32
	// MaskTilesX and MaskTilesY are the tile grid of the mask texture.
	MaskTilesX = 8
	MaskTilesY = 4
	// MaskWidth and MaskHeight are the mask texture size.
	MaskWidth  = MaskTileSize * MaskTilesX
	MaskHeight = MaskTileSize * MaskTilesY
)

// OpaqueMaskTile returns the origin of the mask tile that is kept fully
// opaque. It is the last tile of the grid.
func OpaqueMaskTile() image.Point {
	return image.Pt((MaskTilesX-1)*MaskTileSize, (MaskTilesY-1)*MaskTileSize)
}

type stockSlot int8

const (
	slotNone stockSlot = iota
	slotBlit
	slotBlitRT
	slotReadback
	slotLockableRT
	slotCachedDest
	slotGradient
	slotLookup
	slotMask
	slotVertexBuffer
	slotCount
)

func (m *Manager) stockTexture(slot stockSlot, desc device.TextureDescriptor, reuse func(*Resource) bool) (*Resource, error) {
	if r := m.stock[slot]; r != nil {
		if reuse == nil || reuse(r) {
			return r, nil
		}
		m.Release(r)
	}
	r, err := m.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	r.slot = slot
	m.stock[slot] = r
	return r, nil
}

// grows returns a reuse test accepting resources at least w by h in format f.
func grows(w, h int, f gputypes.TextureFormat) func(*Resource) bool {
	return func(r *Resource) bool {
		return r.width >= w && r.height >= h && r.format == f
	}
}

// BlitTexture returns the 256x256 BGRA texture used to stage blits.
func (m *Manager) BlitTexture() (*Resource, error) {
	return m.stockTexture(slotBlit, device.TextureDescriptor{
		Label:  "blit",
		Width:  BlitTextureSize,
		Height: BlitTextureSize,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, nil)
}

// BlitRTTexture returns a render-target texture of at least w by h. A
// cached one that is too small is replaced by one covering both sizes.
func (m *Manager) BlitRTTexture(w, h int) (*Resource, error) {
	if r := m.stock[slotBlitRT]; r != nil {
		w, h = max(w, r.width), max(h, r.height)
	}
	return m.stockTexture(slotBlitRT, device.TextureDescriptor{
		Label:  "blit-rt",
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	}, grows(w, h, gputypes.TextureFormatBGRA8Unorm))
}

// ReadbackSurface returns a system-memory surface of at least w by h used
// to read render-target pixels back to the CPU.
func (m *Manager) ReadbackSurface(w, h int) (*Resource, error) {
	if r := m.stock[slotReadback]; r != nil {
		w, h = max(w, r.width), max(h, r.height)
	}
	return m.stockTexture(slotReadback, device.TextureDescriptor{
		Label:  "readback",
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageCopyDst,
		Pool:   device.PoolSystemMem,
	}, grows(w, h, gputypes.TextureFormatBGRA8Unorm))
}

// LockableRTSurface returns a CPU-lockable render target of at least w by
// h in format f. A cached surface of another format is replaced.
func (m *Manager) LockableRTSurface(w, h int, f gputypes.TextureFormat) (*Resource, error) {
	if r := m.stock[slotLockableRT]; r != nil && r.format == f {
		w, h = max(w, r.width), max(h, r.height)
	}
	return m.stockTexture(slotLockableRT, device.TextureDescriptor{
		Label:  "lockable-rt",
		Width:  w,
		Height: h,
		Format: f,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	}, grows(w, h, f))
}

// CachedDestTexture returns the texture holding a copy of the destination
// under LCD glyphs. It is recreated when the format changes.
func (m *Manager) CachedDestTexture(f gputypes.TextureFormat) (*Resource, error) {
	return m.stockTexture(slotCachedDest, device.TextureDescriptor{
		Label:  "cached-dest",
		Width:  CachedDestWidth,
		Height: CachedDestHeight,
		Format: f,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, grows(CachedDestWidth, CachedDestHeight, f))
}

// GradientTexture returns the 256x1 texture multi-stop gradients are
// written into.
func (m *Manager) GradientTexture() (*Resource, error) {
	return m.stockTexture(slotGradient, device.TextureDescriptor{
		Label:  "gradient",
		Width:  GradientWidth,
		Height: 1,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, nil)
}

// LookupTexture returns the 256x4 single-channel lookup table texture.
func (m *Manager) LookupTexture() (*Resource, error) {
	return m.stockTexture(slotLookup, device.TextureDescriptor{
		Label:  "lookup",
		Width:  LookupWidth,
		Height: LookupHeight,
		Format: gputypes.TextureFormatR8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, nil)
}

// MaskTexture returns the tiled alpha mask texture. On creation its last
// tile is filled with 0xff so unmasked fills can sample it.
func (m *Manager) MaskTexture() (*Resource, error) {
	if r := m.stock[slotMask]; r != nil {
		return r, nil
	}
	r, err := m.stockTexture(slotMask, device.TextureDescriptor{
		Label:  "mask",
		Width:  MaskWidth,
		Height: MaskHeight,
		Format: gputypes.TextureFormatR8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}, nil)
	if err != nil {
		return nil, err
	}
	if err := fillOpaqueTile(r.texture); err != nil {
		m.Release(r)
		return nil, err
	}
	return r, nil
}

func fillOpaqueTile(tex device.Texture) error {
	p := OpaqueMaskTile()
	mp, err := tex.Lock(image.Rect(p.X, p.Y, p.X+MaskTileSize, p.Y+MaskTileSize))
	if err != nil {
		return fmt.Errorf("resource: seed opaque mask tile: %w", err)
	}
	for y := 0; y < MaskTileSize; y++ {
		row := mp.Pix[y*mp.Stride : y*mp.Stride+MaskTileSize]
		for i := range row {
			row[i] = 0xff
		}
	}
	return tex.Unlock()
}

// VertexBuffer returns the shared dynamic vertex buffer sized for one
// full batch ring. It implements batch.BufferSource.
func (m *Manager) VertexBuffer() (device.VertexBuffer, error) {
	if r := m.stock[slotVertexBuffer]; r != nil {
		return r.buffer, nil
	}
	r, err := m.CreateVertexBuffer(batch.MaxVertices*batch.VertexSize, device.PoolDefault)
	if err != nil {
		return nil, err
	}
	r.slot = slotVertexBuffer
	m.stock[slotVertexBuffer] = r
	return r.buffer, nil
}

var _ batch.BufferSource = (*Manager)(nil)
