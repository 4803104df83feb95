// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/device"
)

// Kind classifies a managed resource.
type Kind uint8

// Resource kinds.
const (
	KindTexture Kind = iota
	KindRenderTarget
	KindSwapChain
	KindVertexBuffer
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindRenderTarget:
		return "render-target"
	case KindSwapChain:
		return "swap-chain"
	case KindVertexBuffer:
		return "vertex-buffer"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Resource is one device object tracked by a Manager.
type Resource struct {
	kind Kind
	pool device.Pool

	texture   device.Texture
	buffer    device.VertexBuffer
	swapChain device.SwapChain

	width, height int
	format        gputypes.TextureFormat
	bytes         int

	mgr        *Manager
	prev, next *Resource
	slot       stockSlot
	released   bool
}

// TextureResource wraps tex. Textures with the render-attachment usage
// are render targets.
func TextureResource(tex device.Texture, usage gputypes.TextureUsage) *Resource {
	kind := KindTexture
	if usage&gputypes.TextureUsageRenderAttachment != 0 {
		kind = KindRenderTarget
	}
	return &Resource{
		kind:    kind,
		pool:    tex.Pool(),
		texture: tex,
		width:   tex.Width(),
		height:  tex.Height(),
		format:  tex.Format(),
		bytes:   tex.Width() * tex.Height() * device.BytesPerPixel(tex.Format()),
	}
}

// VertexBufferResource wraps vb.
func VertexBufferResource(vb device.VertexBuffer, pool device.Pool) *Resource {
	return &Resource{kind: KindVertexBuffer, pool: pool, buffer: vb, bytes: vb.Size()}
}

// SwapChainResource wraps sc. Swap chains always live in the default pool.
func SwapChainResource(sc device.SwapChain) *Resource {
	r := &Resource{kind: KindSwapChain, pool: device.PoolDefault, swapChain: sc}
	if bb := sc.BackBuffer(); bb != nil {
		r.width, r.height, r.format = bb.Width(), bb.Height(), bb.Format()
		r.bytes = r.width * r.height * device.BytesPerPixel(r.format)
	}
	return r
}

// Kind returns the resource kind.
func (r *Resource) Kind() Kind { return r.kind }

// Pool returns the memory pool.
func (r *Resource) Pool() device.Pool { return r.pool }

// Texture returns the texture, or nil for other kinds.
func (r *Resource) Texture() device.Texture { return r.texture }

// VertexBuffer returns the buffer, or nil for other kinds.
func (r *Resource) VertexBuffer() device.VertexBuffer { return r.buffer }

// SwapChain returns the swap chain, or nil for other kinds.
func (r *Resource) SwapChain() device.SwapChain { return r.swapChain }

// Size returns the width and height of image resources.
func (r *Resource) Size() (w, h int) { return r.width, r.height }

// Format returns the pixel format of image resources.
func (r *Resource) Format() gputypes.TextureFormat { return r.format }

// Bytes returns the approximate memory size.
func (r *Resource) Bytes() int { return r.bytes }

// Released reports whether the resource was destroyed.
func (r *Resource) Released() bool { return r.released }

// String returns a representation for logs.
func (r *Resource) String() string {
	if r.kind == KindVertexBuffer {
		return fmt.Sprintf("%v(%d bytes, %v)", r.kind, r.bytes, r.pool)
	}
	return fmt.Sprintf("%v(%dx%d %v, %v)", r.kind, r.width, r.height, r.format, r.pool)
}

func (r *Resource) destroy() {
	switch {
	case r.texture != nil:
		r.texture.Destroy()
	case r.buffer != nil:
		r.buffer.Destroy()
	case r.swapChain != nil:
		r.swapChain.Destroy()
	}
	r.released = true
}
