// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"

	"github.com/gogpu/gputext/device"
)

// Stats contains resource usage counters.
type Stats struct {
	// Live is the number of managed resources.
	Live int
	// Bytes is the approximate memory held by them.
	Bytes int
	// Released counts resources destroyed through the manager.
	Released uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Resources[%d live, %d KB, %d released]", s.Live, s.Bytes/1024, s.Released)
}

// Manager tracks every device resource created for one device so they can
// be destroyed together before a device reset or at shutdown. It also
// caches the shared helper resources used by the text and mask pipelines.
//
// Manager is not safe for concurrent use.
type Manager struct {
	dev device.Device

	head *Resource
	n    int

	bytes    int
	released uint64

	stock     [slotCount]*Resource
	onRelease []func(*Resource)
}

// NewManager returns an empty manager for dev.
func NewManager(dev device.Device) *Manager {
	return &Manager{dev: dev}
}

// Device returns the managed device.
func (m *Manager) Device() device.Device { return m.dev }

// Len returns the number of managed resources.
func (m *Manager) Len() int { return m.n }

// Stats returns the manager counters.
func (m *Manager) Stats() Stats {
	return Stats{Live: m.n, Bytes: m.bytes, Released: m.released}
}

// Resources returns the managed resources, newest first.
func (m *Manager) Resources() []*Resource {
	out := make([]*Resource, 0, m.n)
	for r := m.head; r != nil; r = r.next {
		out = append(out, r)
	}
	return out
}

// OnRelease registers fn to be called after a resource is destroyed.
func (m *Manager) OnRelease(fn func(*Resource)) {
	m.onRelease = append(m.onRelease, fn)
}

// Add starts tracking r. Adding a tracked or released resource does nothing.
func (m *Manager) Add(r *Resource) {
	if r == nil || r.mgr != nil || r.released {
		return
	}
	r.mgr = m
	r.prev = nil
	r.next = m.head
	if m.head != nil {
		m.head.prev = r
	}
	m.head = r
	m.n++
	m.bytes += r.bytes
}

// Release destroys r and stops tracking it. Releasing a resource the
// manager does not own only destroys it.
func (m *Manager) Release(r *Resource) {
	if r == nil || r.released {
		return
	}
	if r.mgr == m {
		m.unlink(r)
	}
	if r.slot != slotNone && m.stock[r.slot] == r {
		m.stock[r.slot] = nil
	}
	r.destroy()
	m.released++
	slogger().Debug("resource: released", "resource", r.String())
	for _, fn := range m.onRelease {
		fn(r)
	}
}

func (m *Manager) unlink(r *Resource) {
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		m.head = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	}
	r.prev, r.next, r.mgr = nil, nil, nil
	m.n--
	m.bytes -= r.bytes
}

// ReleaseAll destroys every managed resource.
func (m *Manager) ReleaseAll() {
	n := m.n
	for m.head != nil {
		m.Release(m.head)
	}
	if n > 0 {
		slogger().Info("resource: released all", "count", n)
	}
}

// ReleaseDefaultPoolResources destroys the resources that do not survive a
// device reset. Every managed resource is released, including managed and
// system-memory ones, so the device is reset with nothing alive.
func (m *Manager) ReleaseDefaultPoolResources() {
	n := m.n
	for m.head != nil {
		m.Release(m.head)
	}
	slogger().Info("resource: released resources before reset", "count", n)
}

// CreateTexture creates and tracks a texture.
func (m *Manager) CreateTexture(desc device.TextureDescriptor) (*Resource, error) {
	tex, err := m.dev.CreateTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("resource: create %dx%d %v texture: %w", desc.Width, desc.Height, desc.Format, err)
	}
	r := TextureResource(tex, desc.Usage)
	m.Add(r)
	return r, nil
}

// CreateVertexBuffer creates and tracks a vertex buffer.
func (m *Manager) CreateVertexBuffer(size int, pool device.Pool) (*Resource, error) {
	vb, err := m.dev.CreateVertexBuffer(size, pool)
	if err != nil {
		return nil, fmt.Errorf("resource: create %d byte vertex buffer: %w", size, err)
	}
	r := VertexBufferResource(vb, pool)
	m.Add(r)
	return r, nil
}

// CreateSwapChain creates and tracks a swap chain.
func (m *Manager) CreateSwapChain(desc device.SwapChainDescriptor) (*Resource, error) {
	sc, err := m.dev.CreateSwapChain(desc)
	if err != nil {
		return nil, fmt.Errorf("resource: create swap chain: %w", err)
	}
	r := SwapChainResource(sc)
	m.Add(r)
	return r, nil
}
