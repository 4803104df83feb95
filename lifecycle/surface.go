// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lifecycle

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputext/device"
)

// Surface is a render target whose contents die with the device.
type Surface struct {
	id      uint64
	tracker *Tracker
	create  func() (device.Texture, error)

	lost atomic.Bool

	mu     sync.Mutex
	target device.Texture
}

// RegisterSurface starts tracking target. create recreates the target
// after a device reset; it may be nil for surfaces that cannot be
// recreated.
func (t *Tracker) RegisterSurface(target device.Texture, create func() (device.Texture, error)) *Surface {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	s := &Surface{id: t.nextID, tracker: t, create: create, target: target}
	if t.state != StateOK {
		s.lost.Store(true)
	}
	t.surfaces[s.id] = s
	return s
}

// UnregisterSurface stops tracking s.
func (t *Tracker) UnregisterSurface(s *Surface) {
	if s == nil {
		return
	}
	t.mu.Lock()
	delete(t.surfaces, s.id)
	t.mu.Unlock()
}

// Surfaces returns the number of tracked surfaces.
func (t *Tracker) Surfaces() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.surfaces)
}

// ID returns the surface identifier, unique per tracker.
func (s *Surface) ID() uint64 { return s.id }

// Lost reports whether the surface contents were lost. Safe for
// concurrent use.
func (s *Surface) Lost() bool { return s.lost.Load() }

// Target returns the current render target, or nil while lost.
func (s *Surface) Target() device.Texture {
	if s.Lost() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Invalidate marks the surface lost, for example after its texture was
// released. The next Revalidate recreates it.
func (s *Surface) Invalidate() { s.lost.Store(true) }

// Revalidate recreates a lost surface once the device is OK again.
func (s *Surface) Revalidate() error {
	if !s.Lost() {
		return nil
	}
	if st := s.tracker.State(); st != StateOK {
		return fmt.Errorf("lifecycle: revalidate surface %d: %w", s.id, device.ErrDeviceLost)
	}
	if s.create == nil {
		return fmt.Errorf("lifecycle: surface %d cannot be recreated: %w", s.id, device.ErrNotSupported)
	}
	tex, err := s.create()
	if err != nil {
		return fmt.Errorf("lifecycle: recreate surface %d: %w", s.id, err)
	}
	s.mu.Lock()
	s.target = tex
	s.mu.Unlock()
	s.lost.Store(false)
	return nil
}
