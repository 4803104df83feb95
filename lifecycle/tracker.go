// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputext/device"
)

// DefaultRetryInterval is the minimum time between restore attempts.
const DefaultRetryInterval = 100 * time.Millisecond

// State is the device state as seen by a Tracker.
type State uint8

// Device states.
const (
	StateOK State = iota
	StateLost
	StateNotReset
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateLost:
		return "lost"
	case StateNotReset:
		return "not-reset"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Result is the outcome of Restore.
type Result uint8

const (
	// Restored means the device is usable.
	Restored Result = iota
	// Pending means the device is still lost; try again later.
	Pending
	// Deferred means recovery was not attempted because the window is
	// full-screen and minimized.
	Deferred
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Restored:
		return "restored"
	case Pending:
		return "pending"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Result(%d)", r)
	}
}

// WindowState describes the window owning the device.
type WindowState struct {
	Fullscreen bool
	Minimized  bool
}

// Listener receives device lifecycle notifications. Either field may be nil.
type Listener struct {
	// DeviceLost is called once when the device is first seen lost.
	DeviceLost func()
	// DeviceRestored is called after a successful reset.
	DeviceRestored func()
}

// Option configures a Tracker.
type Option func(*trackerOptions)

type trackerOptions struct {
	retryInterval time.Duration
	windowState   func() WindowState
	now           func() time.Time
}

// WithRetryInterval sets the minimum time between restore attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *trackerOptions) {
		if d >= 0 {
			o.retryInterval = d
		}
	}
}

// WithWindowState sets the function reporting the owning window's state.
func WithWindowState(fn func() WindowState) Option {
	return func(o *trackerOptions) {
		o.windowState = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *trackerOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Monitor aggregates the trackers of a process. Contexts sharing a device
// share its tracker through Acquire, so a loss seen by one reaches the
// surfaces of all.
type Monitor struct {
	pending atomic.Int32

	mu     sync.Mutex
	shared map[device.Device]*Tracker
}

// NewMonitor returns a monitor with no trackers.
func NewMonitor() *Monitor {
	return &Monitor{shared: make(map[device.Device]*Tracker)}
}

// RecoveryPending reports whether any tracker is waiting for its device
// to be restored.
func (m *Monitor) RecoveryPending() bool {
	return m.pending.Load() > 0
}

// NewTracker returns an unshared tracker for dev in the OK state.
func (m *Monitor) NewTracker(dev device.Device, opts ...Option) *Tracker {
	o := trackerOptions{
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tracker{
		monitor:  m,
		dev:      dev,
		opts:     o,
		surfaces: make(map[uint64]*Surface),
	}
}

// Acquire returns the tracker shared by every user of dev, creating it
// with opts on first use. Options of later calls are ignored. Each
// Acquire must be paired with a Release.
func (m *Monitor) Acquire(dev device.Device, opts ...Option) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.shared[dev]
	if !ok {
		t = m.NewTracker(dev, opts...)
		m.shared[dev] = t
	}
	t.refs++
	return t
}

// Release drops one reference taken by Acquire. The last release forgets
// the tracker; a tracker still waiting for recovery then stops counting
// towards RecoveryPending.
func (m *Monitor) Release(t *Tracker) {
	m.mu.Lock()
	if t.refs == 0 || m.shared[t.dev] != t {
		m.mu.Unlock()
		return
	}
	t.refs--
	last := t.refs == 0
	if last {
		delete(m.shared, t.dev)
	}
	m.mu.Unlock()

	if last {
		t.mu.Lock()
		t.detached = true
		if t.counted {
			t.counted = false
			m.pending.Add(-1)
		}
		t.mu.Unlock()
	}
}

// Tracker follows the state of one device.
type Tracker struct {
	monitor *Monitor
	dev     device.Device
	opts    trackerOptions

	// refs is guarded by monitor.mu.
	refs int

	mu          sync.Mutex
	state       State
	lastAttempt time.Time
	surfaces    map[uint64]*Surface
	nextID      uint64
	listeners   []listenerEntry
	nextListen  uint64
	// counted is set while the tracker adds to monitor.pending.
	counted  bool
	detached bool
}

type listenerEntry struct {
	id uint64
	l  Listener
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// AddListener registers l and returns a function removing it.
func (t *Tracker) AddListener(l Listener) (remove func()) {
	t.mu.Lock()
	t.nextListen++
	id := t.nextListen
	t.listeners = append(t.listeners, listenerEntry{id: id, l: l})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, e := range t.listeners {
			if e.id == id {
				t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

func (t *Tracker) listenersLocked() []Listener {
	out := make([]Listener, len(t.listeners))
	for i, e := range t.listeners {
		out[i] = e.l
	}
	return out
}

// Check inspects err and, if it reports a lost device, marks the tracker
// lost. It returns err unchanged.
func (t *Tracker) Check(err error) error {
	if err != nil && device.IsLost(err) {
		t.MarkLost()
	}
	return err
}

// MarkLost moves an OK tracker to Lost, marks every surface lost and
// notifies listeners. It does nothing when the device is already lost.
func (t *Tracker) MarkLost() {
	t.mu.Lock()
	if t.state != StateOK {
		t.mu.Unlock()
		return
	}
	t.state = StateLost
	if !t.detached {
		t.counted = true
		t.monitor.pending.Add(1)
	}
	for _, s := range t.surfaces {
		s.lost.Store(true)
	}
	n := len(t.surfaces)
	listeners := t.listenersLocked()
	t.mu.Unlock()

	slogger().Info("lifecycle: device lost", "surfaces", n)
	for _, l := range listeners {
		if l.DeviceLost != nil {
			l.DeviceLost()
		}
	}
}

// Restore tries to bring a lost device back. It returns Restored when the
// device is usable, Pending when it is still lost or the last attempt was
// too recent, and Deferred while the window is full-screen and minimized.
// Errors other than device loss from the reset are returned with Pending.
func (t *Tracker) Restore() (Result, error) {
	t.mu.Lock()
	if t.state == StateOK {
		t.mu.Unlock()
		return Restored, nil
	}
	if ws := t.opts.windowState; ws != nil {
		if w := ws(); w.Fullscreen && w.Minimized {
			t.mu.Unlock()
			slogger().Debug("lifecycle: restore deferred, window minimized")
			return Deferred, nil
		}
	}
	now := t.opts.now()
	if !t.lastAttempt.IsZero() && now.Sub(t.lastAttempt) < t.opts.retryInterval {
		t.mu.Unlock()
		return Pending, nil
	}
	t.lastAttempt = now
	t.mu.Unlock()

	status := t.dev.Status()
	if errors.Is(status, device.ErrDeviceLost) {
		t.setState(StateLost)
		return Pending, nil
	}
	t.setState(StateNotReset)

	if err := t.dev.Reset(); err != nil {
		if device.IsLost(err) {
			return Pending, nil
		}
		return Pending, fmt.Errorf("lifecycle: reset: %w", err)
	}

	t.mu.Lock()
	t.state = StateOK
	t.lastAttempt = time.Time{}
	if t.counted {
		t.counted = false
		t.monitor.pending.Add(-1)
	}
	listeners := t.listenersLocked()
	t.mu.Unlock()

	slogger().Info("lifecycle: device restored")
	for _, l := range listeners {
		if l.DeviceRestored != nil {
			l.DeviceRestored()
		}
	}
	return Restored, nil
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
