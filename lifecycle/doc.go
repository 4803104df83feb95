// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package lifecycle tracks device loss and drives recovery.
//
// A Tracker follows one device through OK, Lost and NotReset. When any
// operation reports device.ErrDeviceLost, Check moves the tracker to Lost,
// marks every registered Surface lost and notifies listeners so they can
// drop pending work and release resources that do not survive a reset.
// Restore then polls the device and resets it once the device allows.
//
// Restore is deferred while the owning window is full-screen and
// minimized, and attempts are throttled by a minimum interval, so a render
// loop may call it every frame.
//
// A Monitor aggregates trackers; RecoveryPending is safe to call from any
// goroutine. Acquire hands every user of a device the same tracker, so a
// loss seen through one context marks the surfaces of all of them.
package lifecycle
