// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the GPU device contract consumed by gputext.
//
// The rest of the module never talks to a graphics API directly. Everything
// it needs from the GPU (texture and vertex buffer allocation, CPU-side
// locking of sub-regions, draw submission, lost-device status) goes through
// the [Device] interface. Two implementations ship with the module:
//
//   - backend/native: gogpu/wgpu HAL textures, buffers and render passes
//   - backend/software: CPU rendering into an image.RGBA target
//
// # Status errors
//
// Any device operation may fail with [ErrDeviceLost]. [Device.Status] reports
// whether a lost device can be reset yet ([ErrDeviceNotReset]) or not
// ([ErrDeviceLost]). Both are transient: see [IsTransient].
//
// # Threading
//
// A Device is driven by exactly one goroutine. Implementations are not
// required to be safe for concurrent use.
package device
