// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "errors"

// Status and failure errors reported by Device implementations.
var (
	// ErrDeviceLost is returned when the device was lost and cannot be reset yet.
	ErrDeviceLost = errors.New("device: device lost")

	// ErrDeviceNotReset is returned by Status when a lost device is ready to be reset.
	ErrDeviceNotReset = errors.New("device: device lost, reset required")

	// ErrLockFailed is returned when a texture or buffer region cannot be locked.
	ErrLockFailed = errors.New("device: lock failed")

	// ErrNotLocked is returned by Unlock when no region is locked.
	ErrNotLocked = errors.New("device: resource is not locked")

	// ErrOutOfMemory is returned when a resource allocation fails.
	ErrOutOfMemory = errors.New("device: out of video memory")

	// ErrInvalidDescriptor is returned for non-positive sizes or unknown formats.
	ErrInvalidDescriptor = errors.New("device: invalid resource descriptor")

	// ErrReleased is returned when operating on a destroyed resource.
	ErrReleased = errors.New("device: resource has been released")

	// ErrNotSupported is returned for operations a backend does not implement.
	ErrNotSupported = errors.New("device: operation not supported")
)

// IsTransient reports whether err is a recoverable device condition.
// Operations failing with a transient error should be retried on a later frame.
func IsTransient(err error) bool {
	return errors.Is(err, ErrDeviceLost) ||
		errors.Is(err, ErrDeviceNotReset) ||
		errors.Is(err, ErrLockFailed)
}

// IsLost reports whether err signals a lost device.
func IsLost(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrDeviceNotReset)
}
