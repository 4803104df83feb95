// Package native implements device.Device on a gogpu/wgpu HAL device.
//
// Every texture and vertex buffer keeps a CPU shadow copy. Lock hands out
// the shadow and Unlock writes it to the GPU through the queue, so the
// lock-based upload contract of package device maps onto
// queue.WriteTexture and queue.WriteBuffer. Render targets are read back
// into their shadow on demand for CPU locks and CopyFromTarget.
//
// Draws are encoded as one render pass each with the pipeline and bind
// group a Pipelines implementation returns for the current render state.
// Shaders are not part of this package.
//
// The HAL has no lost-device notification of its own; hosts call MarkLost
// when their surface or device reports loss, then Rebind once a device is
// available again.
package native
