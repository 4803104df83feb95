// Package software implements device.Device on the CPU.
//
// Textures live in system memory in their declared format and draws are
// rasterized immediately into the bound render target, so the result of a
// flush can be read back at once. The device is meant for headless
// rendering, golden tests and hosts without a GPU. It can simulate a lost
// device with Lose and AllowReset.
//
// Rasterization follows the usual GPU conventions: pixel centers are
// sampled at half-integer coordinates, triangle edges use a top-left fill
// rule so adjacent triangles never blend a pixel twice, line segments
// omit their last pixel and textures are sampled with nearest filtering.
// All colors are premultiplied and blended with source-over, except
// StateLCD which writes the composited result directly.
package software
