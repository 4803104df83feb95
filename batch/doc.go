// Package batch accumulates vertices for small primitives and submits
// them to the device in as few draw calls as possible.
//
// Vertices are staged in a fixed ring of MaxVertices entries. Consecutive
// primitives of the same type share one batch, except line strips, which
// always start a new one. Render uploads every pending vertex with a
// single buffer lock and issues one draw per batch:
//
//	b := batch.New(dev, manager)
//	b.SetColor(0xff000000)
//	_ = b.FillRect(0, 0, 10, 10)
//	_ = b.DrawLine(0, 0, 10, 10)
//	err := b.Render(batch.RenderReset)
//
// RenderAppend keeps the ring cursor so the next Render locks the buffer
// with device.LockNoOverwrite; RenderReset rewinds it and the next lock
// discards the buffer contents.
package batch
