package batch

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"honnef.co/go/safeish"

	"github.com/gogpu/gputext/device"
)

// ErrCapacityExceeded is returned for a single request larger than the ring.
var ErrCapacityExceeded = errors.New("batch: request exceeds vertex capacity")

// Target is the part of a device the batcher draws with.
type Target interface {
	BindVertexBuffer(vb device.VertexBuffer, stride int) error
	Draw(topology gputypes.PrimitiveTopology, firstVertex, vertexCount int) error
}

// BufferSource returns the vertex buffer to upload into. It is asked on
// every Render so a buffer recreated after a device reset is picked up.
type BufferSource interface {
	VertexBuffer() (device.VertexBuffer, error)
}

// RenderMode selects what happens to the ring cursor after Render.
type RenderMode uint8

const (
	// RenderReset rewinds the ring; the next upload discards the buffer.
	RenderReset RenderMode = iota
	// RenderAppend continues after the drawn vertices; the next upload
	// uses a no-overwrite lock.
	RenderAppend
)

// State reports whether vertices are pending.
type State uint8

const (
	// Empty means no vertices are pending.
	Empty State = iota
	// Accumulating means at least one vertex awaits Render.
	Accumulating
)

// Batcher stages primitives and draws them in batches. It is not safe for
// concurrent use.
type Batcher struct {
	target  Target
	buffers BufferSource

	vertices []Vertex
	// first is the index of the first vertex not yet drawn; cur the next
	// free index.
	first int
	cur   int

	batches []Batch
	color   uint32
}

// New returns an empty batcher.
func New(target Target, buffers BufferSource) *Batcher {
	return &Batcher{
		target:   target,
		buffers:  buffers,
		vertices: make([]Vertex, MaxVertices),
		batches:  make([]Batch, 0, 16),
		color:    0xff000000,
	}
}

// SetColor sets the premultiplied ARGB color of subsequent vertices.
func (b *Batcher) SetColor(argb uint32) { b.color = argb }

// Color returns the current vertex color.
func (b *Batcher) Color() uint32 { return b.color }

// PendingVertices returns the number of vertices awaiting Render.
func (b *Batcher) PendingVertices() int { return b.cur - b.first }

// Batches returns a copy of the pending batches in submission order.
func (b *Batcher) Batches() []Batch {
	return append([]Batch(nil), b.batches...)
}

// State returns Accumulating when vertices are pending.
func (b *Batcher) State() State {
	if b.cur > b.first {
		return Accumulating
	}
	return Empty
}

// EnsureCapacity makes room for n vertices of type pt in the current
// batch. When the ring cannot hold them, pending vertices are rendered
// and the ring is rewound. A new batch starts when pt differs from the
// current batch type or is LineStrip.
func (b *Batcher) EnsureCapacity(pt PrimitiveType, n int) error {
	if n > MaxVertices {
		return fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, n, MaxVertices)
	}
	if b.cur+n > MaxVertices {
		if err := b.Render(RenderReset); err != nil {
			return err
		}
	}

	if len(b.batches) > 0 {
		last := &b.batches[len(b.batches)-1]
		if last.Vertices == 0 {
			last.Type = pt
			return nil
		}
		if last.Type == pt && pt != LineStrip {
			return nil
		}
	}
	b.batches = append(b.batches, Batch{Type: pt})
	return nil
}

// AddVertices stages vs as primitives of type pt using the vertices'
// own colors.
func (b *Batcher) AddVertices(pt PrimitiveType, vs ...Vertex) error {
	if len(vs) == 0 {
		return nil
	}
	if err := b.EnsureCapacity(pt, len(vs)); err != nil {
		return err
	}
	copy(b.vertices[b.cur:], vs)
	b.cur += len(vs)
	last := &b.batches[len(b.batches)-1]
	last.Vertices += len(vs)
	last.Primitives = pt.Primitives(last.Vertices)
	return nil
}

// Discard drops every pending vertex without drawing and rewinds the
// ring. Used when the device was lost.
func (b *Batcher) Discard() {
	b.batches = b.batches[:0]
	b.first = 0
	b.cur = 0
}

// Render uploads pending vertices and issues one draw per batch. The
// cursor moves according to mode even when the upload or a draw fails.
func (b *Batcher) Render(mode RenderMode) error {
	defer b.advance(mode)

	if b.cur == b.first {
		return nil
	}

	vb, err := b.buffers.VertexBuffer()
	if err != nil {
		return fmt.Errorf("batch: vertex buffer: %w", err)
	}
	lockMode := device.LockNoOverwrite
	if b.first == 0 {
		lockMode = device.LockDiscard
	}
	pending := b.vertices[b.first:b.cur]
	dst, err := vb.Lock(b.first*VertexSize, len(pending)*VertexSize, lockMode)
	if err != nil {
		return fmt.Errorf("batch: lock vertices: %w", err)
	}
	copy(dst, safeish.SliceCast[[]byte](pending))
	if err := vb.Unlock(); err != nil {
		return fmt.Errorf("batch: unlock vertices: %w", err)
	}

	if err := b.target.BindVertexBuffer(vb, VertexSize); err != nil {
		return fmt.Errorf("batch: bind vertices: %w", err)
	}
	first := b.first
	for _, bt := range b.batches {
		if bt.Vertices == 0 {
			continue
		}
		if err := b.target.Draw(bt.Type.Topology(), first, bt.Vertices); err != nil {
			return fmt.Errorf("batch: draw %v: %w", bt.Type, err)
		}
		first += bt.Vertices
	}
	return nil
}

func (b *Batcher) advance(mode RenderMode) {
	b.batches = b.batches[:0]
	if mode == RenderReset {
		b.first = 0
		b.cur = 0
		return
	}
	b.first = b.cur
}
