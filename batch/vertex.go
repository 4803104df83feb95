package batch

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// MaxVertices is the number of vertices the ring holds.
const MaxVertices = 1024

// VertexSize is the size of Vertex in bytes.
const VertexSize = 32

// Vertex is the fixed vertex layout shared with the device shaders.
type Vertex struct {
	X, Y, Z float32
	// Color is premultiplied ARGB.
	Color uint32
	// U1, V1 and U2, V2 are two texture coordinate sets.
	U1, V1 float32
	U2, V2 float32
}

// PrimitiveType selects how a batch's vertices are assembled.
type PrimitiveType uint8

// Primitive types.
const (
	PointList PrimitiveType = iota
	LineList
	LineStrip
	TriangleList
)

var topologies = [...]gputypes.PrimitiveTopology{
	PointList:    gputypes.PrimitiveTopologyPointList,
	LineList:     gputypes.PrimitiveTopologyLineList,
	LineStrip:    gputypes.PrimitiveTopologyLineStrip,
	TriangleList: gputypes.PrimitiveTopologyTriangleList,
}

// Topology returns the device topology for t.
func (t PrimitiveType) Topology() gputypes.PrimitiveTopology {
	return topologies[t]
}

// String returns the type name.
func (t PrimitiveType) String() string {
	switch t {
	case PointList:
		return "PointList"
	case LineList:
		return "LineList"
	case LineStrip:
		return "LineStrip"
	case TriangleList:
		return "TriangleList"
	default:
		return fmt.Sprintf("PrimitiveType(%d)", t)
	}
}

// Primitives returns the number of primitives n vertices of type t form.
func (t PrimitiveType) Primitives(n int) int {
	switch t {
	case PointList:
		return n
	case LineList:
		return n / 2
	case LineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case TriangleList:
		return n / 3
	default:
		return 0
	}
}

// Batch is a run of vertices drawn with one call.
type Batch struct {
	Type       PrimitiveType
	Primitives int
	Vertices   int
}
