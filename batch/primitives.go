package batch

func (b *Batcher) vertex(x, y float32) Vertex {
	return Vertex{X: x, Y: y, Color: b.color}
}

func (b *Batcher) texVertex(x, y, u, v float32) Vertex {
	return Vertex{X: x, Y: y, Color: b.color, U1: u, V1: v}
}

// DrawPoint stages one point.
func (b *Batcher) DrawPoint(x, y float32) error {
	return b.AddVertices(PointList, b.vertex(x, y))
}

// DrawLine stages one line segment.
func (b *Batcher) DrawLine(x1, y1, x2, y2 float32) error {
	return b.AddVertices(LineList, b.vertex(x1, y1), b.vertex(x2, y2))
}

// DrawRect stages the outline of a rectangle as four segments.
func (b *Batcher) DrawRect(x1, y1, x2, y2 float32) error {
	return b.AddVertices(LineList,
		b.vertex(x1, y1), b.vertex(x2, y1),
		b.vertex(x2, y1), b.vertex(x2, y2),
		b.vertex(x2, y2), b.vertex(x1, y2),
		b.vertex(x1, y2), b.vertex(x1, y1),
	)
}

// DrawPoly stages a polyline through the given points as its own line
// strip. When closed, the first point is repeated at the end.
func (b *Batcher) DrawPoly(xs, ys []float32, closed bool) error {
	n := min(len(xs), len(ys))
	if n < 2 {
		return nil
	}
	vs := make([]Vertex, 0, n+1)
	for i := 0; i < n; i++ {
		vs = append(vs, b.vertex(xs[i], ys[i]))
	}
	if closed && (xs[0] != xs[n-1] || ys[0] != ys[n-1]) {
		vs = append(vs, vs[0])
	}
	return b.AddVertices(LineStrip, vs...)
}

// FillRect stages a filled rectangle as two triangles.
func (b *Batcher) FillRect(x1, y1, x2, y2 float32) error {
	return b.AddVertices(TriangleList,
		b.vertex(x1, y1), b.vertex(x2, y1), b.vertex(x2, y2),
		b.vertex(x1, y1), b.vertex(x2, y2), b.vertex(x1, y2),
	)
}

// FillParallelogram stages the parallelogram with corner (x, y) and edge
// vectors (dx1, dy1) and (dx2, dy2).
func (b *Batcher) FillParallelogram(x, y, dx1, dy1, dx2, dy2 float32) error {
	p0 := b.vertex(x, y)
	p1 := b.vertex(x+dx1, y+dy1)
	p2 := b.vertex(x+dx1+dx2, y+dy1+dy2)
	p3 := b.vertex(x+dx2, y+dy2)
	return b.AddVertices(TriangleList, p0, p1, p2, p0, p2, p3)
}

// DrawTexture stages a quad mapping (u1,v1)-(u2,v2) onto (x1,y1)-(x2,y2).
func (b *Batcher) DrawTexture(x1, y1, x2, y2, u1, v1, u2, v2 float32) error {
	return b.AddVertices(TriangleList,
		b.texVertex(x1, y1, u1, v1), b.texVertex(x2, y1, u2, v1), b.texVertex(x2, y2, u2, v2),
		b.texVertex(x1, y1, u1, v1), b.texVertex(x2, y2, u2, v2), b.texVertex(x1, y2, u1, v2),
	)
}

// TexRect is a rectangle in normalized texture coordinates.
type TexRect struct {
	U1, V1, U2, V2 float32
}

// DrawTexture2 stages a quad sampling two textures: t1 through the first
// coordinate set and t2 through the second.
func (b *Batcher) DrawTexture2(x1, y1, x2, y2 float32, t1, t2 TexRect) error {
	v := func(x, y float32, right, bottom bool) Vertex {
		vx := Vertex{X: x, Y: y, Color: b.color, U1: t1.U1, V1: t1.V1, U2: t2.U1, V2: t2.V1}
		if right {
			vx.U1, vx.U2 = t1.U2, t2.U2
		}
		if bottom {
			vx.V1, vx.V2 = t1.V2, t2.V2
		}
		return vx
	}
	tl := v(x1, y1, false, false)
	tr := v(x2, y1, true, false)
	br := v(x2, y2, true, true)
	bl := v(x1, y2, false, true)
	return b.AddVertices(TriangleList, tl, tr, br, tl, br, bl)
}
