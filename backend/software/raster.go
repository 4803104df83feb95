package software

import (
	"math"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
)

// Lookup texture rows used by StateLCD.
const (
	lcdInvGammaRow = 0
	lcdGammaRow    = 1
)

// rgba is a color with 8-bit channels, premultiplied unless noted.
type rgba struct {
	r, g, b, a uint8
}

func argb(c uint32) rgba {
	return rgba{uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)}
}

// scale multiplies every channel by k/255.
func (c rgba) scale(k uint8) rgba {
	return rgba{mul8(c.r, k), mul8(c.g, k), mul8(c.b, k), mul8(c.a, k)}
}

// over composites c over dst.
func (c rgba) over(dst rgba) rgba {
	inv := 255 - c.a
	return rgba{
		sat8(int(c.r) + int(mul8(dst.r, inv))),
		sat8(int(c.g) + int(mul8(dst.g, inv))),
		sat8(int(c.b) + int(mul8(dst.b, inv))),
		sat8(int(c.a) + int(mul8(dst.a, inv))),
	}
}

func mul8(a, b uint8) uint8 {
	v := int(a)*int(b) + 128
	return uint8((v + v>>8) >> 8)
}

// div255 divides by 255 rounding half away from zero.
func div255(v int) int {
	if v < 0 {
		return (v - 127) / 255
	}
	return (v + 127) / 255
}

func sat8(v int) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// rasterizer draws primitives into dst with the bound state.
type rasterizer struct {
	dst   *Texture
	state device.RenderState
	slots [MaxSlots]*Texture
}

// shade computes the fragment for vertex attributes v at (x, y) and
// writes it.
func (r *rasterizer) shade(x, y int, v batch.Vertex) {
	dst := r.dst.load(x, y)
	var src rgba
	switch r.state {
	case device.StateMask, device.StateGlyph:
		m := r.slots[0]
		if m == nil {
			return
		}
		cov := m.load(m.sample(v.U1, v.V1)).a
		src = argb(v.Color).scale(cov)
	case device.StateTexture:
		t := r.slots[0]
		if t == nil {
			return
		}
		src = t.load(t.sample(v.U1, v.V1))
	case device.StateGradient:
		g := r.slots[0]
		if g == nil {
			return
		}
		u := min(max(v.U1, 0), 1)
		src = g.load(g.sample(u, 0))
	case device.StateLookup:
		src = r.lookup(v)
	case device.StateLCD:
		r.dst.store(x, y, r.lcd(v, dst))
		return
	default:
		src = argb(v.Color)
	}
	r.dst.store(x, y, src.over(dst))
}

// lookup maps texel byte i of slot 0 through row i of the table in slot 1.
func (r *rasterizer) lookup(v batch.Vertex) rgba {
	t, lut := r.slots[0], r.slots[1]
	if t == nil || lut == nil {
		return rgba{}
	}
	var mapped [4]byte
	raw := t.texel(t.sample(v.U1, v.V1))
	for i, b := range raw {
		mapped[i] = lut.texel(int(b), min(i, lut.desc.Height-1))[0]
	}
	return decode(t.desc.Format, mapped[:len(raw)])
}

// lcd blends the text color into the cached destination per subpixel in
// linear space: coverage comes from slot 0, the destination from slot 1
// and the inverse and forward gamma tables from rows of slot 2.
func (r *rasterizer) lcd(v batch.Vertex, dst rgba) rgba {
	glyph, cached, lut := r.slots[0], r.slots[1], r.slots[2]
	if glyph == nil || lut == nil {
		return dst
	}
	cov := glyph.load(glyph.sample(v.U1, v.V1))
	if cached != nil {
		dst = cached.load(cached.sample(v.U2, v.V2))
	}
	src := argb(v.Color)
	inv := func(c uint8) int { return int(lut.texel(int(c), lcdInvGammaRow)[0]) }
	fwd := func(l int) uint8 { return lut.texel(clampInt(l, 0, 255), lcdGammaRow)[0] }
	mix := func(s, d, k uint8) uint8 {
		ld := inv(d)
		return fwd(ld + div255((inv(s)-ld)*int(k)))
	}
	return rgba{
		r: mix(src.r, dst.r, cov.r),
		g: mix(src.g, dst.g, cov.g),
		b: mix(src.b, dst.b, cov.b),
		a: 0xff,
	}
}

type point struct{ x, y float32 }

// edge returns twice the signed area of (a, b, p).
func edge(a, b, p point) float32 {
	return (p.x-a.x)*(b.y-a.y) - (p.y-a.y)*(b.x-a.x)
}

// topLeft reports whether pixels exactly on a->b belong to the triangle.
// Exactly one direction of every edge qualifies.
func topLeft(a, b point) bool {
	dy, dx := b.y-a.y, b.x-a.x
	return dy > 0 || (dy == 0 && dx < 0)
}

func (r *rasterizer) triangle(v0, v1, v2 batch.Vertex) {
	p0, p1, p2 := point{v0.X, v0.Y}, point{v1.X, v1.Y}, point{v2.X, v2.Y}
	area := edge(p0, p1, p2)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		p1, p2 = p2, p1
		area = -area
	}

	b := r.dst.Bounds()
	minX := clampInt(int(math.Floor(float64(min(p0.x, p1.x, p2.x)))), b.Min.X, b.Max.X)
	maxX := clampInt(int(math.Ceil(float64(max(p0.x, p1.x, p2.x)))), b.Min.X, b.Max.X)
	minY := clampInt(int(math.Floor(float64(min(p0.y, p1.y, p2.y)))), b.Min.Y, b.Max.Y)
	maxY := clampInt(int(math.Ceil(float64(max(p0.y, p1.y, p2.y)))), b.Min.Y, b.Max.Y)

	tl0, tl1, tl2 := topLeft(p1, p2), topLeft(p2, p0), topLeft(p0, p1)
	inside := func(w float32, tl bool) bool { return w > 0 || (w == 0 && tl) }

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			p := point{float32(x) + 0.5, float32(y) + 0.5}
			w0, w1, w2 := edge(p1, p2, p), edge(p2, p0, p), edge(p0, p1, p)
			if !inside(w0, tl0) || !inside(w1, tl1) || !inside(w2, tl2) {
				continue
			}
			r.shade(x, y, interpolate(v0, v1, v2, w0/area, w1/area, w2/area))
		}
	}
}

// interpolate blends texture coordinates barycentrically. The color is
// taken from the provoking vertex.
func interpolate(v0, v1, v2 batch.Vertex, b0, b1, b2 float32) batch.Vertex {
	return batch.Vertex{
		X:     v0.X*b0 + v1.X*b1 + v2.X*b2,
		Y:     v0.Y*b0 + v1.Y*b1 + v2.Y*b2,
		Color: v0.Color,
		U1:    v0.U1*b0 + v1.U1*b1 + v2.U1*b2,
		V1:    v0.V1*b0 + v1.V1*b1 + v2.V1*b2,
		U2:    v0.U2*b0 + v1.U2*b1 + v2.U2*b2,
		V2:    v0.V2*b0 + v1.V2*b1 + v2.V2*b2,
	}
}

// line draws a->b with a DDA walk, omitting the last pixel.
func (r *rasterizer) line(a, b batch.Vertex) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(float64(max(abs32(dx), abs32(dy)))))
	if steps == 0 {
		return
	}
	bounds := r.dst.Bounds()
	for i := 0; i < steps; i++ {
		t := float32(i) / float32(steps)
		v := a
		v.X, v.Y = a.X+dx*t, a.Y+dy*t
		v.U1, v.V1 = a.U1+(b.U1-a.U1)*t, a.V1+(b.V1-a.V1)*t
		x, y := int(math.Floor(float64(v.X))), int(math.Floor(float64(v.Y)))
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			r.shade(x, y, v)
		}
	}
}

func (r *rasterizer) point(v batch.Vertex) {
	x, y := int(math.Floor(float64(v.X))), int(math.Floor(float64(v.Y)))
	b := r.dst.Bounds()
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		r.shade(x, y, v)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
