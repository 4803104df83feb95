package gputext

import (
	"fmt"
	"image"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/resource"
)

// GradientStop is one color of a multi-stop gradient.
type GradientStop struct {
	// Offset is the stop position in [0, 1].
	Offset float32
	// Color is premultiplied ARGB.
	Color uint32
}

type gradientPaint struct {
	x0, x1 float32
	stops  []GradientStop

	// res is the gradient texture the stops were last written to.
	res      *resource.Resource
	uploaded bool
}

// SetMultiGradientPaint replaces the paint with a horizontal gradient
// running from x0 to x1 through stops. Stops must be at least two, with
// offsets non-decreasing in [0, 1].
func (c *Context) SetMultiGradientPaint(x0, x1 float32, stops []GradientStop) error {
	if x0 == x1 {
		return fmt.Errorf("%w: empty gradient span at x=%v", ErrInvalidPaint, x0)
	}
	if len(stops) < 2 {
		return fmt.Errorf("%w: %d gradient stops", ErrInvalidPaint, len(stops))
	}
	for i, s := range stops {
		if s.Offset < 0 || s.Offset > 1 || (i > 0 && s.Offset < stops[i-1].Offset) {
			return fmt.Errorf("%w: stop %d at offset %v", ErrInvalidPaint, i, s.Offset)
		}
	}
	c.gradient = &gradientPaint{
		x0:    x0,
		x1:    x1,
		stops: append([]GradientStop(nil), stops...),
	}
	return nil
}

// GradientTexels samples stops into one row of BGRA texels.
func GradientTexels(stops []GradientStop) []byte {
	px := make([]byte, resource.GradientWidth*4)
	if len(stops) == 0 {
		return px
	}
	for i := 0; i < resource.GradientWidth; i++ {
		t := float32(i) / float32(resource.GradientWidth-1)
		argb := sampleStops(stops, t)
		px[i*4+0] = byte(argb)
		px[i*4+1] = byte(argb >> 8)
		px[i*4+2] = byte(argb >> 16)
		px[i*4+3] = byte(argb >> 24)
	}
	return px
}

func sampleStops(stops []GradientStop, t float32) uint32 {
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if t > b.Offset {
			continue
		}
		if b.Offset == a.Offset {
			return b.Color
		}
		return lerpARGB(a.Color, b.Color, (t-a.Offset)/(b.Offset-a.Offset))
	}
	return stops[len(stops)-1].Color
}

func lerpARGB(a, b uint32, t float32) uint32 {
	var out uint32
	for shift := 0; shift < 32; shift += 8 {
		ca := float32((a >> shift) & 0xff)
		cb := float32((b >> shift) & 0xff)
		out |= uint32(ca+(cb-ca)*t+0.5) << shift
	}
	return out
}

// usePaint selects the render state of the current paint.
func (c *Context) usePaint() error {
	g := c.gradient
	if g == nil {
		return c.setState(device.StateColor)
	}
	r, err := c.res.GradientTexture()
	if err != nil {
		return err
	}
	if !g.uploaded || g.res != r {
		if err := c.flush(); err != nil {
			return err
		}
		if err := writeTexels(r.Texture(), image.Rect(0, 0, resource.GradientWidth, 1), GradientTexels(g.stops)); err != nil {
			return err
		}
		g.res, g.uploaded = r, true
	}
	return c.setState(device.StateGradient, r.Texture())
}

func (c *Context) paintVertex(x, y float32) batch.Vertex {
	v := batch.Vertex{X: x, Y: y, Color: c.color}
	if g := c.gradient; g != nil {
		v.U1 = (x - g.x0) / (g.x1 - g.x0)
	}
	return v
}

// FillRect fills the rectangle with the current paint.
func (c *Context) FillRect(x1, y1, x2, y2 float32) error {
	if err := c.beginPaint(); err != nil {
		return err
	}
	v := c.paintVertex
	return c.check(c.batcher.AddVertices(batch.TriangleList,
		v(x1, y1), v(x2, y1), v(x2, y2),
		v(x1, y1), v(x2, y2), v(x1, y2),
	))
}

// DrawLine draws a one pixel wide segment with the current paint.
func (c *Context) DrawLine(x1, y1, x2, y2 float32) error {
	if err := c.beginPaint(); err != nil {
		return err
	}
	return c.check(c.batcher.AddVertices(batch.LineList, c.paintVertex(x1, y1), c.paintVertex(x2, y2)))
}

func (c *Context) beginPaint() error {
	if err := c.usable(); err != nil {
		return err
	}
	if err := c.bindTarget(); err != nil {
		return err
	}
	return c.check(c.usePaint())
}

// SetLookupTable replaces the lookup texture contents with up to four
// 256-entry tables, one per row. Missing rows repeat the last table given.
// DrawImage with lookup maps texel byte i through row i.
func (c *Context) SetLookupTable(rows [][]byte) error {
	if err := c.usable(); err != nil {
		return err
	}
	if len(rows) == 0 || len(rows) > resource.LookupHeight {
		return fmt.Errorf("%w: %d lookup rows", ErrInvalidPaint, len(rows))
	}
	for i, row := range rows {
		if len(row) != resource.LookupWidth {
			return fmt.Errorf("%w: lookup row %d has %d entries", ErrInvalidPaint, i, len(row))
		}
	}
	r, err := c.res.LookupTexture()
	if err != nil {
		return c.check(err)
	}
	if err := c.flush(); err != nil {
		return c.check(err)
	}
	for len(rows) < resource.LookupHeight {
		rows = append(rows[:len(rows):len(rows)], rows[len(rows)-1])
	}
	if err := writeLookupRows(r.Texture(), 0, rows...); err != nil {
		c.lookupRes = nil
		return c.check(err)
	}
	c.lookup, c.lookupRes = lookupCustom, r
	return nil
}

// DrawImage draws tex at (x, y), optionally mapped through the table set
// with SetLookupTable.
func (c *Context) DrawImage(tex device.Texture, x, y float32, lookup bool) error {
	if err := c.usable(); err != nil {
		return err
	}
	if tex == nil {
		return nil
	}
	if lookup && (c.lookup != lookupCustom || c.lookupRes == nil) {
		return fmt.Errorf("%w: no lookup table set", ErrInvalidPaint)
	}
	if err := c.bindTarget(); err != nil {
		return err
	}
	var err error
	if lookup {
		err = c.setState(device.StateLookup, tex, c.lookupRes.Texture())
	} else {
		err = c.setState(device.StateTexture, tex)
	}
	if err != nil {
		return c.check(err)
	}
	w, h := float32(tex.Width()), float32(tex.Height())
	return c.check(c.batcher.DrawTexture(x, y, x+w, y+h, 0, 0, 1, 1))
}

// writeTexels copies rows of tightly packed texels into r of tex.
func writeTexels(tex device.Texture, r image.Rectangle, pix []byte) error {
	m, err := tex.Lock(r)
	if err != nil {
		return err
	}
	rowBytes := r.Dx() * device.BytesPerPixel(tex.Format())
	for y := 0; y < r.Dy(); y++ {
		copy(m.Pix[y*m.Stride:y*m.Stride+rowBytes], pix[y*rowBytes:])
	}
	return tex.Unlock()
}
