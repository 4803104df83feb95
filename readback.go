package gputext

import (
	"image"

	"github.com/gogpu/gputext/batch"
)

// Readback draws pending primitives and returns the pixels of r in the
// current surface. r is clipped to the surface.
func (c *Context) Readback(r image.Rectangle) (*image.RGBA, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if err := c.bindTarget(); err != nil {
		return nil, err
	}
	target := c.surface.Target()
	r = r.Intersect(image.Rect(0, 0, target.Width(), target.Height()))
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	if r.Empty() {
		return img, nil
	}
	if err := c.batcher.Render(batch.RenderReset); err != nil {
		return nil, c.check(err)
	}

	rs, err := c.res.ReadbackSurface(r.Dx(), r.Dy())
	if err != nil {
		return nil, c.check(err)
	}
	if err := c.dev.CopyFromTarget(rs.Texture(), r, image.Point{}); err != nil {
		return nil, c.check(err)
	}
	m, err := rs.Texture().Lock(image.Rect(0, 0, r.Dx(), r.Dy()))
	if err != nil {
		return nil, c.check(err)
	}
	for y := 0; y < r.Dy(); y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+r.Dx()*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+r.Dx()*4]
		for x := 0; x < len(src); x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = src[x+3]
		}
	}
	return img, c.check(rs.Texture().Unlock())
}
