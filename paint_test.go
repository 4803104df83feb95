package gputext

import (
	"errors"
	"testing"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/internal/devicetest"
	"github.com/gogpu/gputext/resource"
)

func TestSetMultiGradientPaint_Invalid(t *testing.T) {
	c := newTestContext(t, devicetest.New())
	tests := []struct {
		name   string
		x0, x1 float32
		stops  []GradientStop
	}{
		{"empty span", 5, 5, []GradientStop{{0, 0}, {1, 0}}},
		{"one stop", 0, 10, []GradientStop{{0, 0}}},
		{"decreasing", 0, 10, []GradientStop{{0.5, 0}, {0.2, 0}}},
		{"out of range", 0, 10, []GradientStop{{0, 0}, {1.5, 0}}},
	}
	for _, tt := range tests {
		if err := c.SetMultiGradientPaint(tt.x0, tt.x1, tt.stops); !errors.Is(err, ErrInvalidPaint) {
			t.Errorf("%s: error = %v, want ErrInvalidPaint", tt.name, err)
		}
	}
}

func TestGradientTexels(t *testing.T) {
	px := GradientTexels([]GradientStop{
		{Offset: 0, Color: 0xff0000ff},
		{Offset: 1, Color: 0xffff0000},
	})
	if len(px) != resource.GradientWidth*4 {
		t.Fatalf("len = %d, want %d", len(px), resource.GradientWidth*4)
	}
	// BGRA: first texel blue, last texel red.
	if px[0] != 0xff || px[2] != 0 || px[3] != 0xff {
		t.Errorf("first texel = %x, want ff0000ff", px[:4])
	}
	last := px[len(px)-4:]
	if last[0] != 0 || last[2] != 0xff || last[3] != 0xff {
		t.Errorf("last texel = %x, want 0000ffff", last)
	}
	mid := px[128*4 : 128*4+4]
	if mid[0] < 0x70 || mid[0] > 0x90 || mid[2] < 0x70 || mid[2] > 0x90 {
		t.Errorf("middle texel = %x, want blue and red near 0x80", mid)
	}
}

func TestFillRect_Gradient(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	err := c.SetMultiGradientPaint(10, 30, []GradientStop{
		{Offset: 0, Color: 0xff000000},
		{Offset: 1, Color: 0xffffffff},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.FillRect(10, 0, 20, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	d := dev.Draws[0]
	if d.State != device.StateGradient || d.Bound[0] == nil || d.Bound[0].Desc.Label != "gradient" {
		t.Fatalf("draw = %v, want gradient state sampling the gradient texture", d.State)
	}
	if v := vertexAt(d, 0); v.U1 != 0 {
		t.Errorf("U1 at x=10 = %v, want 0", v.U1)
	}
	if v := vertexAt(d, 1); v.U1 != 0.5 {
		t.Errorf("U1 at x=20 = %v, want 0.5", v.U1)
	}
	if px := d.Bound[0].At(resource.GradientWidth-1, 0); px[0] != 0xff {
		t.Errorf("last gradient texel = %x, want white", px)
	}

	c.SetColor(0xff00ff00)
	if err := c.DrawLine(0, 0, 5, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	d = dev.Draws[len(dev.Draws)-1]
	if d.State != device.StateColor {
		t.Errorf("state after SetColor = %v, want %v", d.State, device.StateColor)
	}
	if v := vertexAt(d, 0); v.Color != 0xff00ff00 {
		t.Errorf("line color = %#x, want 0xff00ff00", v.Color)
	}
}

func TestSetLookupTable(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	img, err := c.NewSurface(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	src := img.Target().(*devicetest.Texture)

	if err := c.DrawImage(src, 0, 0, true); !errors.Is(err, ErrInvalidPaint) {
		t.Errorf("DrawImage(lookup) without table error = %v, want ErrInvalidPaint", err)
	}
	if err := c.SetLookupTable([][]byte{make([]byte, 10)}); !errors.Is(err, ErrInvalidPaint) {
		t.Errorf("SetLookupTable(short row) error = %v, want ErrInvalidPaint", err)
	}

	row := make([]byte, resource.LookupWidth)
	for i := range row {
		row[i] = byte(255 - i)
	}
	if err := c.SetLookupTable([][]byte{row, row}); err != nil {
		t.Fatalf("SetLookupTable() error = %v", err)
	}
	if err := c.DrawImage(src, 1, 2, true); err != nil {
		t.Fatalf("DrawImage() error = %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	d := dev.Draws[0]
	if d.State != device.StateLookup || d.Bound[0] != src || d.Bound[1].Desc.Label != "lookup" {
		t.Fatalf("draw = %v, want lookup state sampling image and lookup table", d.State)
	}
	if got := d.Bound[1].At(10, 1)[0]; got != 245 {
		t.Errorf("lookup[1][10] = %d, want 245", got)
	}
	if got := d.Bound[1].At(10, 3)[0]; got != 245 {
		t.Errorf("lookup[3][10] = %d, want 245 (repeated last row)", got)
	}
	if v := vertexAt(d, 2); v.X != 9 || v.Y != 6 {
		t.Errorf("image corner = (%v,%v), want (9,6)", v.X, v.Y)
	}
}

func TestDrawImage_Plain(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)
	img, err := c.NewSurface(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DrawImage(img.Target(), 0, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawImage(nil, 0, 0, false); err != nil {
		t.Errorf("DrawImage(nil) error = %v, want nil", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if d := dev.Draws[0]; d.State != device.StateTexture || d.Count != 6 {
		t.Errorf("draw = %v with %d vertices, want %v with 6", d.State, d.Count, device.StateTexture)
	}
}
