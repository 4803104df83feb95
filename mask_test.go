package gputext

import (
	"errors"
	"testing"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/internal/devicetest"
	"github.com/gogpu/gputext/resource"
	"github.com/gogpu/gputext/upload"
)

func TestMaskFill_NilMaskUsesOpaqueTile(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	if err := c.MaskFill(4, 4, 10, 10, nil, 0); err != nil {
		t.Fatalf("MaskFill() error = %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	d := dev.Draws[0]
	if d.State != device.StateMask {
		t.Errorf("draw state = %v, want %v", d.State, device.StateMask)
	}
	p := resource.OpaqueMaskTile()
	v := vertexAt(d, 0)
	if want := float32(p.X) / resource.MaskWidth; v.U1 != want {
		t.Errorf("U1 = %v, want %v", v.U1, want)
	}
	if want := float32(p.Y) / resource.MaskHeight; v.V1 != want {
		t.Errorf("V1 = %v, want %v", v.V1, want)
	}
	if px := d.Bound[0].At(p.X+31, p.Y+31); px[0] != 0xff {
		t.Errorf("opaque tile texel = %#x, want 0xff", px[0])
	}
}

func TestMaskFill_UploadsMask(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	mask := []byte{
		0x00, 0x40, 0x80, 0, // stride 4, width 3
		0xc0, 0xff, 0x10, 0,
	}
	if err := c.MaskFill(0, 0, 3, 2, mask, 4); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	tex := dev.Draws[0].Bound[0]
	want := [][]byte{{0x00, 0x40, 0x80}, {0xc0, 0xff, 0x10}}
	for y, row := range want {
		for x, b := range row {
			if got := tex.At(x, y)[0]; got != b {
				t.Errorf("mask texel (%d,%d) = %#x, want %#x", x, y, got, b)
			}
		}
	}
}

func TestMaskFill_InvalidMask(t *testing.T) {
	c := newTestContext(t, devicetest.New())
	err := c.MaskFill(0, 0, 4, 4, make([]byte, 8), 4)
	if !errors.Is(err, upload.ErrRegionOutOfBounds) {
		t.Errorf("MaskFill() error = %v, want ErrRegionOutOfBounds", err)
	}
	if err := c.MaskFill(0, 0, 0, 4, nil, 0); err != nil {
		t.Errorf("empty MaskFill() error = %v, want nil", err)
	}
}

func TestMaskFill_TileWrapFlushes(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	tiles := resource.MaskTilesX*resource.MaskTilesY - 1
	mask := []byte{0xff}
	for i := 0; i < tiles; i++ {
		if err := c.MaskFill(i, 0, 1, 1, mask, 1); err != nil {
			t.Fatal(err)
		}
	}
	if len(dev.Draws) != 0 {
		t.Fatalf("draws before the tiles run out = %d, want 0", len(dev.Draws))
	}
	if err := c.MaskFill(0, 1, 1, 1, mask, 1); err != nil {
		t.Fatal(err)
	}
	if len(dev.Draws) != 1 || dev.Draws[0].Count != 6*tiles {
		t.Errorf("draws = %+v, want every tile drawn before reuse", dev.Draws)
	}
}

func TestTileRing(t *testing.T) {
	flushes := 0
	r := tileRing{tiles: 3}
	flush := func() error { flushes++; return nil }

	var got [][2]int
	for i := 0; i < 4; i++ {
		x, y, err := r.take(flush, 2)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, [2]int{x, y})
	}
	want := [][2]int{{0, 0}, {tileSize, 0}, {0, tileSize}, {0, 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tile %d = %v, want %v", i, got[i], want[i])
		}
	}
	if flushes != 1 {
		t.Errorf("flushes = %d, want 1", flushes)
	}

	r.next = r.tiles
	errFlush := errors.New("flush failed")
	if _, _, err := r.take(func() error { return errFlush }, 2); !errors.Is(err, errFlush) {
		t.Errorf("take() error = %v, want flush error", err)
	}
}
