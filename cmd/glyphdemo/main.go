// Command glyphdemo renders a line of text through the gputext glyph
// pipeline on a registered device backend, the software one by default,
// and writes it as a PNG.
//
// Usage:
//
//	glyphdemo -text "Hello" -size 24 -lcd -output hello.png
//	glyphdemo -config demo.toml
//
// Keys in the TOML file use the config field names (Backend, Text, Size,
// Width, Height, Output, LCD, BGR, Contrast, Foreground, Background,
// Gradient, GradientEnd) and override the flags.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputext"
	"github.com/gogpu/gputext/backend"
	_ "github.com/gogpu/gputext/backend/software"
	"github.com/gogpu/gputext/glyph/xfont"
	"github.com/gogpu/gputext/lifecycle"
)

func main() {
	cfg := defaultConfig()
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "device backend")
	flag.StringVar(&cfg.Text, "text", cfg.Text, "text to render")
	flag.Float64Var(&cfg.Size, "size", cfg.Size, "font size in pixels")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "image width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "image height")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "output file")
	flag.BoolVar(&cfg.LCD, "lcd", cfg.LCD, "render with LCD subpixel antialiasing")
	configPath := flag.String("config", "", "optional TOML config file")
	verbose := flag.Bool("v", false, "log pipeline diagnostics")
	flag.Parse()

	if *verbose {
		gputext.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if *configPath != "" {
		if err := cfg.load(*configPath); err != nil {
			log.Fatal(err)
		}
	} else if err := cfg.validate(); err != nil {
		log.Fatal(err)
	}

	img, err := render(cfg)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	if err := savePNG(cfg.Output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Demo saved to %s (%dx%d)\n", cfg.Output, cfg.Width, cfg.Height)
}

func render(cfg config) (*image.RGBA, error) {
	fg, _ := parseColor(cfg.Foreground)
	bg, _ := parseColor(cfg.Background)
	end, _ := parseColor(cfg.GradientEnd)

	dev, err := backend.Get(cfg.Backend)
	if err != nil {
		return nil, err
	}
	c, err := gputext.NewContext(dev, lifecycle.NewMonitor())
	if err != nil {
		return nil, err
	}
	defer c.Close()

	surface, err := c.NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	if err := c.SetSurface(surface); err != nil {
		return nil, err
	}

	if cfg.Gradient {
		err = c.SetMultiGradientPaint(0, float32(cfg.Width), []gputext.GradientStop{
			{Offset: 0, Color: bg},
			{Offset: 1, Color: end},
		})
	} else {
		c.SetColor(bg)
	}
	if err != nil {
		return nil, err
	}
	if err := c.FillRect(0, 0, float32(cfg.Width), float32(cfg.Height)); err != nil {
		return nil, err
	}

	rast := xfont.MustGoRegular()
	defer rast.Close()
	store := gputext.NewGlyphStore(rast, 0)
	c.SetGlyphStore(store)

	glyphs, err := store.Glyphs(xfont.Keys(cfg.Text, xfont.GoRegularID, cfg.Size, cfg.LCD))
	if err != nil {
		return nil, err
	}
	c.SetColor(fg)
	baseline := float32(cfg.Height)/2 + float32(cfg.Size)/3
	err = c.DrawGlyphList(gputext.GlyphList{
		Glyphs:   glyphs,
		OriginX:  float32(cfg.Size) / 2,
		OriginY:  baseline,
		BGR:      cfg.BGR,
		Contrast: cfg.Contrast,
	})
	if err != nil {
		return nil, fmt.Errorf("draw glyphs: %w", err)
	}
	return c.Readback(image.Rect(0, 0, cfg.Width, cfg.Height))
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
