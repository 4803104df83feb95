package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/gputext/backend"
)

// config holds the demo settings. Flags fill it first; keys present in
// the TOML file replace them.
type config struct {
	// Backend names the registered device backend to render with.
	Backend    string
	Text       string
	Size       float64
	Width      int
	Height     int
	Output     string
	LCD        bool
	BGR        bool
	Contrast   int
	Foreground string
	Background string
	// Gradient fills the background with a gradient from Background to
	// GradientEnd instead of a flat color.
	Gradient    bool
	GradientEnd string
}

func defaultConfig() config {
	return config{
		Backend:     backend.Software,
		Text:        "Hello, gputext!",
		Size:        32,
		Width:       640,
		Height:      96,
		Output:      "glyphdemo.png",
		Foreground:  "#1a1a1a",
		Background:  "#ffffff",
		GradientEnd: "#d0e0ff",
	}
}

// load overlays the TOML file at path onto c.
func (c *config) load(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return c.validate()
}

func (c *config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", c.Width, c.Height)
	}
	if !backend.IsRegistered(c.Backend) {
		return fmt.Errorf("unknown backend %q (available: %v)", c.Backend, backend.Available())
	}
	if c.Size <= 0 {
		return fmt.Errorf("invalid font size %v", c.Size)
	}
	for _, s := range []string{c.Foreground, c.Background, c.GradientEnd} {
		if _, err := parseColor(s); err != nil {
			return err
		}
	}
	return nil
}

// parseColor parses #rgb, #rrggbb or #aarrggbb into premultiplied ARGB.
func parseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xff000000
	}
	return premultiply(uint32(v)), nil
}

func premultiply(c uint32) uint32 {
	a := c >> 24
	if a == 0xff {
		return c
	}
	ch := func(shift uint) uint32 {
		v := (c >> shift) & 0xff
		return ((v*a + 127) / 255) << shift
	}
	return a<<24 | ch(16) | ch(8) | ch(0)
}
