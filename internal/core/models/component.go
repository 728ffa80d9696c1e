package models

import "github.com/cespare/xxhash/v2"

// ComponentID is the stable identity of a component type. It is derived
// from the registered type name so it survives process restarts.
type ComponentID uint64

// ComponentIDOf hashes a registered component type name.
func ComponentIDOf(name string) ComponentID {
	return ComponentID(xxhash.Sum64String(name))
}

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

var (
	White = Color{1, 1, 1, 1}
	Black = Color{0, 0, 0, 1}
)

// RGB returns an opaque color.
func RGB(r, g, b float32) Color { return Color{r, g, b, 1} }

// Scale multiplies the color channels (not alpha) by s.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A}
}
