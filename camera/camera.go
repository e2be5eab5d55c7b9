// Package camera maps the square arena onto the window, with pan and zoom.
// The view wraps at the arena edges, matching the torus geometry used for
// range checks.
package camera

import "math"

// Camera controls the viewport into the arena.
type Camera struct {
	// Center of the view in arena coordinates
	X, Y float64

	// Zoom multiplies Scale; 1 shows the arena at its configured size.
	Zoom float32

	// Scale is pixels per arena unit at zoom 1 (render.scale).
	Scale float32

	ViewportW, ViewportH float32
	Arena                float64

	MinZoom, MaxZoom float32
}

// New creates a camera centered on the arena at zoom 1.
func New(viewportW, viewportH float32, arena float64, scale float32) *Camera {
	c := &Camera{
		X:       arena / 2,
		Y:       arena / 2,
		Zoom:    1,
		Scale:   scale,
		Arena:   arena,
		MaxZoom: 8,
	}
	c.Resize(viewportW, viewportH)
	return c
}

// PixelsPerUnit returns the current screen size of one arena unit.
func (c *Camera) PixelsPerUnit() float32 {
	return c.Scale * c.Zoom
}

// WorldToScreen converts arena coordinates to screen coordinates along
// the shortest wrapped offset from the view center.
func (c *Camera) WorldToScreen(x, y float64) (sx, sy float32) {
	ppu := c.PixelsPerUnit()
	sx = c.ViewportW/2 + float32(wrapDelta(x, c.X, c.Arena))*ppu
	sy = c.ViewportH/2 + float32(wrapDelta(y, c.Y, c.Arena))*ppu
	return sx, sy
}

// ScreenToWorld converts screen coordinates to arena coordinates in [0, arena).
func (c *Camera) ScreenToWorld(sx, sy float32) (x, y float64) {
	ppu := float64(c.PixelsPerUnit())
	x = mod(c.X+float64(sx-c.ViewportW/2)/ppu, c.Arena)
	y = mod(c.Y+float64(sy-c.ViewportH/2)/ppu, c.Arena)
	return x, y
}

// IsVisible reports whether a circle at (x, y) with a screen radius in
// pixels may overlap the viewport.
func (c *Camera) IsVisible(x, y float64, radiusPx float32) bool {
	sx, sy := c.WorldToScreen(x, y)
	return sx >= -radiusPx && sx <= c.ViewportW+radiusPx &&
		sy >= -radiusPx && sy <= c.ViewportH+radiusPx
}

// Resize updates the viewport and the zoom floor that keeps the arena
// covering the whole window.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	arenaPx := float32(c.Arena) * c.Scale
	c.MinZoom = max(viewportW/arenaPx, viewportH/arenaPx)
	if c.MinZoom > c.MaxZoom {
		c.MaxZoom = c.MinZoom
	}
	c.SetZoom(c.Zoom)
}

// Pan moves the view by a screen-pixel delta, wrapping at the arena edges.
func (c *Camera) Pan(dxPx, dyPx float32) {
	ppu := float64(c.PixelsPerUnit())
	c.X = mod(c.X+float64(dxPx)/ppu, c.Arena)
	c.Y = mod(c.Y+float64(dyPx)/ppu, c.Arena)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = min(max(zoom, c.MinZoom), c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the arena center at the lowest zoom that
// still fills the window.
func (c *Camera) Reset() {
	c.X = c.Arena / 2
	c.Y = c.Arena / 2
	c.SetZoom(1)
}

// wrapDelta returns the shortest signed offset from 'from' to 'to' on a
// circle of the given size.
func wrapDelta(to, from, size float64) float64 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
