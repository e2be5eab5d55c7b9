package camera

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestNew(t *testing.T) {
	cam := New(800, 800, 400, 2)

	if cam.X != 200 || cam.Y != 200 {
		t.Errorf("expected camera at (200, 200), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1 || cam.MinZoom != 1 {
		t.Errorf("expected zoom 1 and min zoom 1, got %f / %f", cam.Zoom, cam.MinZoom)
	}
	if cam.PixelsPerUnit() != 2 {
		t.Errorf("PixelsPerUnit = %f, want 2", cam.PixelsPerUnit())
	}
}

func TestWorldToScreenMatchesPlainScaleAtRest(t *testing.T) {
	cam := New(800, 800, 400, 2)

	// Centered at zoom 1 the arena maps 1:scale onto the window.
	for _, p := range []struct{ x, y float64 }{{0.5, 0.5}, {100, 300}, {250, 199}} {
		sx, sy := cam.WorldToScreen(p.x, p.y)
		if !near(float64(sx), p.x*2) || !near(float64(sy), p.y*2) {
			t.Errorf("WorldToScreen(%v, %v) = (%v, %v), want (%v, %v)", p.x, p.y, sx, sy, p.x*2, p.y*2)
		}
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.ZoomBy(2.5)
	cam.Pan(130, -70)

	for _, tc := range []struct{ sx, sy float32 }{{400, 400}, {10, 10}, {790, 600}} {
		x, y := cam.ScreenToWorld(tc.sx, tc.sy)
		if x < 0 || x >= 400 || y < 0 || y >= 400 {
			t.Errorf("ScreenToWorld(%v, %v) = (%v, %v) outside arena", tc.sx, tc.sy, x, y)
		}
		sx, sy := cam.WorldToScreen(x, y)
		if !near(float64(sx), float64(tc.sx)) || !near(float64(sy), float64(tc.sy)) {
			t.Errorf("roundtrip failed: (%v,%v) -> (%v,%v) -> (%v,%v)", tc.sx, tc.sy, x, y, sx, sy)
		}
	}
}

func TestWrappedView(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.X = 10 // near the left edge

	// An agent at the far right is drawn just left of the center.
	sx, _ := cam.WorldToScreen(395, 200)
	if !near(float64(sx), 400-15*2) {
		t.Errorf("expected wrapped x %v, got %v", 400-15*2, sx)
	}
}

func TestPanWraps(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.X = 20

	cam.Pan(-100, 0) // 50 arena units left

	if !near(cam.X, 370) {
		t.Errorf("expected X to wrap to 370, got %f", cam.X)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(800, 800, 400, 2)

	cam.SetZoom(0.1)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}
}

func TestResizeRaisesMinZoom(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.Resize(1200, 900)

	if !near(float64(cam.MinZoom), 1.5) {
		t.Errorf("expected MinZoom 1.5, got %f", cam.MinZoom)
	}
	if cam.Zoom < cam.MinZoom {
		t.Errorf("zoom %f below min %f after resize", cam.Zoom, cam.MinZoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.SetZoom(4) // view spans 100 arena units around (200, 200)

	if !cam.IsVisible(200, 200, 2) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(20, 20, 2) {
		t.Error("far point should not be visible")
	}
	if !cam.IsVisible(149, 200, 8) {
		t.Error("edge point with large radius should be visible")
	}
}

func TestReset(t *testing.T) {
	cam := New(800, 800, 400, 2)
	cam.X = 50
	cam.Y = 70
	cam.Zoom = 2.5

	cam.Reset()

	if cam.X != 200 || cam.Y != 200 {
		t.Errorf("expected position (200, 200), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1 {
		t.Errorf("expected zoom 1, got %f", cam.Zoom)
	}
}
