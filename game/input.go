package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/ui"
)

// pickRadiusPx is how close to an agent, in screen pixels, a click must land.
const pickRadiusPx = 8

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	v := g.view

	if rl.IsWindowResized() {
		w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
		v.camera.Resize(w, h)
		v.controls.SetPosition(w-controlsWidth-10, h-controlsHeight-10)
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v.controls.state.Paused = !v.controls.state.Paused
	}
	if rl.IsKeyPressed(rl.KeyComma) && v.controls.state.StepsPerUpdate > 1 {
		v.controls.state.StepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.controls.state.StepsPerUpdate < ui.MaxStepsPerUpdate {
		v.controls.state.StepsPerUpdate++
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		v.hasSelection = false
	}

	g.handleCameraInput()

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !v.overControls(rl.GetMousePosition()) {
		mouse := rl.GetMousePosition()
		x, y := v.camera.ScreenToWorld(mouse.X, mouse.Y)
		radius := float64(pickRadiusPx / v.camera.PixelsPerUnit())
		v.selected, v.hasSelection = g.AgentAt(components.Position{X: x, Y: y}, radius)
	}
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	cam := g.view.camera

	// Pan speed in screen pixels per frame
	const panSpeed = 8

	if rl.IsKeyDown(rl.KeyRight) {
		cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		cam.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		cam.Reset()
	}
}
