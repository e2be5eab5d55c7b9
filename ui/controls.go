package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// MaxStepsPerUpdate bounds the speed slider.
const MaxStepsPerUpdate = 10

// ControlsState is what the controls panel edits.
type ControlsState struct {
	Paused         bool
	StepsPerUpdate int
	Step           bool // advance one tick while paused
}

// ControlsPanel renders the run controls with raygui widgets.
type ControlsPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
}

// NewControlsPanel creates a panel anchored at (x, y).
func NewControlsPanel(x, y, width float32) *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition moves the panel.
func (c *ControlsPanel) SetPosition(x, y float32) {
	c.x, c.y = x, y
}

// Draw renders the panel and returns the state after this frame's clicks.
func (c *ControlsPanel) Draw(state ControlsState) ControlsState {
	state.Step = false
	pad := float32(c.renderer.Theme.Padding)
	c.renderer.DrawPanel(int32(c.x), int32(c.y), int32(c.width), 76)

	bw := (c.width - 3*pad) / 2
	label := "Pause"
	if state.Paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: c.x + pad, Y: c.y + pad, Width: bw, Height: 24}, label) {
		state.Paused = !state.Paused
	}
	if gui.Button(rl.Rectangle{X: c.x + 2*pad + bw, Y: c.y + pad, Width: bw, Height: 24}, "Step") && state.Paused {
		state.Step = true
	}

	speed := gui.SliderBar(
		rl.Rectangle{X: c.x + pad + 40, Y: c.y + 2*pad + 24, Width: c.width - 2*pad - 80, Height: 20},
		"Speed", fmt.Sprintf("%dx", state.StepsPerUpdate),
		float32(state.StepsPerUpdate), 1, MaxStepsPerUpdate,
	)
	state.StepsPerUpdate = clampSteps(int(math.Round(float64(speed))))
	return state
}

func clampSteps(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxStepsPerUpdate {
		return MaxStepsPerUpdate
	}
	return n
}
