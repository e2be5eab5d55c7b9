package game

import (
	"context"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/camera"
	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/ui"
)

const (
	controlsWidth  = 220
	controlsHeight = 76
)

// Agent colors on the black background.
var kindColors = [components.NumKinds]rl.Color{
	components.KindPlant:    rl.Green,
	components.KindPrey:     rl.Orange,
	components.KindPredator: rl.Red,
}

// controlsView couples the raygui panel with the state it edits.
type controlsView struct {
	*ui.ControlsPanel
	state ui.ControlsState
}

// viewState is the graphical front end. It only exists once InitView has
// been called with a window open.
type viewState struct {
	camera   *camera.Camera
	hud      *ui.HUD
	controls controlsView
	panel    *ui.AgentPanel

	selected     ecs.Entity
	hasSelection bool
}

func (v *viewState) overControls(p rl.Vector2) bool {
	return rl.CheckCollisionPointRec(p, rl.Rectangle{
		X:      v.camera.ViewportW - controlsWidth - 10,
		Y:      v.camera.ViewportH - controlsHeight - 10,
		Width:  controlsWidth,
		Height: controlsHeight,
	})
}

// InitView sets up the camera and panels. Call after rl.InitWindow.
func (g *Game) InitView() {
	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	g.view = &viewState{
		camera: camera.New(w, h, g.rules.Arena, float32(g.cfg.Render.Scale)),
		hud:    ui.NewHUD(),
		controls: controlsView{
			ControlsPanel: ui.NewControlsPanel(w-controlsWidth-10, h-controlsHeight-10, controlsWidth),
			state:         ui.ControlsState{StepsPerUpdate: 1},
		},
		panel: ui.NewAgentPanel(220),
	}
}

// Update handles input and, when due is set, advances the simulation by
// the selected number of ticks. Step advances one tick while paused
// regardless of due.
func (g *Game) Update(ctx context.Context, due bool) error {
	g.handleInput()

	state := g.view.controls.state
	steps := 0
	switch {
	case state.Paused && state.Step:
		steps = 1
	case !state.Paused && due:
		steps = state.StepsPerUpdate
	}
	for i := 0; i < steps && !g.Terminated(); i++ {
		if err := g.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Draw renders the current frame.
func (g *Game) Draw() {
	v := g.view
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.drawAgents()

	if v.hasSelection && !g.pop.Alive(v.selected) {
		v.hasSelection = false
	}
	if v.hasSelection {
		g.drawSelection()
	}

	prey, pred, plants := g.Counts()
	perf := g.PerfStats()
	slow, share := perf.Slowest()
	v.hud.Draw(ui.HUDData{
		Title:    "ecotile",
		Prey:     prey,
		Pred:     pred,
		Plants:   plants,
		Tick:     g.tick,
		Speed:    v.controls.state.StepsPerUpdate,
		FPS:      rl.GetFPS(),
		Paused:   v.controls.state.Paused,
		RatePred: g.rates.Pred,
		RatePrey: g.rates.Prey,

		TickCost:  perf.AvgTick,
		SlowPhase: slow.String(),
		SlowShare: share,
	})
	v.hud.DrawControls(int32(v.camera.ViewportH), "[Space] pause  [</>] speed  [arrows] pan  [wheel] zoom  [Home] reset")

	v.controls.state = v.controls.Draw(v.controls.state)

	rl.EndDrawing()
}

// drawAgents renders every agent in the last frame as a filled circle.
func (g *Game) drawAgents() {
	cam := g.view.camera
	radius := float32(g.cfg.Render.ElementRadius) * cam.Zoom
	for _, s := range g.frame {
		if !cam.IsVisible(s.X, s.Y, radius) {
			continue
		}
		sx, sy := cam.WorldToScreen(s.X, s.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, kindColors[s.Kind])
	}
}

// drawSelection rings the selected agent and shows its panel.
func (g *Game) drawSelection() {
	v := g.view
	pos := g.pop.Position(v.selected)
	sx, sy := v.camera.WorldToScreen(pos.X, pos.Y)
	radius := float32(g.cfg.Render.ElementRadius)*v.camera.Zoom + 4
	rl.DrawCircleLinesV(rl.Vector2{X: sx, Y: sy}, radius, rl.White)

	v.panel.Draw(int32(v.camera.ViewportW)-10, 10, g.describe(v.selected))
}
