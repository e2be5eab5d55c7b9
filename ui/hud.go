package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title    string
	Prey     int
	Pred     int
	Plants   int
	Tick     int32
	Speed    int
	FPS      int32
	Paused   bool
	RatePred float64
	RatePrey float64

	// Tick cost over the recent window and the phase dominating it.
	TickCost  time.Duration
	SlowPhase string
	SlowShare float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawRectangle(0, 0, 330, 114, rl.Color{R: 0, G: 0, B: 0, A: 150})

	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Prey: %d | Pred: %d | Plants: %d", data.Prey, data.Pred, data.Plants),
		10, 35, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.Speed, data.FPS),
		10, 53, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Rate pred %.3f | prey %.3f", data.RatePred, data.RatePrey),
		10, 71, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick cost %s | %s %.0f%%", data.TickCost.Round(time.Microsecond), data.SlowPhase, data.SlowShare),
		10, 89, 14, rl.LightGray,
	)

	if data.Paused {
		rl.DrawText("PAUSED", 250, 10, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-20, 12, rl.Gray)
}
