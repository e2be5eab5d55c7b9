package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// AgentData is the selected agent as shown in the panel.
type AgentData struct {
	Kind          string
	X, Y          float64
	IsAnimal      bool
	Age           int32
	MaxAge        int32
	TicksSinceFed int32
	LastMeal      int32
	Speed         float64
	HasReproduced bool
}

// AgentPanel shows one agent's state.
type AgentPanel struct {
	renderer *Renderer
	width    int32
}

// NewAgentPanel creates a panel of the given width.
func NewAgentPanel(width int32) *AgentPanel {
	return &AgentPanel{renderer: NewRenderer(), width: width}
}

// Draw renders the panel with its top-right corner at (right, top).
func (p *AgentPanel) Draw(right, top int32, a AgentData) {
	r := p.renderer
	height := int32(64)
	if a.IsAnimal {
		height = 140
	}
	x := right - p.width
	r.DrawPanel(x, top, p.width, height)

	x += r.Theme.Padding
	y := r.DrawSectionHeader(x, top+r.Theme.Padding, a.Kind)
	y = r.DrawLabelValue(x, y, "Position", fmt.Sprintf("%.1f, %.1f", a.X, a.Y))
	if !a.IsAnimal {
		return
	}
	inner := p.width - 2*r.Theme.Padding
	y = r.DrawLimitBar(x, y, "Age", a.Age, a.MaxAge, inner)
	y = r.DrawLimitBar(x, y, "Hunger", a.TicksSinceFed, a.LastMeal, inner)
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.1f", a.Speed))
	mated := "no"
	if a.HasReproduced {
		mated = "yes"
	}
	r.DrawLabelValue(x, y, "Mated", mated)
	rl.DrawText("[Backspace] deselect", x, top+height-18, 10, rl.Gray)
}
