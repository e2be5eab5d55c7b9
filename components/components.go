// Package components defines ECS components for the simulation.
package components

// Kind tags what an agent is.
type Kind uint8

const (
	KindPlant Kind = iota
	KindPrey
	KindPredator
)

// NumKinds is the number of agent kinds.
const NumKinds = 3

func (k Kind) String() string {
	switch k {
	case KindPlant:
		return "plant"
	case KindPrey:
		return "prey"
	case KindPredator:
		return "predator"
	}
	return "unknown"
}

// IsAnimal reports whether agents of this kind move, age and eat.
func (k Kind) IsAnimal() bool {
	return k == KindPrey || k == KindPredator
}

// Eats reports whether k feeds on target.
// Predators eat prey and plants; prey eat plants.
func (k Kind) Eats(target Kind) bool {
	switch k {
	case KindPredator:
		return target == KindPrey || target == KindPlant
	case KindPrey:
		return target == KindPlant
	}
	return false
}

// TrailLen is how many positions an agent remembers. Two is enough to
// recover the previous heading.
const TrailLen = 2

// Trail holds the most recent positions of an agent, oldest first.
// The last point is the current position.
type Trail struct {
	Points [TrailLen]Position
	Count  uint8
}

// NewTrail returns a trail holding only p.
func NewTrail(p Position) Trail {
	t := Trail{Count: 1}
	t.Points[0] = p
	return t
}

// Current returns the agent's current position.
func (t *Trail) Current() Position {
	return t.Points[t.Count-1]
}

// Previous returns the position before the current one, if any.
func (t *Trail) Previous() (Position, bool) {
	if t.Count < 2 {
		return Position{}, false
	}
	return t.Points[t.Count-2], true
}

// Push appends p, dropping the oldest point when full.
func (t *Trail) Push(p Position) {
	if int(t.Count) < TrailLen {
		t.Points[t.Count] = p
		t.Count++
		return
	}
	copy(t.Points[:], t.Points[1:])
	t.Points[TrailLen-1] = p
}

// Advance moves distance along heading from the current position and
// returns true if the new position lies outside the arena.
func (t *Trail) Advance(distance, heading, arena float64) bool {
	next := t.Current().Offset(distance, heading)
	t.Push(next)
	return next.Outside(arena)
}

// Vitals holds per-animal state. Plants carry none.
type Vitals struct {
	Age           int32   // ticks alive
	TicksSinceFed int32   // -1 right after eating, 0 on the next tick
	Speed         float64 // distance per tick chosen for the current move
	HasReproduced bool    // cleared at the end of every tick
	AtePlant      bool    // halves the next move, then clears
}
