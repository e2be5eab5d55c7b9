package components

import "math"

// Position is a point in arena coordinates.
type Position struct {
	X, Y float64
}

// Distance returns the Euclidean distance to q. Arena edges are not folded.
func (p Position) Distance(q Position) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Bearing returns the heading that moves from p towards q.
func (p Position) Bearing(q Position) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}

// Offset returns the position reached by moving d along heading.
func (p Position) Offset(d, heading float64) Position {
	return Position{
		X: p.X + d*math.Cos(heading),
		Y: p.Y + d*math.Sin(heading),
	}
}

// Outside reports whether p lies outside [0, arena] on either axis.
// The edges themselves are inside.
func (p Position) Outside(arena float64) bool {
	return p.X < 0 || p.X > arena || p.Y < 0 || p.Y > arena
}

// Interval is a closed range [Lo, Hi] on one axis.
type Interval struct {
	Lo, Hi float64
}

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v float64) bool {
	return iv.Lo <= v && v <= iv.Hi
}

// FoldIntervals returns the inclusion intervals of a square range query of
// half-width dist centred at c on an axis of length arena. The part of
// [c-dist, c+dist] that falls past an edge reappears at the opposite edge as
// a second interval.
func FoldIntervals(c, dist, arena float64) (main Interval, fold Interval, folded bool) {
	lo := c - dist
	hi := c + dist

	switch {
	case lo <= 0 && hi >= arena:
		// Query covers the whole axis.
		return Interval{0, arena}, Interval{}, false
	case lo <= 0:
		return Interval{0, hi}, Interval{arena + lo, arena}, true
	case hi >= arena:
		return Interval{lo, arena}, Interval{0, hi - arena}, true
	}
	return Interval{lo, hi}, Interval{}, false
}

func withinFolded(c, dist, v, arena float64) bool {
	main, fold, folded := FoldIntervals(c, dist, arena)
	if main.Contains(v) {
		return true
	}
	return folded && fold.Contains(v)
}

// WithinSquareRange reports whether target lies in the square of half-width
// dist around center, with the square folded across the arena edges.
// Only range queries fold; agents themselves never wrap.
func WithinSquareRange(center Position, dist float64, target Position, arena float64) bool {
	return withinFolded(center.X, dist, target.X, arena) &&
		withinFolded(center.Y, dist, target.Y, arena)
}
