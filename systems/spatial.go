// Package systems provides ECS systems for the simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
)

// SpatialGrid buckets entities by cell for square range queries.
// It is rebuilt by the caller whenever positions change; entries for
// removed entities are left in place and must be filtered by the caller.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	arena    float64
	cells    [][]ecs.Entity // flat grid of entity lists

	colMark []bool
	rowMark []bool
}

// NewSpatialGrid creates a grid covering a square arena.
func NewSpatialGrid(arena, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = arena
	}
	cols := int(arena/cellSize) + 1
	rows := cols

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		arena:    arena,
		cells:    cells,
		colMark:  make([]bool, cols),
		rowMark:  make([]bool, rows),
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, p components.Position) {
	col := g.index(p.X, g.cols)
	row := g.index(p.Y, g.rows)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], e)
}

// QuerySquareInto appends to dst every entity whose cell intersects the
// folded square of half-width dist around center. The result is a superset
// of the exact range; callers confirm with components.WithinSquareRange.
// Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QuerySquareInto(dst []ecs.Entity, center components.Position, dist float64) []ecs.Entity {
	g.markAxis(g.colMark, center.X, dist)
	g.markAxis(g.rowMark, center.Y, dist)

	for row, rowOK := range g.rowMark {
		if !rowOK {
			continue
		}
		for col, colOK := range g.colMark {
			if !colOK {
				continue
			}
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	return dst
}

// markAxis flags every cell index touched by the folded intervals on one axis.
func (g *SpatialGrid) markAxis(mark []bool, c, dist float64) {
	for i := range mark {
		mark[i] = false
	}
	main, fold, folded := components.FoldIntervals(c, dist, g.arena)
	g.markInterval(mark, main)
	if folded {
		g.markInterval(mark, fold)
	}
}

func (g *SpatialGrid) markInterval(mark []bool, iv components.Interval) {
	lo := g.index(iv.Lo, len(mark))
	hi := g.index(iv.Hi, len(mark))
	for i := lo; i <= hi; i++ {
		mark[i] = true
	}
}

// index returns the clamped cell index for a coordinate.
func (g *SpatialGrid) index(v float64, n int) int {
	i := int(v / g.cellSize)
	if v < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}
