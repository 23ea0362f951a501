package mcpserver

import (
	"math"

	"whiteboard/internal/domain"
	"whiteboard/internal/spatial"
)

const (
	GridSize = 20.0
	Padding  = 40.0 // 2 grid cells between objects
	MaxRowW  = 2000.0
)

// placer finds a free spot for objects created without a position, so
// agent-created objects don't land on top of existing ones.
type placer struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

func newPlacer() *placer {
	return &placer{gridSize: GridSize, padding: Padding, maxRowW: MaxRowW}
}

// snap rounds v to the nearest grid point.
func (p *placer) snap(v float64) float64 {
	return math.Round(v/p.gridSize) * p.gridSize
}

// NextPosition scans grid rows top to bottom for a (w, h) box that keeps
// Padding clear of every non-connector on the board.
func (p *placer) NextPosition(existing []domain.BoardObject, w, h float64) (float64, float64) {
	var occupied []spatial.Rect
	maxY := 0.0
	for _, o := range existing {
		if o.IsConnector() {
			continue
		}
		r := spatial.RectOf(o)
		occupied = append(occupied, spatial.Rect{
			X: r.X - p.padding,
			Y: r.Y - p.padding,
			W: r.W + p.padding*2,
			H: r.H + p.padding*2,
		})
		maxY = math.Max(maxY, r.Bottom())
	}
	if len(occupied) == 0 {
		return 0, 0
	}

	for y := 0.0; y < 100000; y += p.gridSize {
		for x := 0.0; x+w <= p.maxRowW; x += p.gridSize {
			candidate := spatial.Rect{X: p.snap(x), Y: p.snap(y), W: w, H: h}
			free := true
			for _, occ := range occupied {
				if candidate.Overlaps(occ) {
					free = false
					break
				}
			}
			if free {
				return candidate.X, candidate.Y
			}
		}
	}

	// Fallback: below everything
	return 0, p.snap(maxY + p.padding)
}
