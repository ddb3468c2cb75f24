package movement

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/domain"
)

// DefaultCellSize is metres per raster cell (a 200x200 farm map over 1 km).
const DefaultCellSize = 5.0

// ErrInvalidTerrain is wrapped by terrain construction errors.
var ErrInvalidTerrain = errors.New("movement: invalid terrain")

// Cell is a raster coordinate.
type Cell struct {
	X, Y int
}

// TerrainBiased steers each agent toward the most preferred cell in the 3x3
// block around it, choosing uniformly among ties.
type TerrainBiased struct {
	raster   *Raster
	cellSize float64
	fallback UniformRandom
}

// NewTerrainBiased builds the strategy. cellSize converts domain distance to
// raster cells.
func NewTerrainBiased(dom domain.Domain, raster *Raster, cellSize float64) (*TerrainBiased, error) {
	if raster == nil {
		return nil, fmt.Errorf("%w: nil raster", ErrInvalidTerrain)
	}
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidTerrain, cellSize)
	}
	return &TerrainBiased{raster: raster, cellSize: cellSize, fallback: UniformRandom{Domain: dom}}, nil
}

// Interval implements Strategy.
func (*TerrainBiased) Interval() int { return 1 }

// CellOf maps a domain position to its raster cell.
func (t *TerrainBiased) CellOf(pos r2.Vec) Cell {
	return Cell{X: int(math.Floor(pos.X / t.cellSize)), Y: int(math.Floor(pos.Y / t.cellSize))}
}

// Center is the domain position of a cell's centre.
func (t *TerrainBiased) Center(c Cell) r2.Vec {
	return r2.Vec{X: (float64(c.X) + 0.5) * t.cellSize, Y: (float64(c.Y) + 0.5) * t.cellSize}
}

// Candidates returns the cells of the 3x3 block around pos, clipped to the
// raster, that share the block's highest preference.
func (t *TerrainBiased) Candidates(pos r2.Vec) []Cell {
	home := t.CellOf(pos)

	best := math.MinInt
	var ties []Cell
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			c := Cell{X: home.X + dx, Y: home.Y + dy}
			v, ok := t.raster.At(c.X, c.Y)
			if !ok {
				continue
			}
			switch {
			case v > best:
				best = v
				ties = append(ties[:0], c)
			case v == best:
				ties = append(ties, c)
			}
		}
	}
	return ties
}

// Heading implements Strategy.
func (t *TerrainBiased) Heading(pos r2.Vec, rng *rand.Rand) r2.Vec {
	ties := t.Candidates(pos)
	if len(ties) == 0 {
		return t.fallback.Heading(pos, rng)
	}
	c := ties[rng.Intn(len(ties))]
	return toward(pos, t.Center(c))
}
