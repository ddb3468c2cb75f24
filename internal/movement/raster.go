package movement

import (
	"fmt"
	"image"
	"image/color"
	"io"

	// Land-cover maps come as PNG, BMP or TIFF exports.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Unranked is the preference of a grey level missing from the ranking.
const Unranked = -1

// Ranking maps a land-cover grey level to a preference, higher is better.
type Ranking map[uint8]int

// DefaultRanking is the farm map classification: pine, pasture, savannah,
// woods and water, in increasing order of midge preference.
func DefaultRanking() Ranking {
	return RankingFromOrder([]uint8{192, 225, 137, 57, 200})
}

// RankingFromOrder ranks grey levels by their position in order.
func RankingFromOrder(order []uint8) Ranking {
	r := make(Ranking, len(order))
	for i, v := range order {
		r[v] = i
	}
	return r
}

// Rank returns the preference of grey level v.
func (r Ranking) Rank(v uint8) int {
	if rank, ok := r[v]; ok {
		return rank
	}
	return Unranked
}

// Raster is a grid of preference values indexed by (x, y).
type Raster struct {
	width, height int
	cells         []int
}

// NewRaster wraps row-major preference values (y rows of width x).
func NewRaster(width, height int, prefs []int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster size %dx%d", ErrInvalidTerrain, width, height)
	}
	if len(prefs) != width*height {
		return nil, fmt.Errorf("%w: %d values for a %dx%d raster", ErrInvalidTerrain, len(prefs), width, height)
	}
	cells := make([]int, len(prefs))
	copy(cells, prefs)
	return &Raster{width: width, height: height, cells: cells}, nil
}

// NewUniformRaster returns a raster where every cell has preference v.
func NewUniformRaster(width, height, v int) (*Raster, error) {
	prefs := make([]int, width*height)
	for i := range prefs {
		prefs[i] = v
	}
	return NewRaster(width, height, prefs)
}

// Size returns the raster dimensions in cells.
func (r *Raster) Size() (width, height int) { return r.width, r.height }

// At returns the preference at (x, y) and false when the cell is off the raster.
func (r *Raster) At(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return 0, false
	}
	return r.cells[y*r.width+x], true
}

// FromImage converts an image to grey levels and ranks every pixel.
func FromImage(img image.Image, ranking Ranking) (*Raster, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	prefs := make([]int, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			prefs = append(prefs, ranking.Rank(g.Y))
		}
	}
	return NewRaster(w, h, prefs)
}

// LoadRaster decodes a land-cover image and ranks it.
func LoadRaster(r io.Reader, ranking Ranking) (*Raster, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode land-cover map: %w", err)
	}
	raster, err := FromImage(img, ranking)
	if err != nil {
		return nil, fmt.Errorf("rank %s land-cover map: %w", format, err)
	}
	return raster, nil
}
