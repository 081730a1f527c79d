// Package heatmap bins tracking positions into a pitch-aligned occupancy
// grid.
package heatmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/movement.report/internal/tracking"
)

// Pitch is the playing surface, centred on the origin.
type Pitch struct {
	Length float64 // along x
	Width  float64 // along y
}

// DefaultPitch is a 105x68 pitch.
var DefaultPitch = Pitch{Length: 105, Width: 68}

// Bounds returns the pitch extents.
func (p Pitch) Bounds() (minX, maxX, minY, maxY float64) {
	return -p.Length / 2, p.Length / 2, -p.Width / 2, p.Width / 2
}

// Grid is a 2-D histogram of sample positions. Counts is binsY rows by
// binsX columns; row 0 is the lowest y band.
type Grid struct {
	Pitch   Pitch
	XEdges  []float64 // len binsX+1
	YEdges  []float64 // len binsY+1
	Counts  *mat.Dense
	Total   int // samples binned
	Outside int // samples off the pitch
}

// Occupancy bins samples by position. The right-most and top-most edges are
// inclusive so samples on the touchline are counted; anything else outside
// the pitch goes to Outside.
func Occupancy(samples []tracking.Sample, pitch Pitch, binsX, binsY int) (*Grid, error) {
	if binsX < 1 || binsY < 1 {
		return nil, fmt.Errorf("heatmap: bins must be positive, got %dx%d", binsX, binsY)
	}
	if !(pitch.Length > 0) || !(pitch.Width > 0) {
		return nil, fmt.Errorf("heatmap: invalid pitch %gx%g", pitch.Length, pitch.Width)
	}

	minX, maxX, minY, maxY := pitch.Bounds()
	g := &Grid{
		Pitch:  pitch,
		XEdges: make([]float64, binsX+1),
		YEdges: make([]float64, binsY+1),
		Counts: mat.NewDense(binsY, binsX, nil),
	}
	floats.Span(g.XEdges, minX, maxX)
	floats.Span(g.YEdges, minY, maxY)

	for _, s := range samples {
		col, okX := bin(s.X, minX, maxX, binsX)
		row, okY := bin(s.Y, minY, maxY, binsY)
		if !okX || !okY {
			g.Outside++
			continue
		}
		g.Counts.Set(row, col, g.Counts.At(row, col)+1)
		g.Total++
	}
	return g, nil
}

func bin(v, lo, hi float64, n int) (int, bool) {
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, false
	}
	i := int((v - lo) / (hi - lo) * float64(n))
	if i == n {
		i = n - 1
	}
	return i, true
}

// Dims returns the number of columns (x bins) and rows (y bins).
func (g *Grid) Dims() (binsX, binsY int) {
	r, c := g.Counts.Dims()
	return c, r
}

// Count returns the sample count in column x, row y.
func (g *Grid) Count(x, y int) float64 { return g.Counts.At(y, x) }

// Centre returns the midpoint of cell (x, y).
func (g *Grid) Centre(x, y int) (float64, float64) {
	return (g.XEdges[x] + g.XEdges[x+1]) / 2, (g.YEdges[y] + g.YEdges[y+1]) / 2
}

// Max returns the largest cell count.
func (g *Grid) Max() float64 {
	return mat.Max(g.Counts)
}

// Normalized returns the counts scaled so the busiest cell is 1. An empty
// grid normalises to all zeros.
func (g *Grid) Normalized() *mat.Dense {
	var out mat.Dense
	out.CloneFrom(g.Counts)
	if m := g.Max(); m > 0 {
		out.Scale(1/m, &out)
	}
	return &out
}

// Seconds converts counts to time spent, assuming one sample every
// samplePeriod seconds.
func (g *Grid) Seconds(samplePeriod float64) *mat.Dense {
	var out mat.Dense
	out.Scale(samplePeriod, g.Counts)
	return &out
}
