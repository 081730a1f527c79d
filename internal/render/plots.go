// Package render draws movement summaries as PNG plots (gonum/plot) and
// HTML dashboards (go-echarts).
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/movement.report/internal/fsutil"
	"github.com/banshee-data/movement.report/internal/heatmap"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/units"
)

// Plot sizes match the dashboard's 105:68 pitch aspect.
const (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 6.5 * vg.Inch
)

var (
	// WithBallColor and WithoutBallColor colour sprint vectors by possession.
	WithBallColor    = color.RGBA{R: 0x32, G: 0xFE, B: 0x6B, A: 255}
	WithoutBallColor = color.RGBA{R: 0xE5, G: 0xBA, B: 0x21, A: 255}

	lineColor = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 255}
)

// gridXYZ adapts an occupancy grid to plotter.GridXYZ.
type gridXYZ struct{ g *heatmap.Grid }

func (a gridXYZ) Dims() (c, r int)   { return a.g.Dims() }
func (a gridXYZ) Z(c, r int) float64 { return a.g.Count(c, r) }
func (a gridXYZ) X(c int) float64 {
	x, _ := a.g.Centre(c, 0)
	return x
}
func (a gridXYZ) Y(r int) float64 {
	_, y := a.g.Centre(0, r)
	return y
}

// HeatMapPlot draws the occupancy grid over a pitch outline.
func HeatMapPlot(title string, g *heatmap.Grid, lengthUnit string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	setPitchAxes(p, g.Pitch, lengthUnit)

	hm := plotter.NewHeatMap(gridXYZ{g}, palette.Heat(12, 1))
	hm.Min = 0
	hm.Max = math.Max(g.Max(), 1)
	p.Add(hm)

	if err := addPitchOutline(p, g.Pitch); err != nil {
		return nil, err
	}
	return p, nil
}

// SprintMapPlot draws one arrow per sprint vector, starting at the sample
// position and extending along its displacement multiplied by scale.
func SprintMapPlot(title string, pitch heatmap.Pitch, vectors []movement.SprintVector, scale float64, lengthUnit string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	setPitchAxes(p, pitch, lengthUnit)

	if err := addPitchOutline(p, pitch); err != nil {
		return nil, err
	}

	with, without := movement.SplitByPossession(vectors)
	for _, set := range []struct {
		label   string
		color   color.Color
		vectors []movement.SprintVector
	}{
		{"with ball", WithBallColor, with},
		{"without ball", WithoutBallColor, without},
	} {
		if len(set.vectors) == 0 {
			continue
		}
		heads := make(plotter.XYs, 0, len(set.vectors))
		var first *plotter.Line
		for _, v := range set.vectors {
			hx, hy := v.X+v.DX*scale, v.Y+v.DY*scale
			l, err := plotter.NewLine(plotter.XYs{{X: v.X, Y: v.Y}, {X: hx, Y: hy}})
			if err != nil {
				return nil, err
			}
			l.Color = set.color
			l.Width = vg.Points(1.5)
			p.Add(l)
			if first == nil {
				first = l
			}
			heads = append(heads, plotter.XY{X: hx, Y: hy})
		}

		sc, err := plotter.NewScatter(heads)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = set.color
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Shape = draw.TriangleGlyph{}
		p.Add(sc)
		p.Legend.Add(set.label, first)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func setPitchAxes(p *plot.Plot, pitch heatmap.Pitch, lengthUnit string) {
	minX, maxX, minY, maxY := pitch.Bounds()
	padX, padY := pitch.Length*0.03, pitch.Width*0.03
	p.X.Min, p.X.Max = minX-padX, maxX+padX
	p.Y.Min, p.Y.Max = minY-padY, maxY+padY
	p.X.Label.Text = fmt.Sprintf("X (%s)", units.LengthLabel(lengthUnit))
	p.Y.Label.Text = fmt.Sprintf("Y (%s)", units.LengthLabel(lengthUnit))
}

// addPitchOutline draws touchlines, the halfway line and the centre circle.
func addPitchOutline(p *plot.Plot, pitch heatmap.Pitch) error {
	minX, maxX, minY, maxY := pitch.Bounds()
	shapes := []plotter.XYs{
		{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}, {X: minX, Y: minY}},
		{{X: 0, Y: minY}, {X: 0, Y: maxY}},
		circle(0, 0, pitch.Width*9.15/68, 48),
	}
	for _, pts := range shapes {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		l.Color = lineColor
		l.Width = vg.Points(1)
		p.Add(l)
	}
	return nil
}

func circle(cx, cy, r float64, n int) plotter.XYs {
	pts := make(plotter.XYs, n+1)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = plotter.XY{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

// WritePNG encodes p as a PNG of the standard plot size.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG writes p to path on fsys, creating the parent directory.
func SavePNG(fsys fsutil.FileSystem, p *plot.Plot, path string) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(p, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
