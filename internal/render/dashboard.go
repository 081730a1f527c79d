package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/movement.report/internal/heatmap"
	"github.com/banshee-data/movement.report/internal/movement"
	"github.com/banshee-data/movement.report/internal/units"
)

// AssetsHost is where the dashboard loads echarts.min.js from. Empty uses
// the go-echarts default CDN.
var AssetsHost = ""

// viridis, low to high.
var heatColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Dashboard is everything shown on one entity's page.
type Dashboard struct {
	Title      string
	Summary    movement.Summary
	Grid       *heatmap.Grid
	Vectors    []movement.SprintVector
	LengthUnit string
	SpeedUnits string
}

// DashboardPage renders an HTML page with the occupancy heat map, the
// sprint map and a distance breakdown.
func DashboardPage(w io.Writer, d Dashboard) error {
	page := components.NewPage()
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.PageTitle = d.Title

	if d.Grid != nil {
		page.AddCharts(d.heatChart())
	}
	page.AddCharts(d.sprintChart(), d.distanceChart())

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func (d Dashboard) initOpts(title string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "600px", AssetsHost: AssetsHost}
}

func (d Dashboard) axes() []charts.GlobalOpts {
	var minX, maxX, minY, maxY float64
	if d.Grid != nil {
		minX, maxX, minY, maxY = d.Grid.Pitch.Bounds()
	} else {
		minX, maxX, minY, maxY = heatmap.DefaultPitch.Bounds()
	}
	label := units.LengthLabel(d.LengthUnit)
	return []charts.GlobalOpts{
		charts.WithXAxisOpts(opts.XAxis{Min: minX, Max: maxX, Name: fmt.Sprintf("X (%s)", label), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minY, Max: maxY, Name: fmt.Sprintf("Y (%s)", label), NameLocation: "middle", NameGap: 30}),
	}
}

func (d Dashboard) heatChart() *charts.Scatter {
	bx, by := d.Grid.Dims()
	pts := make([]opts.ScatterData, 0, bx*by)
	for x := 0; x < bx; x++ {
		for y := 0; y < by; y++ {
			n := d.Grid.Count(x, y)
			if n == 0 {
				continue
			}
			cx, cy := d.Grid.Centre(x, y)
			pts = append(pts, opts.ScatterData{Value: []interface{}{cx, cy, n}})
		}
	}

	scatter := charts.NewScatter()
	gopts := []charts.GlobalOpts{
		charts.WithInitializationOpts(d.initOpts("Occupancy")),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy", Subtitle: fmt.Sprintf("entity=%s samples=%d off-pitch=%d", d.Summary.EntityID, d.Grid.Total, d.Grid.Outside)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(d.Grid.Max()),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: heatColors},
		}),
	}
	scatter.SetGlobalOptions(append(gopts, d.axes()...)...)
	scatter.AddSeries("occupancy", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return scatter
}

func (d Dashboard) sprintChart() *charts.Scatter {
	with, without := movement.SplitByPossession(d.Vectors)
	toData := func(vs []movement.SprintVector) []opts.ScatterData {
		out := make([]opts.ScatterData, 0, len(vs))
		for _, v := range vs {
			speed := units.ConvertTrackingSpeed(v.Speed, d.LengthUnit, d.SpeedUnits)
			out = append(out, opts.ScatterData{Value: []interface{}{v.X, v.Y, speed}})
		}
		return out
	}

	scatter := charts.NewScatter()
	gopts := []charts.GlobalOpts{
		charts.WithInitializationOpts(d.initOpts("Sprints")),
		charts.WithTitleOpts(opts.Title{Title: "Sprints", Subtitle: fmt.Sprintf("threshold=%g events=%d", d.Summary.SprintThreshold, d.Summary.SprintEventCount)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	}
	scatter.SetGlobalOptions(append(gopts, d.axes()...)...)
	scatter.AddSeries("with ball", toData(with), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#32FE6B"}))
	scatter.AddSeries("without ball", toData(without), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#E5BA21"}))
	return scatter
}

func (d Dashboard) distanceChart() *charts.Bar {
	s := d.Summary
	x := []string{"Total", "Sprint", "With ball", "Without ball"}
	y := []opts.BarData{
		{Value: round1(s.TotalDistance)},
		{Value: round1(s.SprintDistance)},
		{Value: round1(s.DistanceWithPossession)},
		{Value: round1(s.DistanceWithoutPossession)},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Distance", Subtitle: units.LengthLabel(d.LengthUnit)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("distance", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
