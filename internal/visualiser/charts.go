package visualiser

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
)

// WriteSpeedChart renders a bar chart of every pair's two-second-rule
// speed difference, converted to unit, as a standalone HTML page.
func WriteSpeedChart(w io.Writer, a *tailgate.Analysis, unit string) error {
	var x []string
	var speeds, distances []opts.BarData
	for _, key := range a.ImageKeys() {
		records, _ := a.Parameters(key)
		for _, p := range records {
			if p.MaxSpeedDifferenceKMH == nil {
				continue
			}
			x = append(x, key+" "+p.Pair)
			speeds = append(speeds, opts.BarData{Value: units.ConvertFromKMPH(*p.MaxSpeedDifferenceKMH, unit)})
			distances = append(distances, opts.BarData{Value: *p.CurrentDistance})
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tailgating speed thresholds", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Maximum speed difference per pair",
			Subtitle: fmt.Sprintf("images=%d pairs=%d units=%s", a.Len(), len(x), units.Label(unit)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "pair", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(unit)}),
	)
	bar.SetXAxis(x).
		AddSeries("max speed difference", speeds,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("following distance (m)", distances)

	return bar.Render(w)
}

// WriteImageScatter renders an image's vehicles on the ground plane, with
// the followers of retained pairs as a second series.
func WriteImageScatter(w io.Writer, res *tailgate.ImageResult) error {
	cars := make([]opts.ScatterData, 0, len(res.Roster))
	for _, c := range res.Roster {
		cars = append(cars, opts.ScatterData{Name: c.Label, Value: []interface{}{c.Position.X, c.Position.Z}})
	}
	followers := make([]opts.ScatterData, 0, len(res.Retained))
	for _, p := range res.Retained {
		f := p.Follower
		followers = append(followers, opts.ScatterData{Name: p.Label(), Value: []interface{}{f.Position.X, f.Position.Z}})
	}

	subtitle := fmt.Sprintf("vehicles=%d candidates=%d retained=%d", len(res.Roster), len(res.Candidates), len(res.Retained))
	if res.Degenerate {
		subtitle += " (fewer than two vehicles)"
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Image " + res.Key, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Image " + res.Key, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "z (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("vehicles", cars,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right", Formatter: "{b}"}),
	)
	scatter.AddSeries("tailgating followers", followers,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 20}),
	)
	return scatter.Render(w)
}
