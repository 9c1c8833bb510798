// Package visualiser draws per-image bird's-eye views with gonum/plot and
// interactive charts with go-echarts.
package visualiser

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/tailgate.report/internal/security"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
)

const (
	plotWidth   = 8 * vg.Inch
	plotHeight  = 6 * vg.Inch
	arrowLength = 2.0 // metres
	padding     = 3.0 // metres around the outermost car
)

var (
	colorBox      = color.RGBA{A: 255}
	colorHeading  = color.RGBA{R: 220, A: 255}
	colorCar      = color.RGBA{B: 200, A: 255}
	colorRetained = color.RGBA{G: 160, A: 255}
	colorRejected = color.RGBA{R: 200, G: 120, A: 255}
)

// footprint returns the closed ground-plane outline of a detection's 3D
// box: length along the heading, width across it.
func footprint(d tailgate.Detection) plotter.XYs {
	c := r2.Vec{X: d.Position.X, Y: d.Position.Z}
	u := tailgate.HeadingVector(d.Heading)
	n := r2.Vec{X: u.Y, Y: -u.X}
	l := r2.Scale(d.Dims.Length/2, u)
	w := r2.Scale(d.Dims.Width/2, n)

	corners := []r2.Vec{
		r2.Add(r2.Add(c, l), w),
		r2.Sub(r2.Add(c, l), w),
		r2.Sub(r2.Sub(c, l), w),
		r2.Add(r2.Sub(c, l), w),
	}
	pts := make(plotter.XYs, 0, len(corners)+1)
	for _, v := range corners {
		pts = append(pts, plotter.XY{X: v.X, Y: v.Y})
	}
	return append(pts, pts[0])
}

func headingArrow(d tailgate.Detection) plotter.XYs {
	tip := r2.Scale(arrowLength, tailgate.HeadingVector(d.Heading))
	return plotter.XYs{
		{X: d.Position.X, Y: d.Position.Z},
		{X: d.Position.X + tip.X, Y: d.Position.Z + tip.Y},
	}
}

func newBEVPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "z (m)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, c color.Color, width vg.Length) (*plotter.Line, error) {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = width
	p.Add(line)
	return line, nil
}

// addCars draws footprints, heading arrows and rank labels for cars.
func addCars(p *plot.Plot, cars []tailgate.RankedCar) error {
	if len(cars) == 0 {
		return nil
	}
	centres := make(plotter.XYs, len(cars))
	names := make([]string, len(cars))
	for i, c := range cars {
		centres[i] = plotter.XY{X: c.Position.X, Y: c.Position.Z}
		names[i] = c.Label
		if _, err := addLine(p, footprint(c.Detection), colorBox, vg.Points(1)); err != nil {
			return err
		}
		if _, err := addLine(p, headingArrow(c.Detection), colorHeading, vg.Points(1.5)); err != nil {
			return err
		}
	}

	sc, err := plotter.NewScatter(centres)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = colorCar
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(3)
	p.Add(sc)
	p.Legend.Add("vehicle", sc)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: centres, Labels: names})
	if err != nil {
		return err
	}
	labels.Offset = vg.Point{X: vg.Points(5), Y: vg.Points(5)}
	p.Add(labels)
	return nil
}

// fitAxes frames every car with padding, keeping x and z on the same scale.
func fitAxes(p *plot.Plot, cars []tailgate.RankedCar) {
	minX, maxX, minZ, maxZ := -10.0, 10.0, 0.0, 20.0
	if len(cars) > 0 {
		minX, maxX = math.Inf(1), math.Inf(-1)
		minZ, maxZ = math.Inf(1), math.Inf(-1)
		for _, c := range cars {
			minX = math.Min(minX, c.Position.X)
			maxX = math.Max(maxX, c.Position.X)
			minZ = math.Min(minZ, c.Position.Z)
			maxZ = math.Max(maxZ, c.Position.Z)
		}
	}
	span := math.Max(maxX-minX, maxZ-minZ)/2 + padding
	midX, midZ := (minX+maxX)/2, (minZ+maxZ)/2
	p.X.Min, p.X.Max = midX-span, midX+span
	p.Y.Min, p.Y.Max = midZ-span, midZ+span
}

// BEVPlot builds the bird's-eye view of an image's depth-ordered roster.
func BEVPlot(res *tailgate.ImageResult) (*plot.Plot, error) {
	p := newBEVPlot(fmt.Sprintf("Image %s: %d vehicles by depth", res.Key, len(res.Roster)))
	if err := addCars(p, res.Roster); err != nil {
		return nil, err
	}
	fitAxes(p, res.Roster)
	return p, nil
}

// PairsPlot builds a view of an image's candidate pairs, each joined
// leader to follower and coloured by the lane filter's verdict. Images
// without candidate pairs return ErrDegenerateGeometry.
func PairsPlot(res *tailgate.ImageResult) (*plot.Plot, error) {
	if len(res.Candidates) == 0 {
		return nil, fmt.Errorf("image %s: %w: no candidate pairs", res.Key, tailgate.ErrDegenerateGeometry)
	}
	p := newBEVPlot(fmt.Sprintf("Image %s: %d candidate pairs, %d retained", res.Key, len(res.Candidates), len(res.Retained)))
	if err := addCars(p, res.Roster); err != nil {
		return nil, err
	}

	var midpoints plotter.XYs
	var notes []string
	legend := map[bool]bool{}
	for i, pair := range res.Candidates {
		seg := plotter.XYs{
			{X: pair.Leader.Position.X, Y: pair.Leader.Position.Z},
			{X: pair.Follower.Position.X, Y: pair.Follower.Position.Z},
		}
		sameLane := false
		note := pair.Label()
		if i < len(res.Parameters) && res.Parameters[i].Lane != nil {
			sameLane = res.Parameters[i].Lane.SameLane()
			note = fmt.Sprintf("%s %.2fm", note, res.Parameters[i].Lane.Distance)
		}
		c := colorRejected
		if sameLane {
			c = colorRetained
		}
		line, err := addLine(p, seg, c, vg.Points(2))
		if err != nil {
			return nil, err
		}
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		if !legend[sameLane] {
			legend[sameLane] = true
			name := "lane rejected"
			if sameLane {
				name = "same lane"
			}
			p.Legend.Add(name, line)
		}
		midpoints = append(midpoints, plotter.XY{X: (seg[0].X + seg[1].X) / 2, Y: (seg[0].Y + seg[1].Y) / 2})
		notes = append(notes, note)
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: midpoints, Labels: notes})
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	fitAxes(p, res.Roster)
	return p, nil
}

// RenderBEV saves BEVPlot to path; the extension picks the format.
func RenderBEV(res *tailgate.ImageResult, path string) error {
	p, err := BEVPlot(res)
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}

// RenderPairs saves PairsPlot to path; the extension picks the format.
func RenderPairs(res *tailgate.ImageResult, path string) error {
	p, err := PairsPlot(res)
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}

// WritePlot encodes p to w in format ("png", "svg", "pdf", ...).
func WritePlot(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// RenderAll writes "<key>_bev.png" and, for images with candidate pairs,
// "<key>_pairs.png" into dir. Keys are sanitised before use as file names.
// It returns how many files were written.
func RenderAll(a *tailgate.Analysis, dir string) (int, error) {
	n := 0
	for _, key := range a.ImageKeys() {
		res, _ := a.Result(key)
		name := security.SanitizeFilename(key)
		path, err := security.ContainedPath(dir, name+"_bev.png")
		if err != nil {
			return n, err
		}
		if err := RenderBEV(res, path); err != nil {
			return n, fmt.Errorf("image %s: %w", key, err)
		}
		n++
		if len(res.Candidates) == 0 {
			continue
		}
		if path, err = security.ContainedPath(dir, name+"_pairs.png"); err != nil {
			return n, err
		}
		if err := RenderPairs(res, path); err != nil {
			return n, fmt.Errorf("image %s: %w", key, err)
		}
		n++
	}
	return n, nil
}
