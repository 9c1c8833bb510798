package visualiser

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
)

func car(x, z, heading float64) tailgate.Detection {
	return tailgate.Detection{
		Class:    tailgate.ClassVehicle,
		Dims:     tailgate.BoxDims{Height: 1.5, Width: 1.6, Length: 3.9},
		Position: tailgate.Vec3{X: x, Y: 1.6, Z: z},
		Heading:  heading,
	}
}

func analysis(t *testing.T) *tailgate.Analysis {
	t.Helper()
	d, err := tailgate.NewDetector(tailgate.Options{LaneThreshold: 1})
	require.NoError(t, err)
	res1, err := d.ProcessImage("000001", []tailgate.Detection{car(0, 30, 0), car(0, 5, 0), car(0, 15, 0), car(6, 20, 0)})
	require.NoError(t, err)
	res2, err := d.ProcessImage("000002", []tailgate.Detection{car(2, 9, 0.3)})
	require.NoError(t, err)
	return tailgate.NewAnalysis(d.Options(), res1, res2)
}

func TestFootprint(t *testing.T) {
	pts := footprint(car(1, 10, 0))
	require.Len(t, pts, 5)
	assert.Equal(t, pts[0], pts[4], "outline is closed")
	// Heading 0 points along +z: length runs along z, width along x.
	assert.InDelta(t, 1.8, pts[0].X, 1e-9)
	assert.InDelta(t, 11.95, pts[0].Y, 1e-9)
	assert.InDelta(t, 0.2, pts[2].X, 1e-9)
	assert.InDelta(t, 8.05, pts[2].Y, 1e-9)
}

func TestHeadingArrow(t *testing.T) {
	pts := headingArrow(car(0, 0, 0))
	assert.InDelta(t, 0, pts[1].X, 1e-9)
	assert.InDelta(t, arrowLength, pts[1].Y, 1e-9)
}

func TestRenderBEVAndPairs(t *testing.T) {
	a := analysis(t)
	res, _ := a.Result("000001")
	dir := t.TempDir()

	bev := filepath.Join(dir, "bev.png")
	require.NoError(t, RenderBEV(res, bev))
	f, err := os.Open(bev)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.DecodeConfig(f)
	assert.NoError(t, err)

	pairs := filepath.Join(dir, "pairs.svg")
	require.NoError(t, RenderPairs(res, pairs))
	info, err := os.Stat(pairs)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderPairsDegenerate(t *testing.T) {
	a := analysis(t)
	res, _ := a.Result("000002")
	err := RenderPairs(res, filepath.Join(t.TempDir(), "none.png"))
	assert.True(t, errors.Is(err, tailgate.ErrDegenerateGeometry))

	// The bird's-eye view still renders a single car.
	require.NoError(t, RenderBEV(res, filepath.Join(t.TempDir(), "one.png")))
}

func TestWritePlot(t *testing.T) {
	res, _ := analysis(t).Result("000001")
	p, err := BEVPlot(res)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, p, "png"))
	_, err = png.DecodeConfig(&buf)
	assert.NoError(t, err)
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	n, err := RenderAll(analysis(t), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, name := range []string{"000001_bev.png", "000001_pairs.png", "000002_bev.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestWriteSpeedChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpeedChart(&buf, analysis(t), units.MPH))
	html := buf.String()
	assert.Contains(t, html, "Maximum speed difference per pair")
	assert.Contains(t, html, "000001 Car1-Car2")
	assert.Contains(t, html, "units=mph")
}

func TestWriteImageScatter(t *testing.T) {
	a := analysis(t)
	for _, key := range a.ImageKeys() {
		res, _ := a.Result(key)
		var buf bytes.Buffer
		require.NoError(t, WriteImageScatter(&buf, res))
		assert.Contains(t, buf.String(), "Image "+key)
	}
	res, _ := a.Result("000002")
	var buf bytes.Buffer
	require.NoError(t, WriteImageScatter(&buf, res))
	assert.Contains(t, buf.String(), "fewer than two vehicles")
}
