package api

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tailgate.report/internal/db"
	"github.com/banshee-data/tailgate.report/internal/monitoring"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/testutil"
	"github.com/banshee-data/tailgate.report/internal/units"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func car(x, z float64) tailgate.Detection {
	return tailgate.Detection{
		Class:    tailgate.ClassVehicle,
		Dims:     tailgate.BoxDims{Height: 1.5, Width: 1.6, Length: 3.9},
		Position: tailgate.Vec3{X: x, Y: 1.6, Z: z},
	}
}

func testAnalysis(t *testing.T) *tailgate.Analysis {
	t.Helper()
	d, err := tailgate.NewDetector(tailgate.Options{LaneThreshold: 1})
	require.NoError(t, err)
	a, err := d.Run(context.Background(), tailgate.Catalogue{
		"000001": {car(0, 30), car(0, 5), car(0, 15)},
		"000002": {car(0, 12)},
	})
	require.NoError(t, err)
	return a
}

func newTestServer(t *testing.T, withStore bool) (*Server, *db.DB) {
	t.Helper()
	a := testAnalysis(t)
	var store *db.DB
	if withStore {
		var err error
		store, err = db.NewDB(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
	}
	m := monitoring.NewMetrics()
	ObserveAnalysis(m, a)
	return NewServer(a, store, m, units.KMPH), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, path))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestListImages(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/api/images")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var images []imageJSON
	decode(t, rec, &images)
	assert.Equal(t, []imageJSON{
		{Image: "000001", Vehicles: 3, Candidates: 2, Retained: 2},
		{Image: "000002", Vehicles: 1, Degenerate: true},
	}, images)
}

func TestShowImage(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/api/images/000001")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got struct {
		Image      string           `json:"image"`
		Roster     []carJSON        `json:"roster"`
		Retained   []pairJSON       `json:"retained_pairs"`
		Parameters []parametersJSON `json:"parameters"`
	}
	decode(t, rec, &got)
	assert.Equal(t, "000001", got.Image)
	require.Len(t, got.Roster, 3)
	assert.Equal(t, 5.0, got.Roster[0].Z)
	require.Len(t, got.Retained, 2)
	assert.Equal(t, "Car2-Car3", got.Retained[1].Pair)
	require.Len(t, got.Parameters, 2)
	require.NotNil(t, got.Parameters[0].MaxSpeedDifference)
	assert.InDelta(t, 18, *got.Parameters[0].MaxSpeedDifference, 1e-9)
	assert.Equal(t, "Maintained", got.Parameters[0].AngularThreshold)
}

func TestDegenerateImageListsAreEmpty(t *testing.T) {
	s, _ := newTestServer(t, false)
	for _, view := range []string{"pairs", "retained", "parameters"} {
		rec := get(t, s, "/api/images/000002/"+view)
		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		body := strings.TrimSpace(rec.Body.String())
		assert.JSONEq(t, `{"image":"000002","degenerate":true,"items":[]}`, body, view)
	}
	rec := get(t, s, "/api/images/000002/roster")
	var got listJSON
	decode(t, rec, &got)
	assert.Len(t, got.Items, 1)
}

func TestUnknownImage(t *testing.T) {
	s, _ := newTestServer(t, false)
	for _, path := range []string{
		"/api/images/999999",
		"/api/images/999999/retained",
		"/charts/images/999999",
		"/plots/images/999999/bev.png",
	} {
		rec := get(t, s, path)
		testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	}
}

func TestSummaryAndConfig(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/api/summary")
	var sum summaryJSON
	decode(t, rec, &sum)
	assert.Equal(t, 2, sum.Images)
	assert.Equal(t, 1, sum.DegenerateCount)
	assert.InDelta(t, 10, sum.MedianFollowingDistance, 1e-9)
	assert.InDelta(t, 27, sum.P85MaxSpeedDifference, 1e-9)
	assert.Equal(t, units.KMPH, sum.Units)

	rec = get(t, s, "/api/config")
	var cfg map[string]interface{}
	decode(t, rec, &cfg)
	assert.Equal(t, "adjacent", cfg["pairing_policy"])
	assert.Equal(t, 1.0, cfg["lane_threshold_m"])
}

func TestCharts(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/charts/speed?units=mph")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "units=mph")

	rec = get(t, s, "/charts/speed?units=furlongs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)

	rec = get(t, s, "/charts/images/000002")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}

func TestPlots(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/plots/images/000001/pairs.png")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	_, err := png.DecodeConfig(rec.Body)
	assert.NoError(t, err)

	rec = get(t, s, "/plots/images/000002/pairs.png")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	rec = get(t, s, "/plots/images/000002/bev.png")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	rec = get(t, s, "/plots/images/000001/side.png")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/metrics")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, "tailgate_images_processed_total 2")
	assert.Contains(t, body, "tailgate_retained_pairs_total 2")
	assert.Contains(t, body, `tailgate_pair_verdicts_total{outcome="maintained",stage="heading"} 2`)
}

func TestRunsRoutes(t *testing.T) {
	s, store := newTestServer(t, true)
	runID, err := store.RecordAnalysis(context.Background(), s.analysis)
	require.NoError(t, err)

	rec := get(t, s, "/api/runs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var runs []db.Run
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)

	rec = get(t, s, "/api/runs/"+runID+"/images")
	var images []db.ImageRow
	decode(t, rec, &images)
	assert.Len(t, images, 2)

	rec = get(t, s, "/api/runs/"+runID+"/images/000001/parameters")
	var params []parametersJSON
	decode(t, rec, &params)
	require.Len(t, params, 2)
	assert.True(t, params[1].PossibleTailgating)

	rec = get(t, s, "/api/runs/nope/images")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestRunsRoutesNeedStore(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := get(t, s, "/api/runs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, false)
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodPost, "/api/images"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestLoggingMiddleware(t *testing.T) {
	s, _ := newTestServer(t, false)

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) { lines = append(lines, format) })
	defer monitoring.SetLogger(nil)

	rec := testutil.NewTestRecorder()
	LoggingMiddleware(s.ServeMux()).ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/images/missing"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	assert.Len(t, lines, 1)
	assert.Contains(t, statusCodeColor(404), "404")
}
