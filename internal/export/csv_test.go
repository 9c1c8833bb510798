package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
)

func record(pair string, lane *tailgate.LaneVerdict, dist *float64) tailgate.PairParameters {
	return tailgate.PairParameters{Pair: pair, Lane: lane, CurrentDistance: dist}
}

func TestWriteParametersCSV(t *testing.T) {
	ten := 10.0
	a := tailgate.NewAnalysis(tailgate.Options{LaneThreshold: 1},
		&tailgate.ImageResult{Key: "000002", Parameters: []tailgate.PairParameters{
			record("Car1-Car2", &tailgate.LaneVerdict{Outcome: tailgate.LaneRejected, Distance: 3}, nil),
		}},
		&tailgate.ImageResult{Key: "000001", Parameters: []tailgate.PairParameters{
			record("Car1-Car2", &tailgate.LaneVerdict{Outcome: tailgate.LaneRetained, Distance: 0.5}, &ten),
		}},
		&tailgate.ImageResult{Key: "000003", Degenerate: true},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteParametersCSV(&buf, a))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"current_distance", "follower_heading", "image", "lane_distance", "leader_heading", "pair", "possible_tailgating", "same_lane"},
		{"10", "0", "000001", "0.5", "0", "Car1-Car2", "Yes", "Yes"},
		{"", "0", "000002", "3", "0", "Car1-Car2", "No", "No"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteParametersCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParametersCSV(&buf, tailgate.NewAnalysis(tailgate.Options{})))
	assert.Equal(t, "image\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteParametersCSVWriterError(t *testing.T) {
	err := WriteParametersCSV(failingWriter{}, tailgate.NewAnalysis(tailgate.Options{}))
	assert.ErrorContains(t, err, "disk full")
}
