// Package testutil provides shared test helpers and fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// WriteFiles writes name -> content under a fresh temporary directory and
// returns the directory. Names may contain slashes.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// KITTI label lines for three cars travelling in one lane away from the
// camera at depths 5, 15 and 30 m (rotation_y -π/2), plus a pedestrian.
const (
	LabelCarNear   = "Car 0.00 0 -1.58 587.01 173.33 614.12 200.12 1.65 1.67 3.64 0.00 1.60 5.00 -1.57"
	LabelCarMiddle = "Car 0.00 0 -1.57 600.00 175.00 630.00 198.00 1.50 1.60 3.90 0.00 1.60 15.00 -1.57"
	LabelCarFar    = "Car 0.00 1 -1.57 610.00 176.00 625.00 190.00 1.52 1.62 4.10 0.00 1.60 30.00 -1.57"
	LabelPed       = "Pedestrian 0.00 0 0.21 423.17 173.67 433.17 224.03 1.87 0.50 0.90 -4.50 1.60 8.00 0.10"
)
