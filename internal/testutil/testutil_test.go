package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertHelpersPass(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, os.ErrNotExist)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodGet, "/api/images")
	if req.Method != http.MethodGet || req.URL.Path != "/api/images" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	rec := NewTestRecorder()
	if rec.Code != http.StatusOK {
		t.Errorf("recorder code = %d, want 200", rec.Code)
	}
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := WriteFiles(t, map[string]string{
		"label_2/000001.txt": LabelCarNear + "\n",
		"image_2/000001.png": "",
	})
	got, err := os.ReadFile(filepath.Join(dir, "label_2", "000001.txt"))
	AssertNoError(t, err)
	if string(got) != LabelCarNear+"\n" {
		t.Errorf("content = %q", got)
	}
	_, err = os.Stat(filepath.Join(dir, "image_2", "000001.png"))
	AssertNoError(t, err)
}
