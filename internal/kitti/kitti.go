// Package kitti reads KITTI object labels into tailgate detections.
//
// A label file holds one object per line:
//
//	type truncated occluded alpha left top right bottom height width length x y z rotation_y [score]
//
// Each file is one image; the file stem is the image key. rotation_y is
// converted to the detector's heading frame on the way in.
package kitti

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/tailgate.report/internal/monitoring"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
)

const (
	labelFields       = 15
	labelFieldsScored = 16
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// ClassFromType maps a KITTI object type onto the detector's classes.
func ClassFromType(t string) tailgate.ObjectClass {
	switch t {
	case "Car":
		return tailgate.ClassVehicle
	case "Pedestrian", "Person_sitting":
		return tailgate.ClassPedestrian
	case "Cyclist":
		return tailgate.ClassCyclist
	default:
		return tailgate.ClassOther
	}
}

// ParseLine parses one label line. A trailing detection score is accepted
// and ignored.
func ParseLine(line string) (tailgate.Detection, error) {
	f := strings.Fields(line)
	if len(f) != labelFields && len(f) != labelFieldsScored {
		return tailgate.Detection{}, fmt.Errorf("%w: want %d fields, got %d", tailgate.ErrMalformedDetection, labelFields, len(f))
	}

	nums := make([]float64, labelFields)
	for i := 1; i < labelFields; i++ {
		if i == 2 {
			continue
		}
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return tailgate.Detection{}, fmt.Errorf("%w: field %d: %v", tailgate.ErrMalformedDetection, i+1, err)
		}
		nums[i] = v
	}
	occ, err := strconv.Atoi(f[2])
	if err != nil {
		return tailgate.Detection{}, fmt.Errorf("%w: occlusion: %v", tailgate.ErrMalformedDetection, err)
	}

	return tailgate.Detection{
		Class:            ClassFromType(f[0]),
		Truncation:       nums[1],
		Occlusion:        occ,
		ObservationAngle: nums[3],
		BBox:             tailgate.BBox{Left: nums[4], Top: nums[5], Right: nums[6], Bottom: nums[7]},
		Dims:             tailgate.BoxDims{Height: nums[8], Width: nums[9], Length: nums[10]},
		Position:         tailgate.Vec3{X: nums[11], Y: nums[12], Z: nums[13]},
		Heading:          HeadingFromRotationY(nums[14]),
	}, nil
}

// HeadingFromRotationY converts a KITTI rotation_y into a detector heading.
// KITTI measures rotation_y from the camera's +x axis, with the direction of
// travel at (cos ry, -sin ry) in the (x, z) plane, so -π/2 faces away from
// the camera. Detector headings are 0 along +z and turn towards +x, which is
// rotation_y shifted by π/2.
func HeadingFromRotationY(ry float64) float64 {
	return ry + math.Pi/2
}

// ParseLabels reads every line of r. Blank lines are ignored; malformed
// lines are logged and counted in skipped.
func ParseLabels(r io.Reader) (dets []tailgate.Detection, skipped int, err error) {
	dets = []tailgate.Detection{}
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		d, err := ParseLine(line)
		if err != nil {
			monitoring.Logf("[kitti] line %d: %v", n, err)
			skipped++
			continue
		}
		dets = append(dets, d)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read labels: %w", err)
	}
	return dets, skipped, nil
}

// LoadCatalogue reads every *.txt file at the root of fsys. An empty label
// file still yields an (empty) image entry.
func LoadCatalogue(fsys fs.FS) (tailgate.Catalogue, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	cat := tailgate.Catalogue{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".txt" {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".txt")
		dets, err := loadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		cat[key] = dets
	}
	return cat, nil
}

func loadFile(fsys fs.FS, name string) ([]tailgate.Detection, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	dets, skipped, err := ParseLabels(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if skipped > 0 {
		monitoring.Logf("[kitti] %s: skipped %d malformed lines", name, skipped)
	}
	return dets, nil
}

// ImageNames returns the sorted stems of the image files at the root of
// fsys.
func ImageNames(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if e.IsDir() || !imageExts[ext] {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names, nil
}

// RestrictToImages returns the part of cat whose keys appear in names.
// Labels without a matching image are logged and dropped.
func RestrictToImages(cat tailgate.Catalogue, names []string) tailgate.Catalogue {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	out := make(tailgate.Catalogue, len(cat))
	for key, dets := range cat {
		if !have[key] {
			monitoring.Logf("[kitti] no image for labels %s", key)
			continue
		}
		out[key] = dets
	}
	return out
}
