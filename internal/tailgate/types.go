package tailgate

import (
	"fmt"
	"math"
)

// ObjectClass is the detector's object category.
type ObjectClass string

const (
	ClassVehicle    ObjectClass = "Car"
	ClassPedestrian ObjectClass = "Pedestrian"
	ClassCyclist    ObjectClass = "Cyclist"
	// ClassOther covers label types the pairing logic ignores (Van, Truck,
	// Tram, Misc, DontCare).
	ClassOther ObjectClass = "Other"
)

// BBox is a 2D image box in pixels.
type BBox struct {
	Left, Top, Right, Bottom float64
}

// BoxDims are the 3D box dimensions in metres.
type BoxDims struct {
	Height, Width, Length float64
}

// Vec3 is a camera-frame position in metres: x right, y down, z forward.
type Vec3 struct {
	X, Y, Z float64
}

// Detection is one object observed in one image.
type Detection struct {
	Class            ObjectClass
	Truncation       float64
	Occlusion        int
	ObservationAngle float64 // alpha, radians
	BBox             BBox
	Dims             BoxDims
	Position         Vec3
	Heading          float64 // radians; 0 faces +z, positive turns towards +x
}

// Validate reports ErrMalformedDetection when the detection's geometry
// cannot take part in distance or heading computations.
func (d Detection) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"x", d.Position.X},
		{"y", d.Position.Y},
		{"z", d.Position.Z},
		{"heading", d.Heading},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrMalformedDetection, f.name, f.v)
		}
	}
	if d.Dims.Height < 0 || d.Dims.Width < 0 || d.Dims.Length < 0 {
		return fmt.Errorf("%w: negative box dimensions %+v", ErrMalformedDetection, d.Dims)
	}
	return nil
}

// Catalogue maps image keys to the detections found in that image.
type Catalogue map[string][]Detection

// RankedCar is a vehicle detection with its depth rank within the image.
// Rank 1 is the car nearest to the camera.
type RankedCar struct {
	Detection
	Rank  int
	Label string
}

// Pair is a (leader, follower) candidate: Follower is assessed as
// potentially tailgating Leader. Record is the index of the pair's
// parameters record in the image's parameter list, or -1 before the lane
// filter has assigned one.
type Pair struct {
	Leader   RankedCar
	Follower RankedCar
	Record   int
}

// Label returns "{leader}-{follower}", e.g. "Car1-Car2".
func (p Pair) Label() string {
	return p.Leader.Label + "-" + p.Follower.Label
}
