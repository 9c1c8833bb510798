package tailgate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// TimeHeadway is the following gap, in seconds, of the two-second rule.
const TimeHeadway = 2.0

// NormalizeAngle maps an angle in radians onto [0, 2π).
func NormalizeAngle(rad float64) float64 {
	a := math.Mod(rad, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	// math.Mod of a tiny negative value can round back up to 2π.
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}

// HeadingVector returns the unit direction of travel in the ground (x, z)
// plane. A heading of 0 points along increasing depth; positive headings
// turn towards +x.
func HeadingVector(heading float64) r2.Vec {
	return r2.Vec{X: math.Sin(heading), Y: math.Cos(heading)}
}

// groundPosition projects a camera-frame position onto the (x, z) plane.
func groundPosition(p Vec3) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Z}
}

// MinAngleBetweenHeadings returns the angle between the unit vectors of a
// and b, and the angle between a's vector and the negation of b's. Callers
// use the smaller of the two so that reciprocal headings count as aligned.
func MinAngleBetweenHeadings(a, b float64) (float64, float64) {
	va := HeadingVector(NormalizeAngle(a))
	vb := HeadingVector(NormalizeAngle(b))
	dot := clampUnit(r2.Dot(va, vb))
	return math.Acos(dot), math.Acos(clampUnit(-dot))
}

// HeadingDifference is min(MinAngleBetweenHeadings(a, b)).
func HeadingDifference(a, b float64) float64 {
	t1, t2 := MinAngleBetweenHeadings(a, b)
	return math.Min(t1, t2)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// AlongHeadingDistance projects the vector from leader to follower onto the
// leader's heading. Positive means follower is ahead of leader along the
// leader's direction of travel.
func AlongHeadingDistance(leader, follower Detection) float64 {
	u := HeadingVector(leader.Heading)
	d := r2.Sub(groundPosition(follower.Position), groundPosition(leader.Position))
	return r2.Dot(d, u)
}

// PerpendicularLaneDistance is the distance from follower to its orthogonal
// projection on the line through leader along leader's heading.
func PerpendicularLaneDistance(leader, follower Detection) float64 {
	u := HeadingVector(leader.Heading)
	origin := groundPosition(leader.Position)
	target := groundPosition(follower.Position)
	along := r2.Dot(r2.Sub(target, origin), u)
	projection := r2.Add(origin, r2.Scale(along, u))
	return r2.Norm(r2.Sub(target, projection))
}

// MaxSpeedDifference converts a following distance in metres into the
// speed difference, in km/h, that closes it within TimeHeadway seconds.
func MaxSpeedDifference(distanceM float64) (float64, error) {
	if math.IsNaN(distanceM) || distanceM < 0 {
		return 0, fmt.Errorf("%w: following distance %v m", ErrInvalidThreshold, distanceM)
	}
	distanceKM := distanceM / 1000
	return distanceKM / TimeHeadway * 3600, nil
}
