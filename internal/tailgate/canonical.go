package tailgate

import "math"

// Canonicalize forces every paired car onto the increasing-depth travel
// convention: a member whose heading points towards decreasing depth gets π
// added to it. The detector cannot tell direction of travel, so this is a
// fix-up rather than a measurement. The result is a new slice; the input
// pairs and the roster they came from are unchanged. Apply it once, after
// FormPairs and before any filter.
func Canonicalize(pairs []Pair) []Pair {
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		p.Leader.Heading = canonicalHeading(p.Leader.Heading)
		p.Follower.Heading = canonicalHeading(p.Follower.Heading)
		out[i] = p
	}
	return out
}

// A heading is flipped when it lies in (π/2, 3π/2] after normalisation, so
// a car facing -x is flipped and one facing +x is not. This is KITTI's
// "rotation_y > 0" test in the detector's frame. No wrap is applied: every
// consumer goes through sin/cos.
func canonicalHeading(h float64) float64 {
	if n := NormalizeAngle(h); n > math.Pi/2 && n <= 3*math.Pi/2 {
		return h + math.Pi
	}
	return h
}
