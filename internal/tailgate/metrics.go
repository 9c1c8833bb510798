package tailgate

import (
	"github.com/banshee-data/tailgate.report/internal/monitoring"
)

// WithCurrentDistances returns a copy of records where every record named
// by a pair in pairs carries the along-heading following distance.
func WithCurrentDistances(records []PairParameters, pairs []Pair) []PairParameters {
	out := cloneParameters(records)
	for _, p := range pairs {
		if p.Record < 0 || p.Record >= len(out) {
			continue
		}
		d := AlongHeadingDistance(p.Leader.Detection, p.Follower.Detection)
		out[p.Record].CurrentDistance = &d
	}
	return out
}

// WithSpeedThresholds returns a copy of records where every record holding
// a current distance also carries the two-second-rule speed difference.
// Records without a current distance are left as they are. A negative
// distance (follower behind leader) has no threshold and is logged.
func WithSpeedThresholds(records []PairParameters) []PairParameters {
	out := cloneParameters(records)
	for i := range out {
		if out[i].CurrentDistance == nil {
			continue
		}
		kmh, err := MaxSpeedDifference(*out[i].CurrentDistance)
		if err != nil {
			monitoring.Logf("[tailgate] %s: %v", out[i].Pair, err)
			continue
		}
		out[i].MaxSpeedDifferenceKMH = &kmh
	}
	return out
}
