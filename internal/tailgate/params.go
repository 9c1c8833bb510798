package tailgate

import (
	"strconv"
)

// Parameter record keys, as used by the tabular export.
const (
	KeyPair                  = "pair"
	KeyPossibleTailgating    = "possible_tailgating"
	KeySameLane              = "same_lane"
	KeyLaneDistance          = "lane_distance"
	KeyAngularThreshold      = "angular_threshold_between_cars"
	KeyRotationalDifference  = "rotational_difference"
	KeyCurrentDistance       = "current_distance"
	KeyMaxSpeedDifferenceKMH = "max_speed_difference_kmh"
	KeyLeaderHeading         = "leader_heading"
	KeyFollowerHeading       = "follower_heading"
)

// PairParameters is the evidence gathered for one candidate pair. Each
// stage fills in its own fields; a nil field means the stage did not run
// for this pair (for example Heading is nil when the lane filter rejected
// it). Headings are the canonicalised values the filters saw.
type PairParameters struct {
	Pair                  string
	LeaderHeading         float64
	FollowerHeading       float64
	Lane                  *LaneVerdict
	Heading               *HeadingVerdict
	CurrentDistance       *float64
	MaxSpeedDifferenceKMH *float64
}

// PossibleTailgating is true while no stage has rejected the pair.
func (p PairParameters) PossibleTailgating() bool {
	if p.Lane == nil || !p.Lane.SameLane() {
		return false
	}
	return p.Heading == nil || p.Heading.Maintained()
}

// Fields flattens the record into string columns. Keys for stages that did
// not run are absent.
func (p PairParameters) Fields() map[string]string {
	f := map[string]string{
		KeyPair:               p.Pair,
		KeyPossibleTailgating: yesNo(p.PossibleTailgating()),
		KeyLeaderHeading:      formatFloat(p.LeaderHeading),
		KeyFollowerHeading:    formatFloat(p.FollowerHeading),
	}
	if p.Lane != nil {
		f[KeySameLane] = yesNo(p.Lane.SameLane())
		f[KeyLaneDistance] = formatFloat(p.Lane.Distance)
	}
	if p.Heading != nil {
		f[KeyAngularThreshold] = p.Heading.Outcome.String()
		f[KeyRotationalDifference] = formatFloat(p.Heading.Difference)
	}
	if p.CurrentDistance != nil {
		f[KeyCurrentDistance] = formatFloat(*p.CurrentDistance)
	}
	if p.MaxSpeedDifferenceKMH != nil {
		f[KeyMaxSpeedDifferenceKMH] = formatFloat(*p.MaxSpeedDifferenceKMH)
	}
	return f
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewParameters starts one record per lane-filtered pair. pairs and
// verdicts are index-aligned, as returned by FilterByLane's input and
// verdicts.
func NewParameters(pairs []Pair, verdicts []LaneVerdict) []PairParameters {
	records := make([]PairParameters, len(pairs))
	for i, p := range pairs {
		v := verdicts[i]
		records[i] = PairParameters{
			Pair:            p.Label(),
			LeaderHeading:   p.Leader.Heading,
			FollowerHeading: p.Follower.Heading,
			Lane:            &v,
		}
	}
	return records
}

// WithHeadingVerdicts returns a copy of records with each pair's heading
// verdict attached to the record named by Pair.Record.
func WithHeadingVerdicts(records []PairParameters, pairs []Pair, verdicts []HeadingVerdict) []PairParameters {
	out := cloneParameters(records)
	for i, p := range pairs {
		if p.Record < 0 || p.Record >= len(out) {
			continue
		}
		v := verdicts[i]
		out[p.Record].Heading = &v
	}
	return out
}

func cloneParameters(records []PairParameters) []PairParameters {
	out := make([]PairParameters, len(records))
	copy(out, records)
	return out
}
