package tailgate

import (
	"fmt"
	"math"
)

// DefaultAngularThreshold is the heading-difference limit used when the
// caller does not supply one.
const DefaultAngularThreshold = math.Pi / 4

// LaneOutcome is the lane filter's decision for one pair.
type LaneOutcome int

const (
	LaneRetained LaneOutcome = iota
	LaneRejected
)

func (o LaneOutcome) String() string {
	if o == LaneRetained {
		return "Retained"
	}
	return "Rejected"
}

// LaneVerdict carries the lane filter's decision and the lane distance it
// was based on.
type LaneVerdict struct {
	Outcome  LaneOutcome
	Distance float64
}

// SameLane reports whether the pair was retained.
func (v LaneVerdict) SameLane() bool { return v.Outcome == LaneRetained }

// HeadingOutcome is the heading filter's decision for one pair.
type HeadingOutcome int

const (
	HeadingMaintained HeadingOutcome = iota
	HeadingExceeded
)

func (o HeadingOutcome) String() string {
	if o == HeadingMaintained {
		return "Maintained"
	}
	return "Exceeded"
}

// HeadingVerdict carries the heading filter's decision and the rotational
// difference it was based on.
type HeadingVerdict struct {
	Outcome    HeadingOutcome
	Difference float64
}

// Maintained reports whether the pair was retained.
func (v HeadingVerdict) Maintained() bool { return v.Outcome == HeadingMaintained }

func validateThreshold(name string, threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 {
		return fmt.Errorf("%w: %s %v", ErrInvalidThreshold, name, threshold)
	}
	return nil
}

// FilterByLane keeps pairs whose follower lies less than threshold metres
// from the leader's heading line. verdicts[i] belongs to pairs[i]; a
// distance equal to the threshold is rejected.
func FilterByLane(pairs []Pair, threshold float64) (retained []Pair, verdicts []LaneVerdict, err error) {
	if err := validateThreshold("lane threshold", threshold); err != nil {
		return nil, nil, err
	}
	retained = make([]Pair, 0, len(pairs))
	verdicts = make([]LaneVerdict, len(pairs))
	for i, p := range pairs {
		d := PerpendicularLaneDistance(p.Leader.Detection, p.Follower.Detection)
		if d >= threshold {
			verdicts[i] = LaneVerdict{Outcome: LaneRejected, Distance: d}
			continue
		}
		verdicts[i] = LaneVerdict{Outcome: LaneRetained, Distance: d}
		retained = append(retained, p)
	}
	return retained, verdicts, nil
}

// FilterByHeading keeps pairs whose headings differ by less than threshold
// radians, using the smaller of the direct and reciprocal angles.
// verdicts[i] belongs to pairs[i].
func FilterByHeading(pairs []Pair, threshold float64) (retained []Pair, verdicts []HeadingVerdict, err error) {
	if err := validateThreshold("angular threshold", threshold); err != nil {
		return nil, nil, err
	}
	retained = make([]Pair, 0, len(pairs))
	verdicts = make([]HeadingVerdict, len(pairs))
	for i, p := range pairs {
		diff := HeadingDifference(p.Leader.Heading, p.Follower.Heading)
		if diff >= threshold {
			verdicts[i] = HeadingVerdict{Outcome: HeadingExceeded, Difference: diff}
			continue
		}
		verdicts[i] = HeadingVerdict{Outcome: HeadingMaintained, Difference: diff}
		retained = append(retained, p)
	}
	return retained, verdicts, nil
}
