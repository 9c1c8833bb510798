package api

import (
	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/units"
)

type summaryJSON struct {
	tailgate.Summary
	P85MaxSpeedDifference float64 `json:"p85_max_speed_difference"`
	Units                 string  `json:"units"`
}

type imageJSON struct {
	Image      string `json:"image"`
	Vehicles   int    `json:"vehicles"`
	Malformed  int    `json:"malformed"`
	Candidates int    `json:"candidates"`
	Retained   int    `json:"retained"`
	Degenerate bool   `json:"degenerate"`
}

func newImageJSON(res *tailgate.ImageResult) imageJSON {
	return imageJSON{
		Image:      res.Key,
		Vehicles:   len(res.Roster),
		Malformed:  res.Malformed,
		Candidates: len(res.Candidates),
		Retained:   len(res.Retained),
		Degenerate: res.Degenerate,
	}
}

type imageDetailJSON struct {
	imageJSON
	Roster     []carJSON        `json:"roster"`
	Candidates []pairJSON       `json:"candidate_pairs"`
	Retained   []pairJSON       `json:"retained_pairs"`
	Parameters []parametersJSON `json:"parameters"`
}

// listJSON wraps one per-image list. Items is never null.
type listJSON struct {
	Image      string      `json:"image"`
	Degenerate bool        `json:"degenerate"`
	Items      interface{} `json:"items"`
}

type carJSON struct {
	Rank    int     `json:"rank"`
	Label   string  `json:"label"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"`
	Height  float64 `json:"height"`
	Width   float64 `json:"width"`
	Length  float64 `json:"length"`
}

func newCarJSON(c tailgate.RankedCar) carJSON {
	return carJSON{
		Rank:    c.Rank,
		Label:   c.Label,
		X:       c.Position.X,
		Y:       c.Position.Y,
		Z:       c.Position.Z,
		Heading: c.Heading,
		Height:  c.Dims.Height,
		Width:   c.Dims.Width,
		Length:  c.Dims.Length,
	}
}

func newCarsJSON(cars []tailgate.RankedCar) []carJSON {
	out := make([]carJSON, 0, len(cars))
	for _, c := range cars {
		out = append(out, newCarJSON(c))
	}
	return out
}

type pairJSON struct {
	Pair     string  `json:"pair"`
	Leader   carJSON `json:"leader"`
	Follower carJSON `json:"follower"`
}

func newPairsJSON(pairs []tailgate.Pair) []pairJSON {
	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairJSON{Pair: p.Label(), Leader: newCarJSON(p.Leader), Follower: newCarJSON(p.Follower)})
	}
	return out
}

// parametersJSON mirrors tailgate.PairParameters; stages that did not run
// are omitted.
type parametersJSON struct {
	Pair                 string   `json:"pair"`
	PossibleTailgating   bool     `json:"possible_tailgating"`
	LeaderHeading        float64  `json:"leader_heading"`
	FollowerHeading      float64  `json:"follower_heading"`
	SameLane             *bool    `json:"same_lane,omitempty"`
	LaneDistance         *float64 `json:"lane_distance,omitempty"`
	AngularThreshold     string   `json:"angular_threshold_between_cars,omitempty"`
	RotationalDifference *float64 `json:"rotational_difference,omitempty"`
	CurrentDistance      *float64 `json:"current_distance,omitempty"`
	MaxSpeedDifference   *float64 `json:"max_speed_difference,omitempty"`
	Units                string   `json:"units"`
}

func (s *Server) newParametersJSON(records []tailgate.PairParameters) []parametersJSON {
	out := make([]parametersJSON, 0, len(records))
	for _, p := range records {
		v := parametersJSON{
			Pair:               p.Pair,
			PossibleTailgating: p.PossibleTailgating(),
			LeaderHeading:      p.LeaderHeading,
			FollowerHeading:    p.FollowerHeading,
			CurrentDistance:    p.CurrentDistance,
			Units:              s.units,
		}
		if p.Lane != nil {
			same, d := p.Lane.SameLane(), p.Lane.Distance
			v.SameLane, v.LaneDistance = &same, &d
		}
		if p.Heading != nil {
			d := p.Heading.Difference
			v.AngularThreshold, v.RotationalDifference = p.Heading.Outcome.String(), &d
		}
		if p.MaxSpeedDifferenceKMH != nil {
			speed := units.ConvertFromKMPH(*p.MaxSpeedDifferenceKMH, s.units)
			v.MaxSpeedDifference = &speed
		}
		out = append(out, v)
	}
	return out
}
