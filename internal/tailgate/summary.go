package tailgate

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates an Analysis across images.
type Summary struct {
	Images          int `json:"images"`
	DegenerateCount int `json:"degenerate_images"`
	Vehicles        int `json:"vehicles"`
	Malformed       int `json:"malformed_detections"`
	Candidates      int `json:"candidate_pairs"`
	Retained        int `json:"retained_pairs"`

	// Zero when no pair reached the metric stage.
	MedianFollowingDistance  float64 `json:"median_following_distance_m"`
	P85MaxSpeedDifferenceKMH float64 `json:"p85_max_speed_difference_kmh"`
}

// Summarize computes counts and distribution statistics for a.
func Summarize(a *Analysis) Summary {
	var s Summary
	var distances, speeds []float64
	for _, key := range a.ImageKeys() {
		r := a.images[key]
		s.Images++
		if r.Degenerate {
			s.DegenerateCount++
		}
		s.Vehicles += len(r.Roster)
		s.Malformed += r.Malformed
		s.Candidates += len(r.Candidates)
		s.Retained += len(r.Retained)
		for _, p := range r.Parameters {
			if p.CurrentDistance != nil {
				distances = append(distances, *p.CurrentDistance)
			}
			if p.MaxSpeedDifferenceKMH != nil {
				speeds = append(speeds, *p.MaxSpeedDifferenceKMH)
			}
		}
	}
	s.MedianFollowingDistance = quantile(0.5, distances)
	s.P85MaxSpeedDifferenceKMH = quantile(0.85, speeds)
	return s
}

func quantile(p float64, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sort.Float64s(xs)
	return stat.Quantile(p, stat.Empirical, xs, nil)
}
