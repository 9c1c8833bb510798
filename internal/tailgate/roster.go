package tailgate

import (
	"fmt"
	"sort"

	"github.com/banshee-data/tailgate.report/internal/monitoring"
)

// OrderByDepth returns the image's vehicles sorted by increasing depth with
// ranks 1..N assigned (rank 1 is nearest to the camera). Equal depths keep
// their input order. Malformed vehicle detections are logged and skipped;
// the number skipped is returned alongside the roster. dets is not
// modified.
func OrderByDepth(dets []Detection) ([]RankedCar, int) {
	roster := make([]RankedCar, 0, len(dets))
	skipped := 0
	for i, d := range dets {
		if d.Class != ClassVehicle {
			continue
		}
		if err := d.Validate(); err != nil {
			monitoring.Logf("[tailgate] skipping detection %d: %v", i, err)
			skipped++
			continue
		}
		roster = append(roster, RankedCar{Detection: d})
	}

	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Position.Z < roster[j].Position.Z
	})

	for i := range roster {
		roster[i].Rank = i + 1
		roster[i].Label = fmt.Sprintf("Car%d", i+1)
	}
	return roster, skipped
}
