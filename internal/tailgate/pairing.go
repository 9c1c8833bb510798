package tailgate

import (
	"fmt"
	"math"
	"strings"
)

// PairingPolicy selects how candidate pairs are formed from a roster.
type PairingPolicy int

const (
	// PolicyAdjacent pairs each car with the next one in depth order.
	PolicyAdjacent PairingPolicy = iota
	// PolicyNearest pairs each car with the car that minimises the signed
	// along-heading distance from it.
	PolicyNearest
)

func (p PairingPolicy) String() string {
	switch p {
	case PolicyAdjacent:
		return "adjacent"
	case PolicyNearest:
		return "nearest"
	default:
		return fmt.Sprintf("PairingPolicy(%d)", int(p))
	}
}

// ParsePairingPolicy accepts "adjacent" or "nearest" (case-insensitive).
func ParsePairingPolicy(s string) (PairingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adjacent", "":
		return PolicyAdjacent, nil
	case "nearest":
		return PolicyNearest, nil
	default:
		return PolicyAdjacent, fmt.Errorf("unknown pairing policy %q (want adjacent or nearest)", s)
	}
}

// FormPairs builds candidate (leader, follower) pairs from a depth-ordered
// roster. Rosters with fewer than two cars return ErrDegenerateGeometry.
// The roster is not modified.
func FormPairs(roster []RankedCar, policy PairingPolicy) ([]Pair, error) {
	if len(roster) < 2 {
		return nil, fmt.Errorf("%w: roster has %d cars", ErrDegenerateGeometry, len(roster))
	}
	switch policy {
	case PolicyAdjacent:
		return adjacentPairs(roster), nil
	case PolicyNearest:
		return nearestPairs(roster), nil
	default:
		return nil, fmt.Errorf("unknown pairing policy %v", policy)
	}
}

func adjacentPairs(roster []RankedCar) []Pair {
	pairs := make([]Pair, 0, len(roster)-1)
	for i := 0; i < len(roster)-1; i++ {
		// Equal depths would give a pair with no following direction.
		if roster[i].Position.Z < roster[i+1].Position.Z {
			pairs = append(pairs, Pair{Leader: roster[i], Follower: roster[i+1], Record: -1})
		}
	}
	return pairs
}

// nearestPairs emits at most one pair per car. The first car in roster
// order wins ties on distance.
func nearestPairs(roster []RankedCar) []Pair {
	pairs := make([]Pair, 0, len(roster))
	for i, car := range roster {
		nearest := -1
		best := math.Inf(1)
		for j, other := range roster {
			if i == j {
				continue
			}
			d := AlongHeadingDistance(car.Detection, other.Detection)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			if d < best {
				best = d
				nearest = j
			}
		}
		if nearest < 0 {
			continue
		}
		pairs = append(pairs, Pair{Leader: car, Follower: roster[nearest], Record: -1})
	}
	return pairs
}
