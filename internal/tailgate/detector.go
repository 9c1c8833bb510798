package tailgate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/tailgate.report/internal/monitoring"
)

// Options configures a Detector. LaneThreshold has no default and must be
// set explicitly; a nil AngularThreshold means DefaultAngularThreshold.
type Options struct {
	LaneThreshold    float64  // metres
	AngularThreshold *float64 // radians
	Policy           PairingPolicy
	// Workers bounds how many images Run processes at once. Values below 1
	// mean one.
	Workers int
}

// Angular returns the heading-difference threshold in effect.
func (o Options) Angular() float64 {
	if o.AngularThreshold == nil {
		return DefaultAngularThreshold
	}
	return *o.AngularThreshold
}

// Detector runs the per-image tailgating pipeline.
type Detector struct {
	opts Options
}

// NewDetector validates opts and returns a Detector.
func NewDetector(opts Options) (*Detector, error) {
	angular := opts.Angular()
	opts.AngularThreshold = &angular
	if err := validateThreshold("lane threshold", opts.LaneThreshold); err != nil {
		return nil, err
	}
	if err := validateThreshold("angular threshold", angular); err != nil {
		return nil, err
	}
	if opts.Policy != PolicyAdjacent && opts.Policy != PolicyNearest {
		return nil, fmt.Errorf("unknown pairing policy %v", opts.Policy)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Detector{opts: opts}, nil
}

// Options returns the effective options, with defaults applied.
func (d *Detector) Options() Options {
	o := d.opts
	angular := *d.opts.AngularThreshold
	o.AngularThreshold = &angular
	return o
}

// ImageResult holds every artifact derived for one image. Candidates are
// the pairs as formed from the roster (original headings); Retained pairs
// carry canonicalised headings. Parameters has one record per candidate.
type ImageResult struct {
	Key        string
	Roster     []RankedCar
	Candidates []Pair
	Retained   []Pair
	Parameters []PairParameters
	// Malformed counts vehicle detections dropped by validation.
	Malformed int
	// Degenerate is set when the image has fewer than two usable vehicles.
	Degenerate bool
}

// ProcessImage runs ordering, pairing, canonicalisation, both filters and
// the metric stage for a single image.
func (d *Detector) ProcessImage(key string, dets []Detection) (*ImageResult, error) {
	res := &ImageResult{
		Key:        key,
		Candidates: []Pair{},
		Retained:   []Pair{},
		Parameters: []PairParameters{},
	}
	res.Roster, res.Malformed = OrderByDepth(dets)

	candidates, err := FormPairs(res.Roster, d.opts.Policy)
	if errors.Is(err, ErrDegenerateGeometry) {
		monitoring.Logf("[tailgate] image %s: %v", key, err)
		res.Degenerate = true
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", key, err)
	}
	res.Candidates = candidates

	pairs := Canonicalize(candidates)
	for i := range pairs {
		pairs[i].Record = i
	}

	laneKept, laneVerdicts, err := FilterByLane(pairs, d.opts.LaneThreshold)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", key, err)
	}
	records := NewParameters(pairs, laneVerdicts)

	headingKept, headingVerdicts, err := FilterByHeading(laneKept, d.opts.Angular())
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", key, err)
	}
	records = WithHeadingVerdicts(records, laneKept, headingVerdicts)

	records = WithCurrentDistances(records, headingKept)
	records = WithSpeedThresholds(records)

	res.Retained = headingKept
	res.Parameters = records
	return res, nil
}

// Run processes every image of the catalogue, up to Workers at a time. An
// image whose pipeline fails is logged and left out of the Analysis; the
// remaining images still run. Run only returns an error when ctx is done.
func (d *Detector) Run(ctx context.Context, cat Catalogue) (*Analysis, error) {
	a := newAnalysis(d.opts)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for _, key := range sortedKeys(cat) {
		if gctx.Err() != nil {
			break
		}
		dets := cat[key]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := d.ProcessImage(key, dets)
			if err != nil {
				monitoring.Logf("[tailgate] %v", err)
				return nil
			}
			mu.Lock()
			a.images[key] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func sortedKeys(cat Catalogue) []string {
	keys := make([]string, 0, len(cat))
	for k := range cat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
