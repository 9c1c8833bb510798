package tailgate

import (
	"fmt"
	"sort"
)

// Analysis holds the per-image results of one Detector.Run, keyed by image.
// It is read-only once Run returns. Every accessor reports ok == false for
// an unknown image key; an image that exists but has no pairs returns an
// empty, non-nil slice with ok == true.
type Analysis struct {
	opts   Options
	images map[string]*ImageResult
}

func newAnalysis(opts Options) *Analysis {
	return &Analysis{opts: opts, images: make(map[string]*ImageResult)}
}

// NewAnalysis assembles an Analysis from already computed results. Later
// results replace earlier ones with the same key.
func NewAnalysis(opts Options, results ...*ImageResult) *Analysis {
	a := newAnalysis(opts)
	for _, r := range results {
		if r != nil {
			a.images[r.Key] = r
		}
	}
	return a
}

// Options returns the options the analysis was produced with.
func (a *Analysis) Options() Options { return a.opts }

// Len returns the number of images analysed.
func (a *Analysis) Len() int { return len(a.images) }

// ImageKeys returns every analysed image key in sorted order.
func (a *Analysis) ImageKeys() []string {
	keys := make([]string, 0, len(a.images))
	for k := range a.images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Result returns the full result for one image.
func (a *Analysis) Result(key string) (*ImageResult, bool) {
	r, ok := a.images[key]
	return r, ok
}

// Lookup is Result with ErrMissingData for unknown keys.
func (a *Analysis) Lookup(key string) (*ImageResult, error) {
	r, ok := a.images[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingData, key)
	}
	return r, nil
}

// Roster returns the depth-ordered vehicles of one image.
func (a *Analysis) Roster(key string) ([]RankedCar, bool) {
	r, ok := a.images[key]
	if !ok {
		return nil, false
	}
	return nonNil(r.Roster), true
}

// CandidatePairs returns the pairs of one image before any filter ran.
func (a *Analysis) CandidatePairs(key string) ([]Pair, bool) {
	r, ok := a.images[key]
	if !ok {
		return nil, false
	}
	return nonNil(r.Candidates), true
}

// RetainedPairs returns the pairs of one image that survived both filters.
func (a *Analysis) RetainedPairs(key string) ([]Pair, bool) {
	r, ok := a.images[key]
	if !ok {
		return nil, false
	}
	return nonNil(r.Retained), true
}

// Parameters returns one record per candidate pair of one image, rejected
// pairs included.
func (a *Analysis) Parameters(key string) ([]PairParameters, bool) {
	r, ok := a.images[key]
	if !ok {
		return nil, false
	}
	return nonNil(r.Parameters), true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
