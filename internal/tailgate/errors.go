package tailgate

import "errors"

var (
	// ErrMissingData is returned when an image key is unknown to an Analysis.
	ErrMissingData = errors.New("tailgate: no data for image")

	// ErrDegenerateGeometry is returned when an image exists but holds fewer
	// than two vehicles, so no pair can be formed.
	ErrDegenerateGeometry = errors.New("tailgate: fewer than two vehicles")

	// ErrInvalidThreshold is returned for negative or NaN thresholds and for
	// negative following distances.
	ErrInvalidThreshold = errors.New("tailgate: invalid threshold")

	// ErrMalformedDetection is returned for a detection whose geometry is not
	// usable (non-finite position or heading, negative box dimensions).
	ErrMalformedDetection = errors.New("tailgate: malformed detection")
)
