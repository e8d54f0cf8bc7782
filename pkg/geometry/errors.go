package geometry

import "errors"

// Setup validation failures. Both abort a run before any photon is tracked.
var (
	// ErrGeometryOverlap reports two volumes whose interiors intersect.
	ErrGeometryOverlap = errors.New("volume interiors overlap")

	// ErrInsufficientSeparation reports a rough face whose gap to the
	// facing volume is smaller than the topography height scale, or two
	// coincident faces that both carry topography.
	ErrInsufficientSeparation = errors.New("insufficient separation for surface roughness")
)
