// Package surface manages measured 3D topography attached to volume faces.
// A Surface owns one full-resolution mesh in world coordinates and serves
// local microfacet patches from a lazily populated bucket cache.
package surface

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/log"
)

var logger = log.New("surface")

// ErrSurfaceUnavailable reports a local-frame query outside the authored
// footprint of the topography.
var ErrSurfaceUnavailable = errors.New("no topography at query point")

// footprintMargin is the fraction of each lateral extent excluded per side.
// Scan peripheries carry stitching artifacts and are never queried.
const footprintMargin = 0.025

// bucketsPerSide divides the footprint into the default patch grid
const bucketsPerSide = 16

// patch is one cached local frame: the microfacet mesh under a bucket plus
// its best-fit reference normal. Immutable once published.
type patch struct {
	mesh   *geometry.TriangleMesh
	normal core.Vec3
}

// Surface is measured topography for a single volume face, in world
// coordinates. Safe for concurrent queries.
type Surface struct {
	name      string
	direction geometry.FaceDirection
	triangles []*geometry.Triangle

	axis    int    // height axis
	lat     [2]int // lateral axes
	plane   float64
	rough   float64
	footMin [2]float64
	footMax [2]float64
	pitch   float64
	outward core.Vec3

	mu      sync.RWMutex
	patches map[[2]int]*patch
}

// New builds a surface from mesh data already positioned on its face.
// The direction fixes the canonical outward orientation; the nominal plane
// is the mean vertex height along that direction's axis.
func New(name string, vertices []core.Vec3, faces []int, direction geometry.FaceDirection) (*Surface, error) {
	mesh, err := geometry.NewTriangleMesh(vertices, faces)
	if err != nil {
		return nil, fmt.Errorf("surface %s: %v", name, err)
	}

	axis := direction.Axis()
	lat := [2]int{(axis + 1) % 3, (axis + 2) % 3}
	if lat[0] > lat[1] {
		lat[0], lat[1] = lat[1], lat[0]
	}

	plane := 0.0
	for _, v := range vertices {
		plane += v.Component(axis)
	}
	plane /= float64(len(vertices))

	rough := 0.0
	for _, v := range vertices {
		if dev := math.Abs(v.Component(axis) - plane); dev > rough {
			rough = dev
		}
	}

	bounds := mesh.BoundingBox()
	var footMin, footMax [2]float64
	minExtent := math.Inf(1)
	for i, ax := range lat {
		lo := bounds.Min.Component(ax)
		hi := bounds.Max.Component(ax)
		margin := (hi - lo) * footprintMargin
		footMin[i] = lo + margin
		footMax[i] = hi - margin
		if extent := footMax[i] - footMin[i]; extent <= 0 {
			return nil, fmt.Errorf("surface %s: degenerate lateral extent on axis %d", name, ax)
		} else if extent < minExtent {
			minExtent = extent
		}
	}

	s := &Surface{
		name:      name,
		direction: direction,
		triangles: mesh.Triangles(),
		axis:      axis,
		lat:       lat,
		plane:     plane,
		rough:     rough,
		footMin:   footMin,
		footMax:   footMax,
		pitch:     minExtent / bucketsPerSide,
		outward:   direction.Normal(),
		patches:   make(map[[2]int]*patch),
	}

	logger.Debugf("surface %s: %d triangles, roughness %.3g µm, pitch %.3g µm",
		name, len(s.triangles), rough, s.pitch)

	return s, nil
}

// Name returns the surface identifier
func (s *Surface) Name() string { return s.name }

// Direction returns the canonical outward orientation
func (s *Surface) Direction() geometry.FaceDirection { return s.direction }

// RoughnessScale returns the peak height deviation from the nominal plane
// in µm. Consumed by the geometry separation check.
func (s *Surface) RoughnessScale() float64 { return s.rough }

// Pitch returns the bucket grid pitch in µm
func (s *Surface) Pitch() float64 { return s.pitch }

// LocalFrame returns the topography patch under the given point and its
// reference normal, extracting and caching the patch on first use.
// Points outside the footprint return ErrSurfaceUnavailable.
func (s *Surface) LocalFrame(p core.Vec3) (*geometry.TriangleMesh, core.Vec3, error) {
	u := p.Component(s.lat[0])
	v := p.Component(s.lat[1])
	if u < s.footMin[0] || u > s.footMax[0] || v < s.footMin[1] || v > s.footMax[1] {
		return nil, core.Vec3{}, fmt.Errorf("%w: surface %s at (%.3g, %.3g)",
			ErrSurfaceUnavailable, s.name, u, v)
	}

	key := [2]int{
		int((u - s.footMin[0]) / s.pitch),
		int((v - s.footMin[1]) / s.pitch),
	}

	s.mu.RLock()
	cached := s.patches[key]
	s.mu.RUnlock()
	if cached != nil {
		return cached.mesh, cached.normal, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached := s.patches[key]; cached != nil {
		return cached.mesh, cached.normal, nil
	}

	built, err := s.extractPatch(key)
	if err != nil {
		return nil, core.Vec3{}, err
	}
	s.patches[key] = built
	return built.mesh, built.normal, nil
}

// extractPatch gathers the triangles under a bucket expanded by half a
// pitch per side and fits their reference plane. Caller holds the lock.
func (s *Surface) extractPatch(key [2]int) (*patch, error) {
	uLo := s.footMin[0] + float64(key[0])*s.pitch - s.pitch/2
	uHi := uLo + 2*s.pitch
	vLo := s.footMin[1] + float64(key[1])*s.pitch - s.pitch/2
	vHi := vLo + 2*s.pitch

	var selected []*geometry.Triangle
	for _, t := range s.triangles {
		box := t.BoundingBox()
		if box.Max.Component(s.lat[0]) < uLo || box.Min.Component(s.lat[0]) > uHi ||
			box.Max.Component(s.lat[1]) < vLo || box.Min.Component(s.lat[1]) > vHi {
			continue
		}
		selected = append(selected, t)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: surface %s bucket (%d, %d) is empty",
			ErrSurfaceUnavailable, s.name, key[0], key[1])
	}

	normal, err := fitPlaneNormal(selected)
	if err != nil {
		return nil, fmt.Errorf("surface %s bucket (%d, %d): %v", s.name, key[0], key[1], err)
	}
	// Orient along the canonical outward direction.
	if normal.Dot(s.outward) < 0 {
		normal = normal.Negate()
	}

	return &patch{
		mesh:   geometry.NewTriangleMeshFromTriangles(selected),
		normal: normal,
	}, nil
}

// fitPlaneNormal finds the least-squares plane through the patch vertices.
// The plane normal is the singular vector of the centered vertex matrix
// with the smallest singular value.
func fitPlaneNormal(triangles []*geometry.Triangle) (core.Vec3, error) {
	points := make([]core.Vec3, 0, len(triangles)*3)
	for _, t := range triangles {
		points = append(points, t.V0, t.V1, t.V2)
	}

	var centroid core.Vec3
	for _, p := range points {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Multiply(1.0 / float64(len(points)))

	a := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		d := p.Subtract(centroid)
		a.SetRow(i, []float64{d.X, d.Y, d.Z})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThinV) {
		return core.Vec3{}, fmt.Errorf("plane fit did not converge over %d points", len(points))
	}
	var v mat.Dense
	svd.VTo(&v)

	// Singular values are sorted descending, so the last right singular
	// vector spans the direction of least variance.
	normal := core.NewVec3(v.At(0, 2), v.At(1, 2), v.At(2, 2))
	return normal.Normalize(), nil
}
