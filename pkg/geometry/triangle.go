// Package geometry models the experimental setup: axis-aligned scintillator
// and detector volumes, their face designations, and the triangle meshes
// used for measured surface topography.
package geometry

import (
	"github.com/scintilla-sim/pillartrack/pkg/core"
)

// Triangle is a single microfacet of a topography mesh
type Triangle struct {
	V0, V1, V2 core.Vec3
	normal     core.Vec3 // cached unit normal
	bbox       core.AABB // cached bounding box
}

// NewTriangle creates a triangle and precomputes its normal and bounding box
func NewTriangle(v0, v1, v2 core.Vec3) *Triangle {
	t := &Triangle{V0: v0, V1: v1, V2: v2}
	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)
	t.normal = edge1.Cross(edge2).Normalize()
	t.bbox = core.NewAABBFromPoints(v0, v1, v2)
	return t
}

// Hit tests ray-triangle intersection using the Möller-Trumbore algorithm
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (*core.HitRecord, bool) {
	const epsilon = 1e-9

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Determinant near zero means the ray runs parallel to the facet plane.
	if a > -epsilon && a < epsilon {
		return nil, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return nil, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return nil, false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return nil, false
	}

	record := &core.HitRecord{
		T:     tParam,
		Point: ray.At(tParam),
	}
	record.SetFaceNormal(ray, t.normal)
	return record, true
}

// BoundingBox returns the triangle's bounding box
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// Normal returns the triangle's geometric unit normal
func (t *Triangle) Normal() core.Vec3 {
	return t.normal
}
