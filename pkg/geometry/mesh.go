package geometry

import (
	"fmt"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

// TriangleMesh is a collection of triangles with a BVH for fast ray
// intersection. Topography patches are represented as meshes.
type TriangleMesh struct {
	triangles []*Triangle
	shapes    []core.Shape
	bvh       *core.BVH
	bbox      core.AABB
}

// NewTriangleMesh builds a mesh from vertex positions and face indices,
// three indices per triangle.
func NewTriangleMesh(vertices []core.Vec3, faces []int) (*TriangleMesh, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("face indices must come in triples, got %d", len(faces))
	}

	numTriangles := len(faces) / 3
	if numTriangles == 0 {
		return nil, fmt.Errorf("mesh has no triangles")
	}
	triangles := make([]*Triangle, 0, numTriangles)
	shapes := make([]core.Shape, 0, numTriangles)

	for i := 0; i < numTriangles; i++ {
		i0, i1, i2 := faces[i*3], faces[i*3+1], faces[i*3+2]
		if i0 < 0 || i1 < 0 || i2 < 0 ||
			i0 >= len(vertices) || i1 >= len(vertices) || i2 >= len(vertices) {
			return nil, fmt.Errorf("triangle %d references a vertex outside 0..%d", i, len(vertices)-1)
		}
		triangle := NewTriangle(vertices[i0], vertices[i1], vertices[i2])
		triangles = append(triangles, triangle)
		shapes = append(shapes, triangle)
	}

	bbox := shapes[0].BoundingBox()
	for _, s := range shapes[1:] {
		bbox = bbox.Union(s.BoundingBox())
	}

	return &TriangleMesh{
		triangles: triangles,
		shapes:    shapes,
		bvh:       core.NewBVH(shapes),
		bbox:      bbox,
	}, nil
}

// NewTriangleMeshFromTriangles builds a mesh over already constructed
// triangles, sharing them with the caller.
func NewTriangleMeshFromTriangles(triangles []*Triangle) *TriangleMesh {
	shapes := make([]core.Shape, len(triangles))
	for i, t := range triangles {
		shapes[i] = t
	}
	bbox := shapes[0].BoundingBox()
	for _, s := range shapes[1:] {
		bbox = bbox.Union(s.BoundingBox())
	}
	return &TriangleMesh{
		triangles: triangles,
		shapes:    shapes,
		bvh:       core.NewBVH(shapes),
		bbox:      bbox,
	}
}

// Hit finds the closest triangle intersection along the ray
func (m *TriangleMesh) Hit(ray core.Ray, tMin, tMax float64) (*core.HitRecord, bool) {
	if !m.bbox.Hit(ray, tMin, tMax) {
		return nil, false
	}
	return m.bvh.Hit(ray, tMin, tMax)
}

// BoundingBox returns the bounding box of the whole mesh
func (m *TriangleMesh) BoundingBox() core.AABB {
	return m.bbox
}

// Triangles exposes the individual triangles, used for patch extraction
func (m *TriangleMesh) Triangles() []*Triangle {
	return m.triangles
}

// Count returns the number of triangles in the mesh
func (m *TriangleMesh) Count() int {
	return len(m.triangles)
}
