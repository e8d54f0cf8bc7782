package geometry

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/scintilla-sim/pillartrack/pkg/core"
)

const (
	// planeEps is the tolerance for treating two face planes as coincident.
	planeEps = 1e-9
	// locateEps nudges boundary points when resolving which volume owns them.
	locateEps = 1e-6
)

// BoundaryHit describes the next volume boundary along a photon path
type BoundaryHit struct {
	Point    core.Vec3
	Distance float64
	Volume   *Volume // volume whose face was struck
	Face     *Face
	Normal   core.Vec3 // outward normal of the struck face

	// Neighbor is the volume on the far side of the face, nil when the far
	// side is the exterior. NeighborFace is its coincident face when the
	// two planes touch.
	Neighbor     *Volume
	NeighborFace *Face
}

// Geometry is the full experimental setup: every volume plus an R-tree
// index for point location and boundary search.
type Geometry struct {
	volumes []*Volume
	tree    *rtreego.Rtree
	bounds  core.AABB
}

// New validates the volumes and builds the spatial index. Overlapping
// interiors and under-separated rough faces are setup errors.
func New(volumes []*Volume) (*Geometry, error) {
	if len(volumes) == 0 {
		return nil, fmt.Errorf("no volumes")
	}

	for i := 0; i < len(volumes); i++ {
		for j := i + 1; j < len(volumes); j++ {
			if volumes[i].Box.Overlaps(volumes[j].Box, planeEps) {
				return nil, fmt.Errorf("%w: %s and %s",
					ErrGeometryOverlap, volumes[i].Name, volumes[j].Name)
			}
		}
	}

	if err := checkSeparation(volumes); err != nil {
		return nil, err
	}

	tree := rtreego.NewTree(3, 2, 8)
	bounds := volumes[0].Box
	for _, v := range volumes {
		tree.Insert(v)
		bounds = bounds.Union(v.Box)
	}

	return &Geometry{volumes: volumes, tree: tree, bounds: bounds}, nil
}

// checkSeparation verifies every rough face against the facing planes of
// all other volumes. A positive gap smaller than the topography height
// scale leaves the local mesh poking into the neighbor, and two touching
// rough faces cannot both be honored.
func checkSeparation(volumes []*Volume) error {
	for _, v := range volumes {
		for _, d := range FaceDirections {
			face := v.Face(d)
			if face.Kind != FaceRough || face.Surface == nil {
				continue
			}
			scale := face.Surface.RoughnessScale()
			plane := v.FacePlane(d)

			for _, other := range volumes {
				if other == v || !lateralOverlap(v, other, d.Axis()) {
					continue
				}
				facing := other.Face(d.Opposite())
				otherPlane := other.FacePlane(d.Opposite())
				gap := d.Sign() * (otherPlane - plane)

				if math.Abs(gap) <= planeEps {
					if facing.Kind == FaceRough {
						return fmt.Errorf("%w: coincident faces %s%s and %s%s both carry topography",
							ErrInsufficientSeparation, v.Name, d, other.Name, d.Opposite())
					}
					continue
				}
				if gap > 0 && gap < scale {
					return fmt.Errorf("%w: %s%s is %.3g µm from %s, topography spans %.3g µm",
						ErrInsufficientSeparation, v.Name, d, gap, other.Name, scale)
				}
			}
		}
	}
	return nil
}

// lateralOverlap reports whether two volumes overlap in the plane
// perpendicular to the given axis
func lateralOverlap(a, b *Volume, axis int) bool {
	for ax := 0; ax < 3; ax++ {
		if ax == axis {
			continue
		}
		if a.Box.Max.Component(ax) <= b.Box.Min.Component(ax)+planeEps ||
			b.Box.Max.Component(ax) <= a.Box.Min.Component(ax)+planeEps {
			return false
		}
	}
	return true
}

// Volumes returns the indexed volumes
func (g *Geometry) Volumes() []*Volume {
	return g.volumes
}

// Bounds returns the union bounding box of all volumes
func (g *Geometry) Bounds() core.AABB {
	return g.bounds
}

// VolumeByName returns the named volume, or nil
func (g *Geometry) VolumeByName(name string) *Volume {
	for _, v := range g.volumes {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Locate returns the volume containing p, or nil when p is outside every
// volume. Points on shared boundaries resolve to the volume whose interior
// contains them; exact corner ties fall to the first registered volume.
func (g *Geometry) Locate(p core.Vec3) *Volume {
	point := rtreego.Point{p.X, p.Y, p.Z}
	candidates := g.tree.SearchIntersect(point.ToRect(locateEps))

	var onBoundary *Volume
	for _, spatial := range candidates {
		v := spatial.(*Volume)
		if v.Box.ContainsStrict(p) {
			return v
		}
		if onBoundary == nil && v.Box.Contains(p) {
			onBoundary = v
		}
	}
	return onBoundary
}

// NextBoundary finds the next volume boundary along the ray. Inside a
// volume it is that volume's exit face; outside it is the nearest entry
// face over the indexed volumes. ok is false when nothing lies ahead.
func (g *Geometry) NextBoundary(origin, direction core.Vec3, current *Volume) (BoundaryHit, bool) {
	ray := core.Ray{Origin: origin, Direction: direction}

	if current != nil {
		t, d, ok := slabCrossing(current.Box, ray, false)
		if !ok {
			return BoundaryHit{}, false
		}
		return g.resolveHit(ray, t, current, d), true
	}

	// Exterior: scan candidates along the ray up to the setup extent.
	span := g.bounds.Diagonal() * 2
	far := origin.Add(direction.Multiply(span))
	searchRect := aabbToRect(core.NewAABBFromPoints(origin, far))

	best := BoundaryHit{Distance: math.Inf(1)}
	found := false
	for _, spatial := range g.tree.SearchIntersect(searchRect) {
		v := spatial.(*Volume)
		t, d, ok := slabCrossing(v.Box, ray, true)
		if !ok || t >= best.Distance {
			continue
		}
		best = g.resolveHit(ray, t, v, d)
		found = true
	}
	return best, found
}

// resolveHit assembles a BoundaryHit for a crossing of the given face
func (g *Geometry) resolveHit(ray core.Ray, t float64, v *Volume, d FaceDirection) BoundaryHit {
	face := v.Face(d)
	normal := d.Normal()
	point := ray.At(t)
	// Pin the point onto the face plane to keep later plane tests exact.
	point = point.WithComponent(d.Axis(), v.FacePlane(d))

	hit := BoundaryHit{
		Point:    point,
		Distance: t,
		Volume:   v,
		Face:     face,
		Normal:   normal,
	}

	probe := point.Add(normal.Multiply(locateEps))
	if !v.Box.Contains(probe) {
		if neighbor := g.Locate(probe); neighbor != nil && neighbor != v {
			hit.Neighbor = neighbor
			if math.Abs(neighbor.FacePlane(d.Opposite())-v.FacePlane(d)) <= planeEps {
				hit.NeighborFace = neighbor.Face(d.Opposite())
			}
		}
	}
	return hit
}

// slabCrossing returns the ray parameter and face of the box crossing:
// the entry face when entry is true, the exit face otherwise.
func slabCrossing(box core.AABB, ray core.Ray, entry bool) (float64, FaceDirection, bool) {
	tEnter, tExit := math.Inf(-1), math.Inf(1)
	var enterFace, exitFace FaceDirection

	for axis := 0; axis < 3; axis++ {
		origin := ray.Origin.Component(axis)
		dir := ray.Direction.Component(axis)
		lo := box.Min.Component(axis)
		hi := box.Max.Component(axis)

		if math.Abs(dir) < 1e-15 {
			if origin < lo || origin > hi {
				return 0, 0, false
			}
			continue
		}

		t0 := (lo - origin) / dir
		t1 := (hi - origin) / dir
		nearFace := FaceDirection(axis * 2) // low side
		farFace := FaceDirection(axis*2 + 1)
		if t0 > t1 {
			t0, t1 = t1, t0
			nearFace, farFace = farFace, nearFace
		}
		if t0 > tEnter {
			tEnter, enterFace = t0, nearFace
		}
		if t1 < tExit {
			tExit, exitFace = t1, farFace
		}
	}

	if tEnter > tExit || tExit < locateEps {
		return 0, 0, false
	}
	if entry {
		if tEnter < locateEps {
			return 0, 0, false
		}
		return tEnter, enterFace, true
	}
	return tExit, exitFace, true
}

func aabbToRect(box core.AABB) rtreego.Rect {
	size := box.Size()
	rect, err := rtreego.NewRect(
		rtreego.Point{box.Min.X, box.Min.Y, box.Min.Z},
		[]float64{
			math.Max(size.X, locateEps),
			math.Max(size.Y, locateEps),
			math.Max(size.Z, locateEps),
		},
	)
	if err != nil {
		// Only possible for negative lengths, excluded above.
		panic(err)
	}
	return rect
}
