package geometry

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/material"
)

// FaceDirection identifies one of the six faces of an axis-aligned cuboid
// by its outward normal direction.
type FaceDirection int

const (
	XNeg FaceDirection = iota
	XPos
	YNeg
	YPos
	ZNeg
	ZPos
)

// FaceDirections lists all six directions in a stable order
var FaceDirections = [6]FaceDirection{XNeg, XPos, YNeg, YPos, ZNeg, ZPos}

// Axis returns the axis the face is perpendicular to (0=X, 1=Y, 2=Z)
func (d FaceDirection) Axis() int {
	return int(d) / 2
}

// Sign returns +1 for faces on the positive side of the axis, -1 otherwise
func (d FaceDirection) Sign() float64 {
	if int(d)%2 == 1 {
		return 1
	}
	return -1
}

// Normal returns the outward unit normal of the face
func (d FaceDirection) Normal() core.Vec3 {
	return core.NewVec3(0, 0, 0).WithComponent(d.Axis(), d.Sign())
}

// Opposite returns the facing direction on an adjacent volume
func (d FaceDirection) Opposite() FaceDirection {
	if int(d)%2 == 1 {
		return d - 1
	}
	return d + 1
}

func (d FaceDirection) String() string {
	switch d {
	case XNeg:
		return "-X"
	case XPos:
		return "+X"
	case YNeg:
		return "-Y"
	case YPos:
		return "+Y"
	case ZNeg:
		return "-Z"
	case ZPos:
		return "+Z"
	}
	return fmt.Sprintf("FaceDirection(%d)", int(d))
}

// FaceKind designates how a face interacts with photons
type FaceKind int

const (
	// FaceFlat is a polished face: Fresnel against the macroscopic normal.
	FaceFlat FaceKind = iota
	// FaceRough carries measured topography: Fresnel against a local
	// microfacet normal from the attached surface.
	FaceRough
	// FaceDetector terminates arriving photons as detected.
	FaceDetector
	// FaceCoated is wrapped in a diffuse reflector.
	FaceCoated
)

func (k FaceKind) String() string {
	switch k {
	case FaceFlat:
		return "flat"
	case FaceRough:
		return "rough"
	case FaceDetector:
		return "detector"
	case FaceCoated:
		return "coated"
	}
	return fmt.Sprintf("FaceKind(%d)", int(k))
}

// FaceSurface provides local microfacet geometry for points on a rough face.
// Implemented by surface.Surface.
type FaceSurface interface {
	// LocalFrame returns the cached topography patch under the given point
	// and its outward-oriented reference normal.
	LocalFrame(p core.Vec3) (*TriangleMesh, core.Vec3, error)
	// RoughnessScale is the peak height deviation of the topography from
	// its nominal plane, in µm.
	RoughnessScale() float64
}

// Face is one side of a volume
type Face struct {
	Direction FaceDirection
	Kind      FaceKind
	Surface   FaceSurface       // non-nil for FaceRough
	Coating   *material.Coating // non-nil for FaceCoated
}

// Volume is an axis-aligned cuboid filled with a single material
type Volume struct {
	Name     string
	Box      core.AABB
	Material *material.Material
	faces    [6]Face

	rect rtreego.Rect
}

// NewVolume creates a volume with all six faces flat
func NewVolume(name string, min, max core.Vec3, mat *material.Material) (*Volume, error) {
	bounds := core.NewAABB(min, max)
	if !bounds.IsValid() {
		return nil, fmt.Errorf("volume %s: bounds %v..%v are inverted or degenerate", name, min, max)
	}
	if mat == nil {
		return nil, fmt.Errorf("volume %s: no material", name)
	}

	size := bounds.Size()
	rect, err := rtreego.NewRect(
		rtreego.Point{min.X, min.Y, min.Z},
		[]float64{size.X, size.Y, size.Z},
	)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %v", name, err)
	}

	v := &Volume{Name: name, Box: bounds, Material: mat, rect: rect}
	for _, d := range FaceDirections {
		v.faces[d] = Face{Direction: d, Kind: FaceFlat}
	}
	return v, nil
}

// Face returns the face with the given outward direction
func (v *Volume) Face(d FaceDirection) *Face {
	return &v.faces[d]
}

// SetRough attaches measured topography to a face
func (v *Volume) SetRough(d FaceDirection, s FaceSurface) {
	v.faces[d] = Face{Direction: d, Kind: FaceRough, Surface: s}
}

// SetDetector marks a face as a detector sentinel
func (v *Volume) SetDetector(d FaceDirection) {
	v.faces[d] = Face{Direction: d, Kind: FaceDetector}
}

// SetCoated wraps a face in a diffuse reflector
func (v *Volume) SetCoated(d FaceDirection, c *material.Coating) {
	v.faces[d] = Face{Direction: d, Kind: FaceCoated, Coating: c}
}

// FacePlane returns the coordinate of the face plane along its axis
func (v *Volume) FacePlane(d FaceDirection) float64 {
	if d.Sign() > 0 {
		return v.Box.Max.Component(d.Axis())
	}
	return v.Box.Min.Component(d.Axis())
}

// Bounds implements rtreego.Spatial
func (v *Volume) Bounds() rtreego.Rect {
	return v.rect
}
