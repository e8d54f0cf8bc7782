package geometry

import (
	"math"
	"testing"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

func TestTriangleHit(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(2, 0, 0),
		core.NewVec3(0, 2, 0),
	)

	ray := core.Ray{Origin: core.NewVec3(0.5, 0.5, 1), Direction: core.NewVec3(0, 0, -1)}
	record, ok := tri.Hit(ray, 1e-9, math.Inf(1))
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(record.T-1.0) > 1e-12 {
		t.Errorf("t = %v, want 1", record.T)
	}
	if record.Point.Subtract(core.NewVec3(0.5, 0.5, 0)).Length() > 1e-12 {
		t.Errorf("hit point %v", record.Point)
	}
	// The normal faces the incoming ray.
	if record.Normal.Dot(ray.Direction) >= 0 {
		t.Error("hit normal points with the ray")
	}
}

func TestTriangleMiss(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(2, 0, 0),
		core.NewVec3(0, 2, 0),
	)

	// Outside the triangle but inside its bounding box plane.
	ray := core.Ray{Origin: core.NewVec3(1.5, 1.5, 1), Direction: core.NewVec3(0, 0, -1)}
	if _, ok := tri.Hit(ray, 1e-9, math.Inf(1)); ok {
		t.Error("expected miss outside the triangle")
	}

	// Parallel to the triangle plane.
	ray = core.Ray{Origin: core.NewVec3(0.5, 0.5, 1), Direction: core.NewVec3(1, 0, 0)}
	if _, ok := tri.Hit(ray, 1e-9, math.Inf(1)); ok {
		t.Error("expected miss for a parallel ray")
	}
}

func TestTriangleNormal(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0, 0),
		core.NewVec3(0, 1, 0),
	)
	if tri.Normal().Subtract(core.NewVec3(0, 0, 1)).Length() > 1e-12 {
		t.Errorf("normal %v, want +Z", tri.Normal())
	}
}

func TestTriangleMeshHitNearest(t *testing.T) {
	// Two stacked parallel triangles; the ray must strike the upper one.
	vertices := []core.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}, {X: 0, Y: 2, Z: 1},
	}
	faces := []int{0, 1, 2, 3, 4, 5}

	mesh, err := NewTriangleMesh(vertices, faces)
	if err != nil {
		t.Fatalf("NewTriangleMesh: %v", err)
	}
	if mesh.Count() != 2 {
		t.Fatalf("count = %d, want 2", mesh.Count())
	}

	ray := core.Ray{Origin: core.NewVec3(0.5, 0.5, 5), Direction: core.NewVec3(0, 0, -1)}
	record, ok := mesh.Hit(ray, 1e-9, math.Inf(1))
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(record.Point.Z-1.0) > 1e-12 {
		t.Errorf("hit z = %v, want the upper triangle at z=1", record.Point.Z)
	}
}

func TestTriangleMeshRejectsBadInput(t *testing.T) {
	vertices := []core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}

	if _, err := NewTriangleMesh(vertices, []int{0, 1}); err == nil {
		t.Error("expected error for a partial triple")
	}
	if _, err := NewTriangleMesh(vertices, []int{0, 1, 5}); err == nil {
		t.Error("expected error for an out-of-range index")
	}
	if _, err := NewTriangleMesh(vertices, nil); err == nil {
		t.Error("expected error for an empty mesh")
	}
}
