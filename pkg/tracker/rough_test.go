package tracker

import (
	"math"
	"testing"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
	"github.com/scintilla-sim/pillartrack/pkg/surface"
)

// buildFaceTopography generates a gently rippled mesh sitting on the z=plane
// face of a volume spanning [0,size]² laterally.
func buildFaceTopography(t *testing.T, size, plane float64) *surface.Surface {
	t.Helper()
	const n = 41
	vertices := make([]core.Vec3, 0, n*n)
	step := size / float64(n-1)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x := float64(i) * step
			y := float64(j) * step
			h := 0.3 * math.Sin(x/40) * math.Cos(y/50)
			vertices = append(vertices, core.NewVec3(x, y, plane+h))
		}
	}
	var faces []int
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			v00 := j*n + i
			faces = append(faces, v00, v00+1, v00+n+1, v00, v00+n+1, v00+n)
		}
	}

	s, err := surface.New("pillar+Z", vertices, faces, geometry.ZPos)
	if err != nil {
		t.Fatalf("surface.New: %v", err)
	}
	return s
}

func TestRoughFaceInteraction(t *testing.T) {
	mat := losslessMaterial("pillar", 1.58)
	pillar := mustVolume(t, "pillar",
		core.NewVec3(0, 0, 0), core.NewVec3(1000, 1000, 1000), mat)
	pillar.SetRough(geometry.ZPos, buildFaceTopography(t, 1000, 1000))
	g := mustGeometry(t, pillar)
	tr := New(g, 0)
	sampler := testSampler(42)

	reflected, transmitted := 0, 0
	for i := 0; i < 2000; i++ {
		p := launch(core.NewVec3(500, 500, 500), core.NewVec3(0, 0, 1), 410)
		tr.Step(p, sampler)

		last := p.Steps[len(p.Steps)-1]
		switch last.Kind {
		case photon.StepLocalReflect:
			reflected++
			if p.Direction.Z >= 0 {
				t.Fatalf("trial %d: reflected upward: %v", i, p.Direction)
			}
			if p.Volume == nil || p.Volume.Name != "pillar" {
				t.Fatalf("trial %d: reflected photon left the volume", i)
			}
		case photon.StepLocalTransmit:
			transmitted++
			if p.Direction.Z <= 0 {
				t.Fatalf("trial %d: transmitted back inward: %v", i, p.Direction)
			}
			if p.Volume != nil {
				t.Fatalf("trial %d: transmitted photon still inside %s", i, p.Volume.Name)
			}
		default:
			t.Fatalf("trial %d: unexpected step %v", i, last.Kind)
		}
	}

	// Shallow topography at normal incidence stays close to the flat-face
	// Fresnel rate: R ≈ 5% for n=1.58 against air.
	fraction := float64(reflected) / float64(reflected+transmitted)
	if fraction < 0.02 || fraction > 0.12 {
		t.Errorf("reflected fraction %v, want near the Fresnel rate 0.05", fraction)
	}
}

func TestRoughFaceOutsideFootprintInvalidates(t *testing.T) {
	mat := losslessMaterial("pillar", 1.58)
	pillar := mustVolume(t, "pillar",
		core.NewVec3(0, 0, 0), core.NewVec3(1000, 1000, 1000), mat)
	pillar.SetRough(geometry.ZPos, buildFaceTopography(t, 1000, 1000))
	g := mustGeometry(t, pillar)

	// Strike the face periphery, outside the 2.5% footprint margin.
	p := launch(core.NewVec3(5, 5, 500), core.NewVec3(0, 0, 1), 410)
	New(g, 0).Track(p, testSampler(42))

	if p.Status != photon.StatusInvalid {
		t.Fatalf("status %v, want invalid for a query off the footprint", p.Status)
	}
	last := p.Steps[len(p.Steps)-1]
	if last.Kind != photon.StepInvalid || last.Cause == "" {
		t.Errorf("final step %+v, want an invalid step with a cause", last)
	}
}
