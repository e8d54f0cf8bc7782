package source

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/material"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

func testSampler() core.Sampler {
	return core.NewRandomSampler(rand.New(rand.NewSource(42)))
}

func scintillator(t *testing.T) *material.Material {
	t.Helper()
	m := material.NewLibrary().Get("EJ-204")
	if m == nil {
		t.Fatal("missing EJ-204")
	}
	return m
}

func TestPointSourceGenerate(t *testing.T) {
	position := core.NewVec3(1, 2, 3)
	s, err := NewPointSource(position, scintillator(t), 500)
	if err != nil {
		t.Fatalf("NewPointSource: %v", err)
	}

	photons, err := s.Generate(testSampler())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(photons) != 500 {
		t.Fatalf("got %d photons, want 500", len(photons))
	}

	seen := map[uint64]bool{}
	for _, p := range photons {
		if p.Position != position {
			t.Fatalf("photon emitted at %v, want %v", p.Position, position)
		}
		if math.Abs(p.Direction.Length()-1.0) > 1e-12 {
			t.Fatalf("direction not unit: %v", p.Direction)
		}
		if p.Wavelength < 380 || p.Wavelength > 496 {
			t.Fatalf("wavelength %v outside the EJ-204 band", p.Wavelength)
		}
		if p.Status != photon.StatusAlive {
			t.Fatalf("status %v, want alive", p.Status)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate photon id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestPointSourceIsotropy(t *testing.T) {
	s, err := NewPointSource(core.Vec3{}, scintillator(t), 20000)
	if err != nil {
		t.Fatalf("NewPointSource: %v", err)
	}
	photons, err := s.Generate(testSampler())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Mean direction of an isotropic sample tends to zero.
	var sum core.Vec3
	for _, p := range photons {
		sum = sum.Add(p.Direction)
	}
	mean := sum.Multiply(1.0 / float64(len(photons)))
	if mean.Length() > 0.02 {
		t.Errorf("mean direction %v, want near zero for isotropic emission", mean)
	}
}

func TestPointSourceRejectsNonScintillator(t *testing.T) {
	air := material.NewLibrary().Get("Air")
	if _, err := NewPointSource(core.Vec3{}, air, 10); err == nil {
		t.Error("expected error for a non-scintillating material")
	}
	if _, err := NewPointSource(core.Vec3{}, scintillator(t), 0); err == nil {
		t.Error("expected error for zero count")
	}
}

func TestDepositionSource(t *testing.T) {
	mat := scintillator(t) // 10400 photons/MeV
	deposits := []Deposit{
		{Position: core.NewVec3(0, 0, 0), Energy: 0.001},
		{Position: core.NewVec3(5, 0, 0), Energy: 0.002},
	}
	s, err := NewDepositionSource(deposits, mat)
	if err != nil {
		t.Fatalf("NewDepositionSource: %v", err)
	}

	photons, err := s.Generate(testSampler())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := int(0.001*mat.LightYield+0.5) + int(0.002*mat.LightYield+0.5)
	if len(photons) != want {
		t.Errorf("got %d photons, want %d", len(photons), want)
	}
}

func TestReplaySource(t *testing.T) {
	input := `x,y,z,dx,dy,dz,t,wavelength
1.0,2.0,3.0,0,0,1,0.5,410
4.0,5.0,6.0,1,0,0,1.5,420
`
	s, err := NewReplaySource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}

	photons, err := s.Generate(testSampler())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(photons) != 2 {
		t.Fatalf("got %d photons, want 2", len(photons))
	}

	p := photons[0]
	if p.Position != core.NewVec3(1, 2, 3) {
		t.Errorf("position %v", p.Position)
	}
	if p.Direction != core.NewVec3(0, 0, 1) {
		t.Errorf("direction %v", p.Direction)
	}
	if p.Time != 0.5 || p.Wavelength != 410 {
		t.Errorf("time %v wavelength %v", p.Time, p.Wavelength)
	}
}

func TestReplaySourceRejectsMalformedRows(t *testing.T) {
	cases := map[string]string{
		"short row":      "1,2,3,0,0,1,0.5\n",
		"non-numeric":    "1,2,3,0,0,one,0.5,410\n",
		"zero direction": "1,2,3,0,0,0,0.5,410\n",
		"empty list":     "x,y,z,dx,dy,dz,t,wavelength\n",
	}
	for name, input := range cases {
		if _, err := NewReplaySource(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
