package photon

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/scintilla-sim/pillartrack/pkg/core"
)

func TestNewRecordsEmission(t *testing.T) {
	p := New(7,
		core.NewVec3(1, 2, 3),
		core.NewVec3(0, 0, 2), // non-unit on purpose
		core.NewVec3(1, 0, 0),
		420, 1.5)

	if p.Status != StatusAlive {
		t.Errorf("status %v, want alive", p.Status)
	}
	if math.Abs(p.Direction.Length()-1.0) > 1e-12 {
		t.Errorf("direction not normalized: %v", p.Direction)
	}
	if len(p.Steps) != 1 || p.Steps[0].Kind != StepEmission {
		t.Fatalf("steps %+v, want a single emission step", p.Steps)
	}
	if p.Steps[0].Time != 1.5 {
		t.Errorf("emission time %v, want 1.5", p.Steps[0].Time)
	}
}

func TestAppendAssignsIndices(t *testing.T) {
	p := New(1, core.Vec3{}, core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0), 420, 0)
	p.Append(Step{Kind: StepFlatReflect})
	p.Append(Step{Kind: StepBulkAbsorb})

	for i, step := range p.Steps {
		if step.Index != i {
			t.Errorf("step %d carries index %d", i, step.Index)
		}
	}
}

func TestAdvance(t *testing.T) {
	p := New(1, core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 420, 2.0)

	p.Advance(1000, 200000) // 1000 µm at 200000 µm/ns
	if p.Position.X != 1000 {
		t.Errorf("position %v", p.Position)
	}
	if p.TraveledDistance != 1000 {
		t.Errorf("traveled %v", p.TraveledDistance)
	}
	if math.Abs(p.Time-2.005) > 1e-12 {
		t.Errorf("time %v, want 2.005", p.Time)
	}
}

func TestTerminal(t *testing.T) {
	p := New(1, core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), 420, 0)
	if p.Terminal() {
		t.Error("fresh photon must not be terminal")
	}
	p.Status = StatusDetected
	if !p.Terminal() {
		t.Error("detected photon must be terminal")
	}
}

func TestResultJSON(t *testing.T) {
	p := New(42, core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1), 408, 0)
	p.Status = StatusDetected
	p.Append(Step{Kind: StepDetected, Volume: "detector", Face: "+X"})

	data, err := json.Marshal(p.Result())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"id":42`, `"status":"detected"`, `"kind":"emission"`, `"kind":"detected"`, `"face":"+X"`} {
		if !strings.Contains(s, want) {
			t.Errorf("output %s missing %s", s, want)
		}
	}
}
