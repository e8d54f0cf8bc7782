// Package config reads and validates the JSON run description: volumes with
// their face designations, the photon source, and tracking limits.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/geometry"
	"github.com/scintilla-sim/pillartrack/pkg/loaders"
	"github.com/scintilla-sim/pillartrack/pkg/log"
	"github.com/scintilla-sim/pillartrack/pkg/material"
	"github.com/scintilla-sim/pillartrack/pkg/source"
	"github.com/scintilla-sim/pillartrack/pkg/surface"
	"github.com/scintilla-sim/pillartrack/pkg/tracker"
)

var logger = log.New("config")

// FaceCfg designates one face of a volume
type FaceCfg struct {
	Kind       string `json:"kind"`                 // "flat", "rough", "detector", "coated"
	Topography string `json:"topography,omitempty"` // PLY path for rough faces
	Coating    string `json:"coating,omitempty"`    // coating name for coated faces
}

// VolumeCfg is one axis-aligned cuboid. Face keys are outward directions:
// "-X", "+X", "-Y", "+Y", "-Z", "+Z"; unnamed faces are flat.
type VolumeCfg struct {
	Name     string             `json:"name"`
	Min      [3]float64         `json:"min"` // µm
	Max      [3]float64         `json:"max"` // µm
	Material string             `json:"material"`
	Faces    map[string]FaceCfg `json:"faces,omitempty"`
}

// DepositCfg is one energy deposit for the deposition source
type DepositCfg struct {
	Position [3]float64 `json:"position"` // µm
	Energy   float64    `json:"energy"`   // MeV
}

// SourceCfg selects and parameterizes the photon source
type SourceCfg struct {
	Type     string       `json:"type"` // "point", "replay", "deposits"
	Position [3]float64   `json:"position,omitempty"`
	Material string       `json:"material,omitempty"`
	Count    int          `json:"count,omitempty"`
	Path     string       `json:"path,omitempty"` // CSV photon list for replay
	Deposits []DepositCfg `json:"deposits,omitempty"`
}

// Config is the full run description
type Config struct {
	Volumes  []VolumeCfg `json:"volumes"`
	Source   SourceCfg   `json:"source"`
	MaxSteps int         `json:"maxSteps,omitempty"`
	Workers  int         `json:"workers,omitempty"`
	Seed     int64       `json:"seed,omitempty"`
	Output   string      `json:"output,omitempty"` // JSON-lines path, empty for stdout
}

// Load reads, validates, and defaults a run configuration
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %v", path, err)
	}

	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = tracker.DefaultMaxSteps
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	if len(cfg.Volumes) == 0 {
		return nil, fmt.Errorf("config %s: no volumes", path)
	}
	for i, v := range cfg.Volumes {
		if v.Name == "" {
			return nil, fmt.Errorf("config %s: volume %d has no name", path, i)
		}
		if v.Material == "" {
			return nil, fmt.Errorf("config %s: volume %s has no material", path, v.Name)
		}
		for key, face := range v.Faces {
			if _, err := parseDirection(key); err != nil {
				return nil, fmt.Errorf("config %s: volume %s: %v", path, v.Name, err)
			}
			switch face.Kind {
			case "flat", "detector":
			case "rough":
				if face.Topography == "" {
					return nil, fmt.Errorf("config %s: volume %s face %s: rough face needs a topography path", path, v.Name, key)
				}
			case "coated":
				if face.Coating == "" {
					return nil, fmt.Errorf("config %s: volume %s face %s: coated face needs a coating name", path, v.Name, key)
				}
			default:
				return nil, fmt.Errorf("config %s: volume %s face %s: unknown kind %q", path, v.Name, key, face.Kind)
			}
		}
	}
	switch cfg.Source.Type {
	case "point":
		if cfg.Source.Count <= 0 || cfg.Source.Material == "" {
			return nil, fmt.Errorf("config %s: point source needs a material and a positive count", path)
		}
	case "replay":
		if cfg.Source.Path == "" {
			return nil, fmt.Errorf("config %s: replay source needs a path", path)
		}
	case "deposits":
		if len(cfg.Source.Deposits) == 0 || cfg.Source.Material == "" {
			return nil, fmt.Errorf("config %s: deposition source needs a material and deposits", path)
		}
	default:
		return nil, fmt.Errorf("config %s: unknown source type %q", path, cfg.Source.Type)
	}

	logger.Infof("loaded config %s: %d volumes, %s source, %d max steps",
		path, len(cfg.Volumes), cfg.Source.Type, cfg.MaxSteps)
	return &cfg, nil
}

// Run is a fully assembled setup ready to track
type Run struct {
	Geometry *geometry.Geometry
	Source   source.Source
	Tracker  *tracker.Tracker
	Config   *Config
}

// Build assembles the geometry, surfaces, and source described by the
// configuration against the given material library.
func (cfg *Config) Build(lib *material.Library) (*Run, error) {
	volumes := make([]*geometry.Volume, 0, len(cfg.Volumes))
	for _, vc := range cfg.Volumes {
		mat := lib.Get(vc.Material)
		if mat == nil {
			return nil, fmt.Errorf("volume %s: unknown material %q", vc.Name, vc.Material)
		}
		v, err := geometry.NewVolume(vc.Name, vec3(vc.Min), vec3(vc.Max), mat)
		if err != nil {
			return nil, err
		}

		for key, fc := range vc.Faces {
			dir, err := parseDirection(key)
			if err != nil {
				return nil, fmt.Errorf("volume %s: %v", vc.Name, err)
			}
			switch fc.Kind {
			case "detector":
				v.SetDetector(dir)
			case "coated":
				coating := lib.Coatings[fc.Coating]
				if coating == nil {
					return nil, fmt.Errorf("volume %s face %s: unknown coating %q", vc.Name, key, fc.Coating)
				}
				v.SetCoated(dir, coating)
			case "rough":
				s, err := loadSurface(vc.Name+key, fc.Topography, dir)
				if err != nil {
					return nil, fmt.Errorf("volume %s face %s: %v", vc.Name, key, err)
				}
				v.SetRough(dir, s)
			}
		}
		volumes = append(volumes, v)
	}

	g, err := geometry.New(volumes)
	if err != nil {
		return nil, err
	}

	src, err := cfg.buildSource(lib)
	if err != nil {
		return nil, err
	}

	return &Run{
		Geometry: g,
		Source:   src,
		Tracker:  tracker.New(g, cfg.MaxSteps),
		Config:   cfg,
	}, nil
}

func (cfg *Config) buildSource(lib *material.Library) (source.Source, error) {
	sc := cfg.Source
	switch sc.Type {
	case "point":
		mat := lib.Get(sc.Material)
		if mat == nil {
			return nil, fmt.Errorf("source: unknown material %q", sc.Material)
		}
		return source.NewPointSource(vec3(sc.Position), mat, sc.Count)
	case "replay":
		return source.NewReplaySourceFromFile(sc.Path)
	case "deposits":
		mat := lib.Get(sc.Material)
		if mat == nil {
			return nil, fmt.Errorf("source: unknown material %q", sc.Material)
		}
		deposits := make([]source.Deposit, len(sc.Deposits))
		for i, d := range sc.Deposits {
			deposits[i] = source.Deposit{Position: vec3(d.Position), Energy: d.Energy}
		}
		return source.NewDepositionSource(deposits, mat)
	}
	return nil, fmt.Errorf("unknown source type %q", sc.Type)
}

// loadSurface reads a topography PLY and attaches it with the face's
// canonical orientation
func loadSurface(name, path string, dir geometry.FaceDirection) (*surface.Surface, error) {
	data, err := loaders.LoadPLY(path)
	if err != nil {
		return nil, err
	}
	return surface.New(name, data.Vertices, data.Faces, dir)
}

func parseDirection(key string) (geometry.FaceDirection, error) {
	switch key {
	case "-X":
		return geometry.XNeg, nil
	case "+X":
		return geometry.XPos, nil
	case "-Y":
		return geometry.YNeg, nil
	case "+Y":
		return geometry.YPos, nil
	case "-Z":
		return geometry.ZNeg, nil
	case "+Z":
		return geometry.ZPos, nil
	}
	return 0, fmt.Errorf("unknown face direction %q", key)
}

func vec3(a [3]float64) core.Vec3 {
	return core.NewVec3(a[0], a[1], a[2])
}
