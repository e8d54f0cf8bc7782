package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// ReplaySource re-emits a photon list recorded by an external generator.
// Rows are x,y,z,dx,dy,dz,time,wavelength (µm, unit direction, ns, nm);
// a header row is skipped when the first field is not numeric.
type ReplaySource struct {
	photons []*photon.OpticalPhoton
}

// NewReplaySource parses a CSV photon list
func NewReplaySource(r io.Reader) (*ReplaySource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var photons []*photon.OpticalPhoton
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("photon list row %d: %v", line+1, err)
		}
		line++

		if len(row) != 8 {
			return nil, fmt.Errorf("photon list row %d: %d fields, want 8", line, len(row))
		}
		if line == 1 {
			if _, err := strconv.ParseFloat(row[0], 64); err != nil {
				continue // header
			}
		}

		var fields [8]float64
		for i, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("photon list row %d field %d: %v", line, i+1, err)
			}
			fields[i] = v
		}

		position := core.NewVec3(fields[0], fields[1], fields[2])
		direction := core.NewVec3(fields[3], fields[4], fields[5])
		if direction.Length() == 0 {
			return nil, fmt.Errorf("photon list row %d: zero direction", line)
		}
		// Replayed photons carry no polarization; fix an arbitrary one.
		polarization := core.NewVec3(1, 0, 0)
		photons = append(photons, photon.New(nextID(), position, direction, polarization, fields[7], fields[6]))
	}

	if len(photons) == 0 {
		return nil, fmt.Errorf("photon list is empty")
	}
	return &ReplaySource{photons: photons}, nil
}

// NewReplaySourceFromFile opens and parses a CSV photon list
func NewReplaySourceFromFile(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open photon list: %v", err)
	}
	defer f.Close()
	return NewReplaySource(f)
}

// Generate returns the replayed photons; the sampler is unused
func (s *ReplaySource) Generate(core.Sampler) ([]*photon.OpticalPhoton, error) {
	return s.photons, nil
}
