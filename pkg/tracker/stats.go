package tracker

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/scintilla-sim/pillartrack/pkg/photon"
)

// RunStats summarizes the terminal states of a tracked photon batch
type RunStats struct {
	Total    int
	Detected int
	Absorbed int
	Escaped  int
	Invalid  int

	FallbackSteps     int
	TotalSteps        int
	MeanDetectionTime float64 // ns, 0 when nothing was detected
}

// CollectStats aggregates per-photon results into run statistics
func CollectStats(results []photon.Result) RunStats {
	stats := RunStats{Total: len(results)}
	detectionTime := 0.0

	for _, r := range results {
		switch r.Status {
		case photon.StatusDetected:
			stats.Detected++
			detectionTime += r.Time
		case photon.StatusAbsorbed:
			stats.Absorbed++
		case photon.StatusEscaped:
			stats.Escaped++
		case photon.StatusInvalid:
			stats.Invalid++
		}
		stats.TotalSteps += len(r.Steps)
		for _, s := range r.Steps {
			if s.Fallback {
				stats.FallbackSteps++
			}
		}
	}

	if stats.Detected > 0 {
		stats.MeanDetectionTime = detectionTime / float64(stats.Detected)
	}
	return stats
}

// DetectionEfficiency is the detected fraction of the batch
func (s RunStats) DetectionEfficiency() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Detected) / float64(s.Total)
}

// WriteTable renders the summary as a table
func (s RunStats) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Outcome", "Count", "Fraction"})

	row := func(name string, count int) {
		fraction := 0.0
		if s.Total > 0 {
			fraction = float64(count) / float64(s.Total)
		}
		table.Append([]string{name, fmt.Sprintf("%d", count), fmt.Sprintf("%.4f", fraction)})
	}
	row("detected", s.Detected)
	row("absorbed", s.Absorbed)
	row("escaped", s.Escaped)
	row("invalid", s.Invalid)

	table.SetFooter([]string{
		"total", fmt.Sprintf("%d", s.Total),
		fmt.Sprintf("mean t_det %.3f ns", s.MeanDetectionTime),
	})
	table.Render()

	if s.FallbackSteps > 0 {
		fmt.Fprintf(w, "grazing-incidence fallbacks: %d of %d steps\n", s.FallbackSteps, s.TotalSteps)
	}
}
