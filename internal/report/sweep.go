package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Outbreak is one DPS point of an outbreak-probability sweep. IIM is the
// number of initially infected midges, negative when they were drawn at random.
type Outbreak struct {
	IIM       int
	DPS       float64
	PVtoH     float64
	Trials    int
	Outbreaks int
	Failed    int
}

// Cell is one DPS x EIP point of a heatmap sweep.
type Cell struct {
	DPS          float64
	EIP          float64
	Trials       int
	MeanInfected float64
	Failed       int
}

// WriteOutbreaks writes the outbreak sweep table.
func WriteOutbreaks(w io.Writer, batch string, rows []Outbreak) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Batch", "IIM", "DPS", "PVTH", "Trials", "Outbreaks", "Outbreak Probability", "Failed"}); err != nil {
		return fmt.Errorf("write outbreak header: %w", err)
	}
	for _, r := range rows {
		prob := 0.0
		if done := r.Trials - r.Failed; done > 0 {
			prob = float64(r.Outbreaks) / float64(done)
		}
		iim := ""
		if r.IIM >= 0 {
			iim = strconv.Itoa(r.IIM)
		}
		rec := []string{
			batch,
			iim,
			ftoa(r.DPS),
			ftoa(r.PVtoH),
			strconv.Itoa(r.Trials),
			strconv.Itoa(r.Outbreaks),
			ftoa(prob),
			strconv.Itoa(r.Failed),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write outbreak row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHeatmap writes the DPS x EIP table.
func WriteHeatmap(w io.Writer, batch string, cells []Cell) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Batch", "DPS", "EIP", "Trials", "Mean Infected Host", "Failed"}); err != nil {
		return fmt.Errorf("write heatmap header: %w", err)
	}
	for _, c := range cells {
		rec := []string{
			batch,
			ftoa(c.DPS),
			ftoa(c.EIP),
			strconv.Itoa(c.Trials),
			ftoa(c.MeanInfected),
			strconv.Itoa(c.Failed),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write heatmap row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
