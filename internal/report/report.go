// Package report writes simulation results as CSV tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/swarm"
)

// StepHeader is the per-step table header.
var StepHeader = []string{
	"Step", "Day", "Infected Midges", "Infected Midges %", "Infected Host", "Infected Host %",
	"Midge Bites", "Infected Midge Bites",
	"VF", "VR", "DD", "EIP", "PVTH", "PHTV", "DPS", "PD", "BR",
	"MDR", "IIM", "Infected Deaths", "Uninfected Deaths",
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func pct(n, of int) string { return ftoa(float64(n) / float64(of) * 100) }

// WriteSteps writes one row per completed step of s.
func WriteSteps(w io.Writer, s *swarm.Swarm) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StepHeader); err != nil {
		return fmt.Errorf("write step header: %w", err)
	}

	p := s.Params()
	infected := s.InfectedSeries()
	hosts := s.Hosts().TotalInfectedHistory()
	bites := s.BiteSeries()
	infectedBites := s.InfectedBiteSeries()
	deaths := s.DeathSeries()

	for i := 0; i < s.StepCount(); i++ {
		d := deaths[i/p.DayLength]
		row := []string{
			strconv.Itoa(i),
			ftoa(float64(i) / float64(p.DayLength)),
			strconv.Itoa(infected[i]),
			pct(infected[i], s.Size()),
			strconv.Itoa(hosts[i]),
			pct(hosts[i], p.HostSize),
			strconv.Itoa(bites[i]),
			strconv.Itoa(infectedBites[i]),
			ftoa(p.ActiveVelocity),
			ftoa(p.RoamVelocity),
			ftoa(p.DetectionDistance),
			ftoa(p.EIP),
			ftoa(p.PVtoH),
			ftoa(p.PHtoV),
			ftoa(p.DPS),
			strconv.Itoa(p.HostSize),
			strconv.Itoa(p.BiteRate),
			strconv.Itoa(p.VectorsPerHost),
			strconv.Itoa(p.InitialInfected),
			strconv.Itoa(d.Infected),
			strconv.Itoa(d.Uninfected),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write step %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePositions writes one position snapshot. kind names the agents, e.g.
// "Midge" or "Host".
func WritePositions(w io.Writer, kind string, step int, pts []r2.Vec) error {
	return WritePositionHistory(w, kind, step, [][]r2.Vec{pts})
}

// WritePositionHistory writes consecutive snapshots starting at firstStep.
func WritePositionHistory(w io.Writer, kind string, firstStep int, history [][]r2.Vec) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Step", kind, kind + " X", kind + " Y"}); err != nil {
		return fmt.Errorf("write %s position header: %w", kind, err)
	}
	for k, pts := range history {
		step := strconv.Itoa(firstStep + k)
		for j, p := range pts {
			if err := cw.Write([]string{step, strconv.Itoa(j), ftoa(p.X), ftoa(p.Y)}); err != nil {
				return fmt.Errorf("write %s %d position: %w", kind, j, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
