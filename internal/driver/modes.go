package driver

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stepien-lab/MidgePy/internal/report"
	"github.com/stepien-lab/MidgePy/internal/runfile"
	"github.com/stepien-lab/MidgePy/internal/swarm"
)

// biteRateDays caps the all-infected bite rate analysis.
const biteRateDays = 10

// Run executes the mode named in the run file.
func (d *Driver) Run() error {
	switch d.file.Mode {
	case runfile.ModeRun:
		_, err := d.Single()
		return err
	case runfile.ModeBiteRate:
		return d.BiteRate()
	case runfile.ModeOutbreak:
		_, err := d.Outbreaks()
		return err
	case runfile.ModeHeatmap:
		_, err := d.Heatmap()
		return err
	}
	return fmt.Errorf("unknown mode %q", d.file.Mode)
}

func (d *Driver) progress(s *swarm.Swarm, dayLength int) {
	if d.verbose && s.StepCount()%dayLength == 0 {
		d.log.Printf("day %d: %d infected midges, %d infected hosts",
			s.StepCount()/dayLength, s.InfectedCount(), s.Hosts().InfectedCount())
	}
}

func dpsLabel(dps float64) int { return int(math.Round(100 * dps)) }

// Single runs one simulation for the configured number of days and writes
// its per-step table, plus position histories when recording is on.
func (d *Driver) Single() (*swarm.Swarm, error) {
	s, err := d.Build(d.file.Seed)
	if err != nil {
		return nil, fmt.Errorf("build simulation: %w", err)
	}
	dayLength := s.Params().DayLength

	d.log.Printf("moving swarm: %s", s)
	s.RunUntil(d.file.DT, d.file.Days*dayLength, func(s *swarm.Swarm) bool {
		d.progress(s, dayLength)
		return false
	})
	d.log.Printf("simulation finished: %s", s)

	name := fmt.Sprintf("midgesimDPS%dTrial0.csv", dpsLabel(s.Params().DPS))
	path, err := d.writeFile(name, func(w io.Writer) error { return report.WriteSteps(w, s) })
	if err != nil {
		return s, err
	}
	d.log.Printf("results saved to %s", path)

	if d.file.Midges.RecordPositions {
		if _, err := d.writeFile("MidgePositions.csv", func(w io.Writer) error {
			return report.WritePositionHistory(w, "Midge", 0, s.PositionHistory())
		}); err != nil {
			return s, err
		}
		if _, err := d.writeFile("HostPositions.csv", func(w io.Writer) error {
			return report.WritePositionHistory(w, "Host", 0, s.Hosts().PositionHistory())
		}); err != nil {
			return s, err
		}
	}
	return s, nil
}

// BiteRate seeds every midge as infectious, disables transmission to hosts
// and runs each DPS of the sweep until the first generation has died out or
// ten days have passed.
func (d *Driver) BiteRate() error {
	pVtoH, eip := 0.0, 100.0
	for _, dps := range d.file.Sweep.DPS.Values() {
		dps := dps
		s, err := d.build(d.file.Seed, overrides{dps: &dps, eip: &eip, pVtoH: &pVtoH, allInfected: true})
		if err != nil {
			d.log.Printf("DPS %.2f: %v", dps, err)
			continue
		}
		dayLength := s.Params().DayLength
		s.RunUntil(d.file.DT, biteRateDays*dayLength+1, func(s *swarm.Swarm) bool {
			d.progress(s, dayLength)
			return s.InfectedCount() == 0
		})

		name := fmt.Sprintf("AllInfectedDPS%dTrial0.csv", dpsLabel(dps))
		if _, err := d.writeFile(name, func(w io.Writer) error { return report.WriteSteps(w, s) }); err != nil {
			return err
		}
		d.log.Printf("DPS %.2f: first generation gone after %d steps", dps, s.StepCount())
	}
	return nil
}

// trial runs one sweep simulation. A panic inside the run is reported as an
// error so the rest of the batch keeps going.
func (d *Driver) trial(seed int64, o overrides, run func(*swarm.Swarm)) (s *swarm.Swarm, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("run with seed %d panicked: %v", seed, r)
		}
	}()
	s, err = d.build(seed, o)
	if err != nil {
		return nil, err
	}
	run(s)
	return s, nil
}

// maxSteps caps a sweep run. Run files are validated to a positive cap.
func (d *Driver) maxSteps(s *swarm.Swarm) int {
	if d.file.Sweep.MaxDays <= 0 {
		return 0
	}
	return d.file.Sweep.MaxDays * s.Params().DayLength
}

// Outbreaks estimates the probability that the seeded midges start an
// outbreak, for each initially infected count, transmission probability and
// DPS of the sweep. A trial ends as soon as a host starts incubating or the
// virus is gone.
func (d *Driver) Outbreaks() ([]report.Outbreak, error) {
	pvs := d.file.Sweep.PVtoH
	if len(pvs) == 0 {
		p := swarm.DefaultPVtoH
		if d.file.Midges.PVtoH != nil {
			p = *d.file.Midges.PVtoH
		}
		pvs = []float64{p}
	}

	// A nil entry keeps the run file's seeding, random when it names no count.
	iims := []*int{d.file.Midges.InitialInfected}
	if len(d.file.Sweep.IIM) > 0 {
		iims = make([]*int, len(d.file.Sweep.IIM))
		for i := range d.file.Sweep.IIM {
			iims[i] = &d.file.Sweep.IIM[i]
		}
	}

	var rows []report.Outbreak
	run := 0
	for _, iim := range iims {
		for _, pv := range pvs {
			for _, dps := range d.file.Sweep.DPS.Values() {
				pv, dps := pv, dps
				row := report.Outbreak{IIM: -1, DPS: dps, PVtoH: pv, Trials: d.file.Sweep.Trials}
				if iim != nil {
					row.IIM = *iim
				}
				o := overrides{dps: &dps, pVtoH: &pv, infected: iim}
				for j := 0; j < d.file.Sweep.Trials; j++ {
					_, err := d.trial(d.file.Seed+int64(run), o, func(s *swarm.Swarm) {
						s.RunUntil(d.file.DT, d.maxSteps(s), func(s *swarm.Swarm) bool {
							return s.Quiescent() || s.OutbreakOccurred()
						})
						if s.OutbreakOccurred() {
							row.Outbreaks++
						}
					})
					run++
					if err != nil {
						row.Failed++
						d.log.Printf("IIM %d pVtoH %.2f DPS %.2f trial %d failed: %v", row.IIM, pv, dps, j, err)
					}
				}
				d.log.Printf("IIM %d pVtoH %.2f DPS %.2f: %d outbreaks in %d trials", row.IIM, pv, dps, row.Outbreaks, row.Trials)
				rows = append(rows, row)
			}
		}
	}

	path, err := d.writeFile("OutbreakProbability.csv", func(w io.Writer) error {
		return report.WriteOutbreaks(w, d.Batch(), rows)
	})
	if err != nil {
		return rows, err
	}
	d.log.Printf("outbreak table saved to %s", path)
	return rows, nil
}

// Heatmap runs every DPS x EIP pair of the sweep for MaxDays days and records
// the mean number of infected hosts at the end.
func (d *Driver) Heatmap() ([]report.Cell, error) {
	var cells []report.Cell
	run := 0
	for _, dps := range d.file.Sweep.DPS.Values() {
		for _, eip := range d.file.Sweep.EIP.Values() {
			dps, eip := dps, eip
			cell := report.Cell{DPS: dps, EIP: eip, Trials: d.file.Sweep.Trials}
			var finals []float64
			for j := 0; j < d.file.Sweep.Trials; j++ {
				s, err := d.trial(d.file.Seed+int64(run), overrides{dps: &dps, eip: &eip}, func(s *swarm.Swarm) {
					s.RunUntil(d.file.DT, d.maxSteps(s), nil)
				})
				run++
				if err != nil {
					cell.Failed++
					d.log.Printf("DPS %.3f EIP %.2f trial %d failed: %v", dps, eip, j, err)
					continue
				}
				finals = append(finals, float64(s.Hosts().InfectedCount()))
			}
			if len(finals) > 0 {
				cell.MeanInfected = floats.Sum(finals) / float64(len(finals))
			}
			if d.verbose {
				d.log.Printf("DPS %.3f EIP %.2f: mean %.2f infected hosts", dps, eip, cell.MeanInfected)
			}
			cells = append(cells, cell)
		}
	}

	path, err := d.writeFile("HeatMap.csv", func(w io.Writer) error {
		return report.WriteHeatmap(w, d.Batch(), cells)
	})
	if err != nil {
		return cells, err
	}
	d.log.Printf("heatmap saved to %s", path)
	return cells, nil
}
