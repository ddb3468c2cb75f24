// Package driver builds simulations from a run file, steps them and writes
// their results. Every run owns its domain, herd, swarm and random source;
// runs in a sweep execute one after another and share nothing mutable.
package driver

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/stepien-lab/MidgePy/internal/climate"
	"github.com/stepien-lab/MidgePy/internal/domain"
	"github.com/stepien-lab/MidgePy/internal/host"
	"github.com/stepien-lab/MidgePy/internal/movement"
	"github.com/stepien-lab/MidgePy/internal/runfile"
	"github.com/stepien-lab/MidgePy/internal/swarm"
)

// Driver runs the simulations described by one run file.
type Driver struct {
	file    runfile.File
	log     *log.Logger
	verbose bool
	batch   uuid.UUID

	temps  []float64
	raster *movement.Raster
}

// Option tweaks a Driver.
type Option func(*Driver)

// WithLogger sends progress to l. The default discards it.
func WithLogger(l *log.Logger) Option { return func(d *Driver) { d.log = l } }

// Verbose enables per-day progress lines.
func Verbose(v bool) Option { return func(d *Driver) { d.verbose = v } }

// WithBatch fixes the batch identifier instead of drawing a new one.
func WithBatch(id uuid.UUID) Option { return func(d *Driver) { d.batch = id } }

// New loads the temperature series and land-cover map the file refers to.
func New(f runfile.File, opts ...Option) (*Driver, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		file:  f,
		log:   log.New(io.Discard, "", 0),
		batch: uuid.New(),
	}
	for _, o := range opts {
		o(d)
	}

	if p := f.Resolve(f.Midges.TemperatureFile); p != "" {
		fh, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open temperature file: %w", err)
		}
		d.temps, err = climate.LoadTemperatures(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		d.log.Printf("loaded %d daily temperatures from %s", len(d.temps), p)
	}

	if p := f.Resolve(f.Terrain.Map); p != "" {
		fh, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open land-cover map: %w", err)
		}
		d.raster, err = movement.LoadRaster(fh, d.ranking())
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		w, h := d.raster.Size()
		d.log.Printf("loaded %dx%d land-cover map from %s", w, h, p)
	}
	return d, nil
}

func (d *Driver) ranking() movement.Ranking {
	if len(d.file.Terrain.Ranking) == 0 {
		return movement.DefaultRanking()
	}
	order := make([]uint8, len(d.file.Terrain.Ranking))
	for i, v := range d.file.Terrain.Ranking {
		order[i] = uint8(v)
	}
	return movement.RankingFromOrder(order)
}

// Batch identifies every artifact this driver writes.
func (d *Driver) Batch() string { return d.batch.String() }

// OutputDir is where this batch's artifacts go.
func (d *Driver) OutputDir() string { return filepath.Join(d.file.Output, d.Batch()) }

// overrides replace run file values for a single sweep point.
type overrides struct {
	dps, eip, pVtoH *float64
	infected        *int
	allInfected     bool
}

func (d *Driver) schedule(o overrides) (climate.Schedule, error) {
	base, err := climate.FromTemperatures(d.temps)
	if err != nil {
		return climate.Schedule{}, err
	}
	eip, dps := d.file.Midges.EIP, d.file.Midges.DPS
	if o.eip != nil {
		eip = o.eip
	}
	if o.dps != nil {
		dps = o.dps
	}
	if eip == nil && dps == nil {
		return base, nil
	}

	n := base.Days()
	eips, dpss := make([]float64, n), make([]float64, n)
	for day := 0; day < n; day++ {
		eips[day], dpss[day] = base.EIP(day), base.DPS(day)
		if eip != nil {
			eips[day] = *eip
		}
		if dps != nil {
			dpss[day] = *dps
		}
	}
	return climate.NewSchedule(eips, dpss)
}

func firstN(size, n int) []bool {
	out := make([]bool, size)
	for i := 0; i < n && i < size; i++ {
		out[i] = true
	}
	return out
}

// Build assembles one independent simulation seeded with seed.
func (d *Driver) Build(seed int64) (*swarm.Swarm, error) {
	return d.build(seed, overrides{})
}

func (d *Driver) build(seed int64, o overrides) (*swarm.Swarm, error) {
	f := d.file
	rng := rand.New(rand.NewSource(seed))

	dom, err := domain.New(f.Length)
	if err != nil {
		return nil, err
	}

	hosts, err := host.New(dom, host.Config{
		Size:              f.Hosts.Size,
		Infected:          firstN(f.Hosts.Size, f.Hosts.InitialInfected),
		IncubationPeriod:  f.Hosts.IncubationPeriod,
		IncubationPeriods: f.Hosts.IncubationPeriods,
	}, rng)
	if err != nil {
		return nil, err
	}

	cfg := swarm.DefaultConfig()
	cfg.VectorsPerHost = f.Midges.VectorsPerHost
	size := cfg.VectorsPerHost * f.Hosts.Size
	infected := f.Midges.InitialInfected
	if o.infected != nil {
		infected = o.infected
	}
	switch {
	case o.allInfected:
		cfg.Infected = firstN(size, size)
	case infected != nil:
		if *infected > size {
			return nil, fmt.Errorf("%d initially infected midges in a swarm of %d", *infected, size)
		}
		cfg.Infected = firstN(size, *infected)
	}
	if f.Midges.InitialInfectedProb != nil {
		cfg.InitialInfectedProb = *f.Midges.InitialInfectedProb
	}
	if f.Midges.PVtoH != nil {
		cfg.PVtoH = *f.Midges.PVtoH
	}
	if o.pVtoH != nil {
		cfg.PVtoH = *o.pVtoH
	}
	if f.Midges.PHtoV != nil {
		cfg.PHtoV = *f.Midges.PHtoV
	}
	if f.Midges.Turnover != nil {
		cfg.Turnover = *f.Midges.Turnover
	}
	cfg.RecordPositions = f.Midges.RecordPositions
	if f.Midges.ActiveVelocity != nil {
		cfg.ActiveVelocity = *f.Midges.ActiveVelocity
		cfg.BiteThresholdDistance = cfg.ActiveVelocity
	}
	if f.Midges.DetectionDistance != nil {
		cfg.DetectionDistance = *f.Midges.DetectionDistance
	}
	if f.Midges.DayLength != nil {
		cfg.DayLength = *f.Midges.DayLength
		cfg.BiteRate = 2 * cfg.DayLength
	}
	if f.Midges.BiteRate != nil {
		cfg.BiteRate = *f.Midges.BiteRate
	}
	if cfg.Schedule, err = d.schedule(o); err != nil {
		return nil, err
	}

	var strategy movement.Strategy = movement.UniformRandom{Domain: dom}
	if d.raster != nil {
		if strategy, err = movement.NewTerrainBiased(dom, d.raster, f.Terrain.CellSize); err != nil {
			return nil, err
		}
		cfg.MoveHosts = f.Terrain.MoveHosts
	}

	return swarm.New(dom, hosts, strategy, cfg, rng)
}

// create opens path under the batch directory for writing.
func (d *Driver) create(name string) (*os.File, error) {
	dir := d.OutputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return os.Create(filepath.Join(dir, name))
}

func (d *Driver) writeFile(name string, write func(io.Writer) error) (string, error) {
	fh, err := d.create(name)
	if err != nil {
		return "", err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := fh.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return fh.Name(), nil
}
