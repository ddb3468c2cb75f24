// Package runfile reads simulation run files. Run files are HJSON so they
// can carry comments next to the parameters they document.
package runfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	hjson "github.com/hjson/hjson-go/v4"
)

// Modes understood by the driver.
const (
	ModeRun      = "run"
	ModeOutbreak = "outbreak"
	ModeHeatmap  = "heatmap"
	ModeBiteRate = "biterate"
)

// ErrInvalid is wrapped by validation errors.
var ErrInvalid = errors.New("runfile: invalid run file")

// Range is an inclusive linear range of Count values.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Values expands the range.
func (r Range) Values() []float64 {
	switch {
	case r.Count <= 0:
		return nil
	case r.Count == 1:
		return []float64{r.Min}
	}
	out := make([]float64, r.Count)
	step := (r.Max - r.Min) / float64(r.Count-1)
	for i := range out {
		out[i] = r.Min + step*float64(i)
	}
	out[len(out)-1] = r.Max
	return out
}

// Hosts configures the herd.
type Hosts struct {
	Size             int     `json:"size"`
	IncubationPeriod  float64   `json:"incubationPeriod"`
	IncubationPeriods []float64 `json:"incubationPeriods,omitempty"` // per host, overrides IncubationPeriod
	InitialInfected   int       `json:"initialInfected"`
}

// Midges configures the swarm. Nil pointers keep the engine defaults.
type Midges struct {
	VectorsPerHost      int      `json:"vectorsPerHost"`
	InitialInfected     *int     `json:"initialInfected,omitempty"`
	InitialInfectedProb *float64 `json:"initialInfectedProb,omitempty"`
	PVtoH               *float64 `json:"pVtoH,omitempty"`
	PHtoV               *float64 `json:"pHtoV,omitempty"`
	EIP                 *float64 `json:"eip,omitempty"`
	DPS                 *float64 `json:"dps,omitempty"`
	TemperatureFile     string   `json:"temperatureFile,omitempty"`
	Turnover            *bool    `json:"turnover,omitempty"`
	RecordPositions     bool     `json:"recordPositions"`
	ActiveVelocity      *float64 `json:"activeVelocity,omitempty"`
	DetectionDistance   *float64 `json:"detectionDistance,omitempty"`
	DayLength           *int     `json:"dayLength,omitempty"`
	BiteRate            *int     `json:"biteRate,omitempty"`
}

// Terrain switches to terrain-biased roaming when Map is set.
type Terrain struct {
	Map       string  `json:"map,omitempty"`
	CellSize  float64 `json:"cellSize"`
	Ranking   []int   `json:"ranking,omitempty"` // grey levels, least preferred first
	MoveHosts bool    `json:"moveHosts"`
}

// Sweep configures the outbreak and heatmap modes.
type Sweep struct {
	Trials  int       `json:"trials"`
	DPS     Range     `json:"dps"`
	EIP     Range     `json:"eip"`
	MaxDays int       `json:"maxDays"`
	PVtoH   []float64 `json:"pVtoH,omitempty"`
	IIM     []int     `json:"iim,omitempty"` // initially infected midges per outbreak table
}

// File is one run file.
type File struct {
	Comment string  `json:"comment,omitempty"`
	Mode    string  `json:"mode"`
	Seed    int64   `json:"seed"`
	Days    int     `json:"days"`
	DT      float64 `json:"dt"`
	Output  string  `json:"output"`
	Length  float64 `json:"length"`
	Hosts   Hosts   `json:"hosts"`
	Midges  Midges  `json:"midges"`
	Terrain Terrain `json:"terrain"`
	Sweep   Sweep   `json:"sweep"`

	dir string
}

// Default is a one-day run of the field study herd.
func Default() File {
	return File{
		Mode:   ModeRun,
		Seed:   1,
		Days:   1,
		DT:     60,
		Output: "Results",
		Length: 1000,
		Hosts:  Hosts{Size: 100, IncubationPeriod: 2},
		Midges: Midges{VectorsPerHost: 100},
		Terrain: Terrain{
			CellSize: 5,
		},
		Sweep: Sweep{
			Trials:  100,
			DPS:     Range{Min: 0, Max: 1, Count: 51},
			EIP:     Range{Min: 10, Max: 20, Count: 21},
			MaxDays: 60,
		},
	}
}

// Parse decodes an HJSON run file over the defaults.
func Parse(data []byte) (File, error) {
	f := Default()
	if err := hjson.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse run file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads and parses the run file at path. Relative paths inside the file
// are resolved against its directory.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read run file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// Resolve turns a path from the file into one usable from the process.
func (f File) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Encode renders the file as HJSON.
func (f File) Encode() ([]byte, error) {
	return hjson.Marshal(f)
}

// Validate checks the fields the engine does not.
func (f File) Validate() error {
	switch f.Mode {
	case ModeRun, ModeOutbreak, ModeHeatmap, ModeBiteRate:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, f.Mode)
	}
	if !(f.DT > 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalid, f.DT)
	}
	if f.Days < 0 {
		return fmt.Errorf("%w: days must not be negative, got %d", ErrInvalid, f.Days)
	}
	if f.Hosts.InitialInfected < 0 || f.Hosts.InitialInfected > f.Hosts.Size {
		return fmt.Errorf("%w: %d initially infected hosts in a herd of %d", ErrInvalid, f.Hosts.InitialInfected, f.Hosts.Size)
	}
	for _, v := range f.Terrain.Ranking {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: ranking grey level %d outside 0-255", ErrInvalid, v)
		}
	}
	if f.Midges.InitialInfected != nil && *f.Midges.InitialInfected < 0 {
		return fmt.Errorf("%w: negative initially infected midges", ErrInvalid)
	}
	if n := len(f.Hosts.IncubationPeriods); n > 0 && n != f.Hosts.Size {
		return fmt.Errorf("%w: %d incubation periods for a herd of %d", ErrInvalid, n, f.Hosts.Size)
	}
	if f.Mode == ModeOutbreak || f.Mode == ModeHeatmap {
		if f.Sweep.Trials <= 0 {
			return fmt.Errorf("%w: sweep needs at least one trial", ErrInvalid)
		}
		if f.Sweep.DPS.Count <= 0 {
			return fmt.Errorf("%w: sweep needs at least one DPS value", ErrInvalid)
		}
		if f.Sweep.MaxDays <= 0 {
			return fmt.Errorf("%w: sweep maxDays must be positive, got %d", ErrInvalid, f.Sweep.MaxDays)
		}
	}
	for _, n := range f.Sweep.IIM {
		if n < 0 {
			return fmt.Errorf("%w: negative initially infected midges %d in sweep", ErrInvalid, n)
		}
	}
	if f.Mode == ModeHeatmap && f.Sweep.EIP.Count <= 0 {
		return fmt.Errorf("%w: heatmap needs at least one EIP value", ErrInvalid)
	}
	return nil
}
