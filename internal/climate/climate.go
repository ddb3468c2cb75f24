// Package climate turns daily ambient temperature into the extrinsic
// incubation period (EIP) and daily survival probability (DPS) of the midges.
//
// Both relations are the linear fits for BTV in Culicoides reported by
// Wittmann et al.: the EIP rate and the daily mortality grow linearly with
// temperature (mortality at 85% relative humidity).
package climate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultTemperature is used when no temperature series is supplied (Celsius).
const DefaultTemperature = 25.0

// Regression coefficients: value = Intercept + Slope*T.
var (
	EIPRate   = Linear{Intercept: -0.0636, Slope: 0.0069}
	Mortality = Linear{Intercept: -0.0681, Slope: 0.0064}
)

// ErrInvalidSchedule is wrapped by schedule construction errors.
var ErrInvalidSchedule = errors.New("climate: invalid schedule")

// Linear is a straight line fit in temperature.
type Linear struct {
	Intercept, Slope float64
}

// At evaluates the line at temperature t.
func (l Linear) At(t float64) float64 { return l.Intercept + l.Slope*t }

// EIP returns the extrinsic incubation period in days at temperature t.
func EIP(t float64) float64 { return 1 / EIPRate.At(t) }

// DPS returns the daily survival probability at temperature t, clamped to [0,1].
func DPS(t float64) float64 { return clamp01(1 - Mortality.At(t)) }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Schedule holds one EIP and one DPS value per simulated day.
type Schedule struct {
	eip []float64
	dps []float64
}

// Default is the constant schedule at DefaultTemperature.
func Default() Schedule {
	return Schedule{
		eip: []float64{EIP(DefaultTemperature)},
		dps: []float64{DPS(DefaultTemperature)},
	}
}

// Constant is a schedule with the same EIP and DPS every day.
func Constant(eip, dps float64) (Schedule, error) {
	return NewSchedule([]float64{eip}, []float64{dps})
}

// NewSchedule builds a schedule from per-day series of equal length.
func NewSchedule(eip, dps []float64) (Schedule, error) {
	if len(eip) == 0 || len(eip) != len(dps) {
		return Schedule{}, fmt.Errorf("%w: %d EIP values and %d DPS values", ErrInvalidSchedule, len(eip), len(dps))
	}
	for day := range eip {
		if !(eip[day] > 0) || math.IsInf(eip[day], 0) {
			return Schedule{}, fmt.Errorf("%w: day %d EIP %v must be positive", ErrInvalidSchedule, day, eip[day])
		}
		if dps[day] < 0 || dps[day] > 1 || math.IsNaN(dps[day]) {
			return Schedule{}, fmt.Errorf("%w: day %d DPS %v outside [0,1]", ErrInvalidSchedule, day, dps[day])
		}
	}
	s := Schedule{eip: make([]float64, len(eip)), dps: make([]float64, len(dps))}
	copy(s.eip, eip)
	copy(s.dps, dps)
	return s, nil
}

// FromTemperatures derives a schedule from daily temperatures.
func FromTemperatures(temps []float64) (Schedule, error) {
	if len(temps) == 0 {
		temps = []float64{DefaultTemperature}
	}
	eip := make([]float64, len(temps))
	dps := make([]float64, len(temps))
	for day, t := range temps {
		eip[day] = EIP(t)
		dps[day] = DPS(t)
	}
	s, err := NewSchedule(eip, dps)
	if err != nil {
		return Schedule{}, fmt.Errorf("temperature series: %w", err)
	}
	return s, nil
}

// Days is the length of the underlying series.
func (s Schedule) Days() int { return len(s.eip) }

func (s Schedule) index(day int) int {
	switch {
	case day < 0:
		return 0
	case day >= len(s.eip):
		return len(s.eip) - 1
	}
	return day
}

// EIP is the extrinsic incubation period on day, in days. Days past the end
// of the series reuse the last value.
func (s Schedule) EIP(day int) float64 { return s.eip[s.index(day)] }

// DPS is the daily survival probability on day.
func (s Schedule) DPS(day int) float64 { return s.dps[s.index(day)] }

// LoadTemperatures reads daily temperatures from CSV. Every field of every
// record is one day, in reading order.
func LoadTemperatures(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var temps []float64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read temperatures: %w", err)
		}
		for _, field := range rec {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			t, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("temperature %d: %w", len(temps), err)
			}
			temps = append(temps, t)
		}
	}
	return temps, nil
}
