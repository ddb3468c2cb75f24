package swarm

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/stepien-lab/MidgePy/internal/climate"
	"github.com/stepien-lab/MidgePy/internal/domain"
	"github.com/stepien-lab/MidgePy/internal/host"
	"github.com/stepien-lab/MidgePy/internal/movement"
)

const dt = 60.0

type fixture struct {
	dom   domain.Domain
	hosts *host.Population
	rng   *rand.Rand
}

func newFixture(t *testing.T, length float64, hcfg host.Config, seed int64) fixture {
	t.Helper()
	dom, err := domain.New(length)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	hosts, err := host.New(dom, hcfg, rng)
	require.NoError(t, err)
	return fixture{dom: dom, hosts: hosts, rng: rng}
}

func (f fixture) swarm(t *testing.T, cfg Config) *Swarm {
	t.Helper()
	s, err := New(f.dom, f.hosts, nil, cfg, f.rng)
	require.NoError(t, err)
	return s
}

func schedule(t *testing.T, eip, dps float64) climate.Schedule {
	t.Helper()
	s, err := climate.Constant(eip, dps)
	require.NoError(t, err)
	return s
}

func hungry(n, biteRate int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -biteRate
	}
	return out
}

func TestConfigValidation(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 4}, 1)

	bad := []func(*Config){
		func(c *Config) { c.PVtoH = 1.5 },
		func(c *Config) { c.PHtoV = -0.1 },
		func(c *Config) { c.Size = 10; c.Infected = make([]bool, 3) },
		func(c *Config) { c.Size = 10; c.LastFeed = make([]int, 11) },
		func(c *Config) { c.Size = -1 },
		func(c *Config) { c.VectorsPerHost = 0 },
		func(c *Config) { c.DayLength = 0 },
		func(c *Config) { c.Schedule = climate.Schedule{} },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := New(f.dom, f.hosts, nil, cfg, f.rng)
		require.Error(t, err, "case %d", i)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		var ce *ConfigError
		assert.True(t, errors.As(err, &ce), "case %d", i)
	}
}

func TestSizeFromRatio(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 4}, 2)
	cfg := DefaultConfig()
	cfg.VectorsPerHost = 25
	s := f.swarm(t, cfg)
	assert.Equal(t, 100, s.Size())
	assert.Equal(t, 25, s.Params().VectorsPerHost)
}

func TestInitialLastFeedIsStaggered(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 2}, 3)
	cfg := DefaultConfig()
	s := f.swarm(t, cfg)
	for i := 0; i < s.Size(); i++ {
		lf := s.LastFeed(i)
		assert.GreaterOrEqual(t, lf, -cfg.BiteRate)
		assert.Less(t, lf, 0)
	}
}

func TestSizeAndBoundsInvariant(t *testing.T) {
	f := newFixture(t, 200, host.Config{Size: 5, IncubationPeriod: 1}, 4)
	cfg := DefaultConfig()
	cfg.Size = 300
	cfg.DayLength = 40
	cfg.BiteRate = 80
	cfg.InitialInfectedProb = 0.2
	cfg.Schedule = schedule(t, 1, 0.6)
	s := f.swarm(t, cfg)

	for step := 0; step < 400; step++ {
		s.Step(dt)
		require.Len(t, s.Positions(), 300)
		require.Len(t, s.Hosts().Positions(), 5)
		for _, p := range s.Positions() {
			require.True(t, f.dom.Contains(p), "midge at %v on step %d", p, step)
		}
		for _, p := range s.Hosts().Positions() {
			require.True(t, f.dom.Contains(p))
		}
	}
	assert.Len(t, s.Hosts().TotalInfectedHistory(), 400)
	assert.Len(t, s.InfectedSeries(), 400)
	assert.Len(t, s.BiteSeries(), 400)
	assert.Len(t, s.DeathSeries(), 10)
}

func TestInfectionIsMonotoneBetweenTurnovers(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 6, IncubationPeriod: 0.5}, 5)
	cfg := DefaultConfig()
	cfg.Size = 120
	cfg.DayLength = 30
	cfg.BiteRate = 30
	cfg.InitialInfectedProb = 0.3
	cfg.PHtoV = 0.8
	cfg.Schedule = schedule(t, 0.5, 0.7)
	s := f.swarm(t, cfg)

	prevInf := make([]bool, s.Size())
	prevStart := make([]int, s.Size())
	prevInc := make([]bool, s.Size())
	prevHost := make([]bool, s.Hosts().Size())

	for step := 0; step < 300; step++ {
		s.Step(dt)
		turnover := step%cfg.DayLength == 0
		for i := 0; i < s.Size(); i++ {
			start, inc := s.IncubationStart(i)
			assert.Equal(t, s.Incubating(i), inc)
			if !turnover {
				if prevInf[i] {
					assert.True(t, s.Infected(i), "midge %d lost infection on step %d", i, step)
				}
				if prevInc[i] {
					assert.True(t, inc)
					assert.Equal(t, prevStart[i], start)
				}
			}
			prevInf[i], prevInc[i], prevStart[i] = s.Infected(i), inc, start
		}
		for h := 0; h < s.Hosts().Size(); h++ {
			if prevHost[h] {
				assert.True(t, s.Hosts().Infected(h))
			}
			prevHost[h] = s.Hosts().Infected(h)
		}
	}
}

func TestNoVectorToHostTransmission(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 5}, 6)
	cfg := DefaultConfig()
	cfg.Size = 200
	cfg.PVtoH = 0
	cfg.DayLength = 50
	cfg.BiteRate = 50
	cfg.InitialInfectedProb = 1
	s := f.swarm(t, cfg)

	for i := 0; i < 500; i++ {
		s.Step(dt)
	}
	for _, n := range s.Hosts().TotalInfectedHistory() {
		assert.Zero(t, n)
	}
	assert.False(t, s.OutbreakOccurred())
	assert.Positive(t, sum(s.InfectedBiteSeries()))
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func TestDeterministicExtinction(t *testing.T) {
	f := newFixture(t, 1000, host.Config{Size: 10}, 7)
	cfg := DefaultConfig()
	cfg.Size = 50
	cfg.Infected = make([]bool, 50)
	cfg.Infected[0] = true
	cfg.PVtoH = 0
	cfg.Turnover = true
	cfg.Schedule = schedule(t, 14, 0)
	s := f.swarm(t, cfg)

	require.Equal(t, 1, s.InfectedCount())
	s.Step(dt)
	assert.Zero(t, s.InfectedCount())
	require.Len(t, s.DeathSeries(), 1)
	assert.Equal(t, Deaths{Infected: 1, Uninfected: 49}, s.DeathSeries()[0])
	assert.True(t, s.Quiescent())
}

func TestHostToVectorOnFirstFeed(t *testing.T) {
	f := newFixture(t, 10, host.Config{Size: 1, Infected: []bool{true}}, 8)
	cfg := DefaultConfig()
	cfg.Size = 1
	cfg.Infected = []bool{false}
	cfg.PHtoV = 1
	cfg.Turnover = false
	cfg.LastFeed = hungry(1, cfg.BiteRate)
	s := f.swarm(t, cfg)

	s.Step(dt)

	assert.True(t, s.Incubating(0))
	start, ok := s.IncubationStart(0)
	assert.True(t, ok)
	assert.Equal(t, 0, start)
	assert.Equal(t, Incubating, s.State(0))
	assert.Equal(t, 0, s.LastFeed(0))
	assert.Equal(t, []int{1}, s.BiteSeries())
}

func TestInfectiousAgentsGetNoIncubationRecord(t *testing.T) {
	f := newFixture(t, 10, host.Config{Size: 1, Infected: []bool{true}}, 18)
	cfg := DefaultConfig()
	cfg.Size = 1
	cfg.Infected = []bool{true}
	cfg.PHtoV = 1
	cfg.PVtoH = 1
	cfg.Turnover = false
	cfg.LastFeed = hungry(1, cfg.BiteRate)
	s := f.swarm(t, cfg)

	s.Step(dt)

	assert.Equal(t, []int{1}, s.InfectedBiteSeries())
	assert.False(t, s.Incubating(0))
	assert.Equal(t, Infectious, s.State(0))
	assert.False(t, s.Hosts().Incubating(0))
	assert.False(t, s.OutbreakOccurred())
}

func TestIncubatingVectorMatures(t *testing.T) {
	f := newFixture(t, 10, host.Config{Size: 1, Infected: []bool{true}}, 9)
	cfg := DefaultConfig()
	cfg.Size = 1
	cfg.Infected = []bool{false}
	cfg.PHtoV = 1
	cfg.PVtoH = 0
	cfg.Turnover = false
	cfg.DayLength = 10
	cfg.BiteRate = 20
	cfg.Schedule = schedule(t, 1, 1)
	cfg.LastFeed = hungry(1, cfg.BiteRate)
	s := f.swarm(t, cfg)

	for i := 0; i < 10; i++ {
		s.Step(dt)
	}
	assert.False(t, s.Infected(0))
	s.Step(dt)
	assert.True(t, s.Infected(0))
	assert.True(t, s.Incubating(0))
	assert.Equal(t, Infectious, s.State(0))
}

func TestFirstBiteSetsHostIncubation(t *testing.T) {
	f := newFixture(t, 10, host.Config{Size: 1, IncubationPeriod: 2}, 10)
	cfg := DefaultConfig()
	cfg.Size = 3
	cfg.Infected = []bool{true, true, true}
	cfg.PVtoH = 1
	cfg.Turnover = false
	cfg.DayLength = 10
	cfg.BiteRate = 5
	cfg.LastFeed = hungry(3, cfg.BiteRate)
	s := f.swarm(t, cfg)

	s.Step(dt)
	assert.Equal(t, 3, s.BiteSeries()[0])
	assert.Equal(t, 3, s.InfectedBiteSeries()[0])
	start, ok := s.Hosts().IncubationStart(0)
	require.True(t, ok)
	assert.Equal(t, 0, start)

	// refractory for BiteRate steps, later bites do not move the start
	for i := 1; i < 21; i++ {
		s.Step(dt)
		if i < cfg.BiteRate {
			assert.Zero(t, s.BiteSeries()[i], "step %d", i)
		}
	}
	start, _ = s.Hosts().IncubationStart(0)
	assert.Equal(t, 0, start)
	assert.True(t, s.Hosts().Infected(0))
	assert.True(t, s.OutbreakOccurred())

	hist := s.Hosts().TotalInfectedHistory()
	assert.Zero(t, hist[19])
	assert.Equal(t, 1, hist[20])
}

func TestNearestHostTieGoesToFirst(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 2, Positions: []r2.Vec{{X: 40, Y: 50}, {X: 60, Y: 50}}}, 11)
	cfg := DefaultConfig()
	cfg.Size = 1
	s := f.swarm(t, cfg)
	require.NoError(t, s.PlaceAt([]r2.Vec{{X: 50, Y: 50}}))

	s.seek()
	assert.Equal(t, 0, s.nearest[0])
	assert.Equal(t, 10.0, s.nearestDist[0])
	assert.Equal(t, r2.Vec{X: -10, Y: 0}, s.toHost[0])
}

func TestDetectingMidgeFliesAtHost(t *testing.T) {
	f := newFixture(t, 1000, host.Config{Size: 1, Positions: []r2.Vec{{X: 500, Y: 600}}}, 12)
	cfg := DefaultConfig()
	cfg.Size = 2
	cfg.LastFeed = []int{-cfg.BiteRate, 0} // second midge is refractory
	s := f.swarm(t, cfg)
	require.NoError(t, s.PlaceAt([]r2.Vec{{X: 500, Y: 400}, {X: 500, Y: 400}}))
	s.headings[1] = r2.Vec{X: 1, Y: 0}

	s.fed[0], s.fed[1] = false, true
	s.seek()
	s.fly(dt)

	assert.InDelta(t, 500, s.Positions()[0].X, 1e-9)
	assert.InDelta(t, 430, s.Positions()[0].Y, 1e-9)
	assert.InDelta(t, 530, s.Positions()[1].X, 1e-9)
	assert.InDelta(t, 400, s.Positions()[1].Y, 1e-9)
}

func TestHeadingsAreRefreshedOnCadence(t *testing.T) {
	f := newFixture(t, 1000, host.Config{Size: 2}, 17)
	cfg := DefaultConfig()
	cfg.Size = 30
	s := f.swarm(t, cfg)

	require.Len(t, s.Headings(), 30)
	s.Step(dt)
	first := append([]r2.Vec(nil), s.Headings()...)
	for _, h := range first {
		assert.InDelta(t, 1, r2.Norm(h), 1e-9)
	}

	for s.StepCount() < movement.UniformInterval {
		s.Step(dt)
		assert.Equal(t, first, s.Headings())
	}
	s.Step(dt)
	assert.NotEqual(t, first, s.Headings())
}

func TestPlaceAtValidates(t *testing.T) {
	f := newFixture(t, 10, host.Config{Size: 1}, 13)
	cfg := DefaultConfig()
	cfg.Size = 1
	s := f.swarm(t, cfg)
	assert.ErrorIs(t, s.PlaceAt([]r2.Vec{{X: 11, Y: 0}}), ErrInvalidConfig)
	assert.ErrorIs(t, s.PlaceAt(nil), ErrInvalidConfig)
}

func TestTerrainBiasedEngineRun(t *testing.T) {
	f := newFixture(t, 100, host.Config{Size: 3}, 14)
	raster, err := movement.NewUniformRaster(20, 20, 1)
	require.NoError(t, err)
	tb, err := movement.NewTerrainBiased(f.dom, raster, 5)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Size = 60
	cfg.MoveHosts = true
	cfg.RecordPositions = true
	s, err := New(f.dom, f.hosts, tb, cfg, f.rng)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s.Step(dt)
	}
	assert.Len(t, s.PositionHistory(), 50)
	assert.Len(t, s.Hosts().PositionHistory(), 50)
	for _, p := range s.Positions() {
		assert.True(t, f.dom.Contains(p))
	}
}

func TestRunUntilStops(t *testing.T) {
	f := newFixture(t, 1000, host.Config{Size: 5}, 15)
	cfg := DefaultConfig()
	cfg.Size = 20
	cfg.Infected = make([]bool, 20)
	s := f.swarm(t, cfg)

	n := s.RunUntil(dt, 100, func(s *Swarm) bool { return s.Quiescent() })
	assert.Zero(t, n)

	n = s.RunUntil(dt, 7, nil)
	assert.Equal(t, 7, n)
	assert.Equal(t, 7, s.StepCount())
}

func TestAllInfectedBiteRateScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("ten simulated days of a 10 000 midge swarm")
	}
	f := newFixture(t, 1000, host.Config{Size: 100, IncubationPeriod: host.DefaultIncubationPeriod}, 16)
	cfg := DefaultConfig()
	cfg.VectorsPerHost = 100
	cfg.Infected = make([]bool, 10000)
	for i := 0; i < 5; i++ {
		cfg.Infected[i] = true
	}
	cfg.PVtoH = 0
	cfg.Schedule = schedule(t, 100, climate.DPS(climate.DefaultTemperature))
	s := f.swarm(t, cfg)

	s.RunUntil(dt, 3000, nil)
	for _, n := range s.Hosts().TotalInfectedHistory() {
		require.Zero(t, n)
	}
	assert.Len(t, s.Hosts().TotalInfectedHistory(), 3000)
}
