package swarm

// day is the index into the climate schedule for the current step.
func (s *Swarm) day() int { return s.step / s.cfg.DayLength }

// mature turns midges and hosts whose incubation has run its course into
// infectious agents. Incubation records are kept.
func (s *Swarm) mature() {
	eip := float64(s.cfg.DayLength) * s.cfg.Schedule.EIP(s.day())
	for i, inc := range s.incubating {
		if inc && !s.infected[i] && float64(s.step-s.incStart[i]) >= eip {
			s.infected[i] = true
		}
	}
	s.hosts.Mature(s.step, s.cfg.DayLength)
}

// turnover kills each midge with probability 1-DPS and replaces it with a
// susceptible newcomer at a random point.
func (s *Swarm) turnover() Deaths {
	dps := s.cfg.Schedule.DPS(s.day())
	var d Deaths
	for i := range s.positions {
		if s.rng.Float64() < dps {
			continue
		}
		if s.infected[i] {
			d.Infected++
		} else {
			d.Uninfected++
		}
		s.infected[i] = false
		s.incubating[i] = false
		s.incStart[i] = 0
		s.positions[i] = s.dom.RandomPoint(s.rng)
	}
	return d
}

// feed lets every non-refractory midge within biting range of its nearest
// host take a blood meal and resolves transmission both ways. Midges are
// visited in index order, so when several infectious midges bite one host in
// the same step the lowest index sets its incubation start.
func (s *Swarm) feed(dt float64) {
	reach := s.cfg.BiteThresholdDistance * dt

	bites, infectedBites := 0, 0
	for i := range s.positions {
		if s.fed[i] || !(s.nearestDist[i] < reach) {
			continue
		}
		h := s.nearest[i]
		bites++
		if s.infected[i] {
			infectedBites++
		}

		// host to midge; a seeded infectious midge never gets an incubation record
		if s.hosts.Infected(h) && !s.infected[i] && !s.incubating[i] {
			if s.rng.Float64() < s.cfg.PHtoV {
				s.incubating[i] = true
				s.incStart[i] = s.step
			}
		}

		// midge to host; a host infected from the start is never marked as
		// incubating, so it does not count toward OutbreakOccurred
		if s.infected[i] && s.rng.Float64() < s.cfg.PVtoH {
			s.hosts.BeginIncubation(h, s.step)
		}

		s.lastFeed[i] = s.step
	}

	s.bites = append(s.bites, bites)
	s.infectedBites = append(s.infectedBites, infectedBites)
	s.hosts.RecordInfected()
}
