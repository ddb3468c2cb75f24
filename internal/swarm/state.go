package swarm

// State is an agent's place in the Susceptible -> Incubating -> Infectious
// progression.
type State int

const (
	Susceptible State = iota
	Incubating
	Infectious
)

func (s State) String() string {
	switch s {
	case Susceptible:
		return "Susceptible"
	case Incubating:
		return "Incubating"
	case Infectious:
		return "Infectious"
	}
	return "Unknown"
}

func stateOf(infected, incubating bool) State {
	switch {
	case infected:
		return Infectious
	case incubating:
		return Incubating
	}
	return Susceptible
}

// Deaths counts midges replaced by turnover on one day.
type Deaths struct {
	Infected   int
	Uninfected int
}
