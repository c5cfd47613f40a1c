// Package automaton provides deterministic byte automata used to constrain which paths of
// a completion FST a query may enter.
package automaton

// State identifies an automaton state. Dead is the absorbing reject state.
type State int32

// Dead is returned by Step when no continuation can be accepted.
const Dead State = -1

// Automaton is a deterministic automaton over bytes.
type Automaton interface {
	// Start returns the initial state.
	Start() State
	// Step returns the state reached from s on label, or Dead.
	Step(s State, label byte) State
	// IsAccept reports whether s accepts. Every automaton in this package accepts all
	// continuations of an accepted input.
	IsAccept(s State) bool
}

// Run feeds input through a from its start state and returns the final state.
func Run(a Automaton, input []byte) State {
	s := a.Start()
	for _, b := range input {
		if s == Dead {
			return Dead
		}
		s = a.Step(s, b)
	}
	return s
}

// Accepts reports whether a accepts input.
func Accepts(a Automaton, input []byte) bool {
	s := Run(a, input)
	return s != Dead && a.IsAccept(s)
}

// prefix accepts every input starting with its bytes.
type prefix struct {
	p []byte
}

// Prefix returns an automaton accepting every input that starts with p. An empty p
// accepts everything.
func Prefix(p []byte) Automaton {
	return &prefix{p: append([]byte(nil), p...)}
}

func (a *prefix) Start() State { return 0 }

func (a *prefix) Step(s State, label byte) State {
	if s == Dead {
		return Dead
	}
	if int(s) >= len(a.p) {
		return s
	}
	if a.p[s] != label {
		return Dead
	}
	return s + 1
}

func (a *prefix) IsAccept(s State) bool {
	return s != Dead && int(s) >= len(a.p)
}
