package model

import "fmt"

type State string

const (
	StateIdle       State = "idle"
	StateAnalyzing  State = "analyzing"
	StateReady      State = "ready"
	StateLaunching  State = "launching"
	StateInProgress State = "in_progress"
)

var allowedTransitions = map[State]map[State]bool{
	StateIdle: {
		StateIdle:      true,
		StateAnalyzing: true,
		StateLaunching: true, // analysis kept from an earlier round
	},
	StateAnalyzing: {
		StateAnalyzing: true, // superseded by a newer request
		StateReady:     true,
		StateIdle:      true,
	},
	StateReady: {
		StateReady:     true,
		StateAnalyzing: true,
		StateLaunching: true,
	},
	StateLaunching: {
		StateInProgress: true,
		StateReady:      true,
	},
	StateInProgress: {
		StateInProgress: true,
		StateLaunching:  true, // replacing the tracked job
		StateIdle:       true,
	},
}

func CanTransition(from, to State) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func Transition(current *State, to State) error {
	from := *current
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid state transition: %q -> %q", from, to)
	}
	*current = to
	return nil
}
