package engine

import "time"

// State is a transition of the build state machine
type State int

const (
	BuildStart State = iota
	PhaseStart
	TaskStart
	TaskEnd
	PhaseEnd
	BuildEnd
)

func (s State) String() string {
	switch s {
	case BuildStart:
		return "buildStart"
	case PhaseStart:
		return "phaseStart"
	case TaskStart:
		return "taskStart"
	case TaskEnd:
		return "taskEnd"
	case PhaseEnd:
		return "phaseEnd"
	case BuildEnd:
		return "buildEnd"
	}
	return "unknown"
}

// Event describes one transition. Phase and Task are empty where they do not apply.
type Event struct {
	State   State
	BuildID string
	Phase   string
	Task    string
	// Dependency is set on phase events of phases run only because the requested phase depends on them
	Dependency bool
	// Duration is set on end events
	Duration time.Duration
	// Err is set on TaskEnd when the task failed and on BuildEnd when the build failed
	Err error
}

// Observer is notified synchronously of every transition
type Observer func(Event)
