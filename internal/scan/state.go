package scan

// State is the scan lifecycle as observed by callers, typically for control
// enablement. Transitions: NotRunning -> Running (start), Running <-> Paused
// (user toggles), Running|Paused -> Stopping (stop or fatal error),
// Stopping -> NotRunning (worker exit).
type State int32

const (
	StateNotRunning State = iota
	StateRunning
	StatePaused
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateNotRunning:
		return "not-running"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
