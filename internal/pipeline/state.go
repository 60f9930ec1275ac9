package pipeline

// State is a step of the build pipeline.
type State int

const (
	StateInit State = iota
	StatePathsValidated
	StateVersionsExtracted
	StateGateChecked
	StateBuilding
	StateDiagnosticsCollected
	StateResolved
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePathsValidated:
		return "paths-validated"
	case StateVersionsExtracted:
		return "versions-extracted"
	case StateGateChecked:
		return "gate-checked"
	case StateBuilding:
		return "building"
	case StateDiagnosticsCollected:
		return "diagnostics-collected"
	case StateResolved:
		return "resolved"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateAborted
}

// next lists the single forward transition of every non-terminal state.
var next = map[State]State{
	StateInit:                 StatePathsValidated,
	StatePathsValidated:       StateVersionsExtracted,
	StateVersionsExtracted:    StateGateChecked,
	StateGateChecked:          StateBuilding,
	StateBuilding:             StateDiagnosticsCollected,
	StateDiagnosticsCollected: StateResolved,
}

// CanTransition reports whether from -> to is a legal move.
// Every non-terminal state may move to StateAborted.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateAborted {
		return true
	}
	return next[from] == to
}
