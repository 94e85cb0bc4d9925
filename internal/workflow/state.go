package workflow

// State is the session's position in the filter workflow.
type State int

const (
	Idle State = iota
	FileReady
	Filtering
	ResultsReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileReady:
		return "file-ready"
	case Filtering:
		return "filtering"
	case ResultsReady:
		return "results-ready"
	}
	return "unknown"
}

// Action is an operator operation that may be valid in a state.
type Action string

const (
	ActionSelect Action = "select"
	ActionClear  Action = "clear"
	ActionFilter Action = "filter"
	ActionExport Action = "export"
)

// Actions returns the operations the controller accepts in s. Select is
// always available; a filter cannot be submitted while one is outstanding.
func (s State) Actions() []Action {
	switch s {
	case FileReady:
		return []Action{ActionSelect, ActionClear, ActionFilter}
	case Filtering:
		return []Action{ActionSelect, ActionClear}
	case ResultsReady:
		return []Action{ActionSelect, ActionClear, ActionFilter, ActionExport}
	}
	return []Action{ActionSelect}
}

// Allows reports whether a is valid in s.
func (s State) Allows(a Action) bool {
	for _, x := range s.Actions() {
		if x == a {
			return true
		}
	}
	return false
}
