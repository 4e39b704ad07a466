package vecadd

import "fmt"

// State is a pipeline lifecycle state.
//
// A run moves strictly forward:
//
//	Init -> ContextReady -> ProgramReady -> BuffersUploaded -> Dispatched -> ResultsReady -> Torndown
//
// Any failure moves it to Failed, after every resource created so far has
// been released. Torndown and Failed are terminal.
type State uint8

const (
	StateInit State = iota
	StateContextReady
	StateProgramReady
	StateBuffersUploaded
	StateDispatched
	StateResultsReady
	StateTorndown
	StateFailed
)

var stateNames = [...]string{
	StateInit:            "init",
	StateContextReady:    "context-ready",
	StateProgramReady:    "program-ready",
	StateBuffersUploaded: "buffers-uploaded",
	StateDispatched:      "dispatched",
	StateResultsReady:    "results-ready",
	StateTorndown:        "torndown",
	StateFailed:          "failed",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateTorndown || s == StateFailed
}

// next returns the successor of s on the success path.
func (s State) next() State {
	if s >= StateTorndown {
		return s
	}
	return s + 1
}
