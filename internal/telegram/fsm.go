package telegram

import "sync"

// inputState tracks what the next free-text message from a destination
// means. One explicit state machine per destination, not ad hoc flags.
type inputState int

const (
	stateIdle inputState = iota
	stateAwaitKeywordsAdd
	stateAwaitKeywordsRemove
	stateAwaitSourcesAdd
	stateAwaitSourcesRemove
)

type inputFSM struct {
	mu     sync.Mutex
	states map[string]inputState
}

func newInputFSM() *inputFSM {
	return &inputFSM{states: map[string]inputState{}}
}

func (f *inputFSM) state(dest string) inputState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[dest]
}

func (f *inputFSM) set(dest string, st inputState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st == stateIdle {
		delete(f.states, dest)
		return
	}
	f.states[dest] = st
}

// take returns the current state and resets to idle in one step, so a
// text message is consumed by at most one pending prompt.
func (f *inputFSM) take(dest string) inputState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.states[dest]
	delete(f.states, dest)
	return st
}
