package multifetch

import "sync/atomic"

type lifecycleState int32

const (
	stateAccepting lifecycleState = iota
	stateDraining
	stateStopping // hard stop requested
	stateStopped
)

func (s lifecycleState) String() string {
	switch s {
	case stateAccepting:
		return "accepting"
	case stateDraining:
		return "draining"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// lifecycle holds the engine state. Transitions only move forward.
type lifecycle struct {
	state atomic.Int32
}

func (l *lifecycle) load() lifecycleState {
	return lifecycleState(l.state.Load())
}

// advance moves to next if that is later than the current state and
// reports whether it did.
func (l *lifecycle) advance(next lifecycleState) bool {
	for {
		cur := l.state.Load()
		if lifecycleState(cur) >= next {
			return false
		}
		if l.state.CompareAndSwap(cur, int32(next)) {
			return true
		}
	}
}
