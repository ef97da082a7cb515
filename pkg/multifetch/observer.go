package multifetch

import "time"

// Observer receives measurements from the engine goroutine. Implementations
// must be fast and must not call back into the Engine.
type Observer interface {
	// QueueDepth reports the backlog after each admission step.
	QueueDepth(n int)

	// ActiveTransfers reports the active count whenever it changes.
	ActiveTransfers(n int)

	// BytesReceived reports each delivered chunk size.
	BytesReceived(n int)

	// TransferFinished reports every terminal result.
	TransferFinished(res Result, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) QueueDepth(int)                         {}
func (nopObserver) ActiveTransfers(int)                    {}
func (nopObserver) BytesReceived(int)                      {}
func (nopObserver) TransferFinished(Result, time.Duration) {}
