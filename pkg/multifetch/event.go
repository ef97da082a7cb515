package multifetch

// UnknownSize is the HeaderInfo.DeclaredSize of a response without a
// Content-Length header.
const UnknownSize int64 = -1

// Callback receives the events of one transfer. It is invoked on the engine
// goroutine and must not block.
type Callback func(id, url string, ev Event)

// Event is one of HeaderInfo, DataChunk or Result.
type Event interface {
	event()
}

// HeaderInfo is delivered once when the response headers arrive.
type HeaderInfo struct {
	// DeclaredSize is the Content-Length of the response, or UnknownSize.
	DeclaredSize int64
}

// DataChunk carries one buffer as returned by the transport. The callback
// owns Bytes; the engine never reuses it.
type DataChunk struct {
	Bytes []byte
}

func (HeaderInfo) event() {}
func (DataChunk) event()  {}
func (Result) event()     {}
