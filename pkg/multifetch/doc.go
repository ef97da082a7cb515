// Package multifetch multiplexes many HTTP transfers over a single worker.
//
// An [Engine] owns one background goroutine that drains a FIFO submission
// queue up to a concurrency limit, drives every active transfer, and delivers
// events to caller callbacks on that same goroutine. Callers never see a
// transport error as a Go error; every transfer ends with exactly one
// [Result] event.
//
// # Usage
//
//	e := multifetch.New(multifetch.Options{Concurrency: 8})
//
//	e.Submit(multifetch.Request{
//	    ID:  "model.bin",
//	    URL: "https://example.com/model.bin",
//	    Callback: func(id, url string, ev multifetch.Event) {
//	        switch ev := ev.(type) {
//	        case multifetch.HeaderInfo:
//	            // ev.DeclaredSize, UnknownSize if not declared
//	        case multifetch.DataChunk:
//	            // append ev.Bytes to a sink
//	        case multifetch.Result:
//	            // finalize the sink, ev.Code says how it ended
//	        }
//	    },
//	})
//
//	e.Join() // drain queued and active work, then stop
//
// # Events
//
// For a single transfer the engine delivers at most one [HeaderInfo], any
// number of [DataChunk] values in network arrival order, and exactly one
// [Result] last. Events for different transfers interleave freely.
//
// Callbacks run on the engine goroutine. A slow callback delays every other
// transfer, so callbacks should only do cheap work or hand off.
//
// # Shutdown
//
// [Engine.RequestDrainAndStop] stops accepting work and lets queued and
// active transfers finish. [Engine.RequestHardStop] abandons everything;
// abandoned transfers receive no further events. [Engine.Join] waits for the
// worker to exit and implies a drain if no stop was requested.
package multifetch
