// Package http builds the HTTP client that multifetch engines run on.
//
// This package handles:
//   - Connection pooling sized for the engine's concurrency
//   - Dial and TLS handshake timeouts
//   - Redirect following with a hop limit
//   - Raw (uncompressed) transfers so chunks match what the server sent
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    MaxIdleConnsPerHost: 32,
//	    MaxRedirects:        5,
//	})
//
//	e := multifetch.New(multifetch.Options{Client: client})
package http
