package multifetch_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

func Example() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "hello, world")
	}))
	defer server.Close()

	e := multifetch.New(multifetch.Options{Concurrency: 1})

	var body bytes.Buffer
	e.Submit(multifetch.Get("greeting", server.URL+"/hello", func(id, url string, ev multifetch.Event) {
		switch ev := ev.(type) {
		case multifetch.HeaderInfo:
			fmt.Printf("%s: %d bytes declared\n", id, ev.DeclaredSize)
		case multifetch.DataChunk:
			body.Write(ev.Bytes)
		case multifetch.Result:
			fmt.Printf("%s: %s %q\n", id, ev.Code, body.String())
		}
	}))

	e.Submit(multifetch.Get("missing", server.URL+"/missing", func(id, url string, ev multifetch.Event) {
		if res, ok := ev.(multifetch.Result); ok {
			fmt.Printf("%s: %s (%d)\n", id, res.Code, res.Status)
		}
	}))

	// Join drains the queue before returning.
	e.Join()

	// Output:
	// greeting: 12 bytes declared
	// greeting: ok "hello, world"
	// missing: http_not_found (404)
}

func ExampleEngine_RequestHardStop() {
	e := multifetch.New(multifetch.DefaultOptions())

	e.RequestHardStop()
	e.Join()

	fmt.Println(e.Submit(multifetch.Get("late", "http://example.com", nil)))
	// Output: false
}
