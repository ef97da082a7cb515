package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// runPost sends the same body to every URL argument.
func runPost(args []string) int {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)

	var headers headerFlag
	data := fs.String("data", "", "Request body")
	dataFile := fs.String("data-file", "", "Read the request body from this file")
	fs.Var(&headers, "header", "Extra request header 'Key: Value' (repeatable)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: multifetch post [options] -data BODY|-data-file PATH URL...

POST the body to every URL. The body is sent as
application/x-www-form-urlencoded unless -header sets Content-Type.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one URL is required")
		fs.Usage()
		return ExitInvalidArgs
	}
	if *data != "" && *dataFile != "" {
		fmt.Fprintln(os.Stderr, "Error: -data and -data-file are mutually exclusive")
		return ExitInvalidArgs
	}

	body := []byte(*data)
	if *dataFile != "" {
		var err error
		if body, err = os.ReadFile(*dataFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading body: %v\n", err)
			return ExitInvalidArgs
		}
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	transform := headers.transform()
	return fetch(cfg, fs.Args(), func(id, url string, cb multifetch.Callback) multifetch.Request {
		r := multifetch.Post(id, url, body, cb)
		r.HeaderTransform = transform
		return r
	})
}
