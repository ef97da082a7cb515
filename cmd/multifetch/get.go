package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// runGet fetches every URL argument with GET.
func runGet(args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: multifetch get [options] URL...

Fetch every URL, at most -concurrency at a time. Bodies are written to -out
or -bucket when given and discarded otherwise.

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

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	return fetch(cfg, fs.Args(), func(id, url string, cb multifetch.Callback) multifetch.Request {
		return multifetch.Get(id, url, cb)
	})
}
