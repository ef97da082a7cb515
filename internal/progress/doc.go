// Package progress provides progress reporting for multifetch transfers.
//
// This package outputs human-readable progress information to stderr,
// including bytes received, transfer speed, ETA against the declared sizes,
// and how many transfers finished or failed.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Transfers:   len(urls),
//	    Concurrency: 8,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Feed it from transfer callbacks
//	engine.Submit(multifetch.Get(id, url, reporter.Wrap(callback)))
//
// # Output Format
//
//	[multifetch] Transfers: 12 | Concurrency: 4
//	[multifetch] Progress: 45.2% | 1.13 GiB / 2.50 GiB | Speed: 120 MiB/s | ETA: 11s
//	[multifetch] Transfers: 5 completed | 0 failed | 4 in-progress | 3 pending
package progress
