// Package sink persists multifetch response bodies.
//
// A Sink receives the DataChunks of one transfer and is then either
// committed, when the transfer ended with an OK result, or aborted. An
// aborted sink leaves nothing behind at its destination.
//
// # Usage
//
//	bucket, _ := blob.OpenBucket(ctx, "s3://downloads")
//	cb := sink.Handler(func(id, url string) (sink.Sink, error) {
//	    return sink.NewBlob(ctx, bucket, "nightly/"+id)
//	}, logger, func(o sink.Outcome) {
//	    fmt.Println(o.ID, o.Bytes, o.Err)
//	})
//	engine.Submit(multifetch.Get(id, url, cb))
//
// # Implementations
//
//   - File writes <path>.part and renames it into place on commit.
//   - Blob streams into a gocloud.dev/blob bucket; abort cancels the upload.
//   - Discard counts bytes and stores nothing.
package sink
