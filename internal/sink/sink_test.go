package sink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

func TestFileCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.bin")

	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("hello, ")))
	require.NoError(t, s.Write([]byte("world")))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing at the final path before commit")

	require.NoError(t, s.Commit())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	_, err = os.Stat(path + partSuffix)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Write([]byte("late")))
	assert.NoError(t, s.Abort(), "abort after commit is a no-op")
}

func TestFileAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("partial")))
	require.NoError(t, s.Abort())
	require.NoError(t, s.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBlobCommitAndAbort(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s, err := NewBlob(ctx, bucket, "a/ok")
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("stored")))
	require.NoError(t, s.Commit())

	data, err := bucket.ReadAll(ctx, "a/ok")
	require.NoError(t, err)
	assert.Equal(t, "stored", string(data))

	s, err = NewBlob(ctx, bucket, "a/aborted")
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("discarded")))
	require.NoError(t, s.Abort())

	exists, err := bucket.Exists(ctx, "a/aborted")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlobAbortKeepsExistingObject(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "report.csv", []byte("previous good copy"), nil))

	s, err := NewBlob(ctx, bucket, "report.csv")
	require.NoError(t, err)
	require.NoError(t, s.Write([]byte("404 page not found")))
	require.NoError(t, s.Abort())

	data, err := bucket.ReadAll(ctx, "report.csv")
	require.NoError(t, err)
	assert.Equal(t, "previous good copy", string(data))
}

func TestBlobCancelledContextNeverCommits(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewBlob(ctx, bucket, "cancelled")
	if err == nil {
		if err = s.Write([]byte("data")); err == nil {
			err = s.Commit()
		}
	}
	assert.Error(t, err)

	exists, err := bucket.Exists(context.Background(), "cancelled")
	require.NoError(t, err)
	assert.False(t, exists)
}

// memorySink records what the handler did with it.
type memorySink struct {
	data      []byte
	committed bool
	aborted   bool
	writeErr  error
}

func (m *memorySink) Write(p []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append(m.data, p...)
	return nil
}

func (m *memorySink) Commit() error { m.committed = true; return nil }
func (m *memorySink) Abort() error  { m.aborted = true; return nil }

func feed(cb multifetch.Callback, events ...multifetch.Event) {
	for _, ev := range events {
		cb("id", "http://example.com/x", ev)
	}
}

func TestHandlerCommitsOK(t *testing.T) {
	m := &memorySink{}
	var out Outcome
	cb := Handler(func(id, url string) (Sink, error) { return m, nil }, nil, func(o Outcome) { out = o })

	feed(cb,
		multifetch.HeaderInfo{DeclaredSize: 4},
		multifetch.DataChunk{Bytes: []byte("ab")},
		multifetch.DataChunk{Bytes: []byte("cd")},
		multifetch.Result{Code: multifetch.CodeOK, Status: 200},
	)

	assert.True(t, m.committed)
	assert.False(t, m.aborted)
	assert.Equal(t, "abcd", string(m.data))
	assert.NoError(t, out.Err)
	assert.Equal(t, int64(4), out.Bytes)
	assert.Equal(t, "id", out.ID)
}

func TestHandlerAbortsOnFailure(t *testing.T) {
	m := &memorySink{}
	var out Outcome
	cb := Handler(func(id, url string) (Sink, error) { return m, nil }, nil, func(o Outcome) { out = o })

	feed(cb,
		multifetch.HeaderInfo{DeclaredSize: multifetch.UnknownSize},
		multifetch.DataChunk{Bytes: []byte("not found")},
		multifetch.Result{Code: multifetch.CodeHTTPNotFound, Status: 404},
	)

	assert.True(t, m.aborted)
	assert.False(t, m.committed)
	assert.ErrorIs(t, out.Err, multifetch.ErrNotFound)
	assert.False(t, errors.Is(out.Err, ErrStorage))
}

func TestHandlerWriteErrorFailsCommit(t *testing.T) {
	m := &memorySink{writeErr: errors.New("disk full")}
	var out Outcome
	cb := Handler(func(id, url string) (Sink, error) { return m, nil }, nil, func(o Outcome) { out = o })

	feed(cb,
		multifetch.HeaderInfo{DeclaredSize: 2},
		multifetch.DataChunk{Bytes: []byte("ab")},
		multifetch.Result{Code: multifetch.CodeOK, Status: 200},
	)

	assert.True(t, m.aborted)
	assert.ErrorIs(t, out.Err, ErrStorage)
	assert.Contains(t, out.Err.Error(), "disk full")
}

func TestHandlerOpenFailure(t *testing.T) {
	var out Outcome
	opens := 0
	cb := Handler(func(id, url string) (Sink, error) {
		opens++
		return nil, errors.New("no bucket")
	}, nil, func(o Outcome) { out = o })

	feed(cb,
		multifetch.HeaderInfo{DeclaredSize: 2},
		multifetch.DataChunk{Bytes: []byte("ab")},
		multifetch.Result{Code: multifetch.CodeOK, Status: 200},
	)

	assert.Equal(t, 1, opens)
	assert.ErrorIs(t, out.Err, ErrStorage)
}

func TestHandlerNeverOpensWithoutHeaders(t *testing.T) {
	var out Outcome
	cb := Handler(func(id, url string) (Sink, error) {
		t.Fatal("sink opened for a transfer without a response")
		return nil, nil
	}, nil, func(o Outcome) { out = o })

	feed(cb, multifetch.Result{Code: multifetch.CodeInitError, Cause: errors.New("bad url")})
	assert.ErrorIs(t, out.Err, multifetch.ErrInit)
}

func TestHandlerWithEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "payload for "+r.URL.Path)
	}))
	defer server.Close()

	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	open := func(id, url string) (Sink, error) {
		return NewBlob(ctx, bucket, "out/"+id)
	}

	outcomes := map[string]Outcome{}
	record := func(o Outcome) { outcomes[o.ID] = o }

	e := multifetch.New(multifetch.Options{Concurrency: 2})
	e.Submit(multifetch.Get("one", server.URL+"/one", Handler(open, nil, record)))
	e.Submit(multifetch.Get("two", server.URL+"/two", Handler(open, nil, record)))
	e.Submit(multifetch.Get("missing", server.URL+"/missing", Handler(open, nil, record)))
	e.Join()

	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes["one"].Err)
	assert.NoError(t, outcomes["two"].Err)
	assert.ErrorIs(t, outcomes["missing"].Err, multifetch.ErrNotFound)

	data, err := bucket.ReadAll(ctx, "out/one")
	require.NoError(t, err)
	assert.Equal(t, "payload for /one", string(data))

	var keys []string
	iter := bucket.List(&blob.ListOptions{Prefix: "out/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		keys = append(keys, obj.Key)
	}
	assert.ElementsMatch(t, []string{"out/one", "out/two"}, keys)
}
