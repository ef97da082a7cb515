//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/multifetch/internal/testutils"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	files := []testutils.TestFile{
		{Name: "one.bin", Size: 1024 * 1024},
		{Name: "two.bin", Size: 256 * 1024},
		{Name: "three.bin", Size: 64 * 1024, Chunked: true},
	}
	for i := range files {
		files[i].Data = testutils.GenerateTestData(t, files[i].Size)
	}

	t.Log("Starting HTTP test server...")
	server := testutils.StartTestHTTPServer(t, files)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "cli-test-bucket")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	t.Run("get", func(t *testing.T) {
		args := []string{"get", "-bucket", minio.BucketURL, "-prefix", "cli/", "-concurrency", "2"}
		for _, f := range files {
			args = append(args, server.URL+"/"+f.Name)
		}
		require.Equal(t, ExitSuccess, run(args))

		bucket, err := minio.OpenBucket(ctx)
		require.NoError(t, err)
		defer bucket.Close()

		for _, f := range files {
			r, err := bucket.NewReader(ctx, "cli/"+f.Name, nil)
			require.NoError(t, err, f.Name)
			testutils.CompareReaderToData(t, r, f.Data)
			r.Close()
		}
	})

	t.Run("missing_source", func(t *testing.T) {
		code := run([]string{"get", "-bucket", minio.BucketURL, "-prefix", "cli/", server.URL + "/nope.bin"})
		assert.Equal(t, ExitTransfersFailed, code)

		bucket, err := minio.OpenBucket(ctx)
		require.NoError(t, err)
		defer bucket.Close()

		exists, err := bucket.Exists(ctx, "cli/nope.bin")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
