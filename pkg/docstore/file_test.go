package docstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(FileConfig{BaseDir: dir})
	require.NoError(t, err)
	return s, dir
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "docs/input.txt", strings.NewReader("document body")))

	rc, size, err := s.Fetch(ctx, "docs/input.txt")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(len("document body")), size)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(data))
}

func TestFileStorePutReplacesExisting(t *testing.T) {
	s, dir := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "out.txt", strings.NewReader("first")))
	require.NoError(t, s.Put(ctx, "out.txt", strings.NewReader("second")))

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileStoreFetchMissing(t *testing.T) {
	s, _ := newTestFileStore(t)

	_, _, err := s.Fetch(context.Background(), "missing.txt")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, BackendFile, serr.Backend)
	assert.Equal(t, "Fetch", serr.Op)
}

func TestFileStoreDeleteIdempotent(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "doomed.txt", strings.NewReader("x")))
	require.NoError(t, s.Delete(ctx, "doomed.txt"))
	assert.NoError(t, s.Delete(ctx, "doomed.txt"))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, dir := newTestFileStore(t)
	outside := filepath.Join(filepath.Dir(dir), "escape.txt")

	err := s.Put(context.Background(), "../escape.txt", strings.NewReader("nope"))
	require.Error(t, err)

	_, statErr := os.Stat(outside)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStoreConfigValidation(t *testing.T) {
	_, err := NewFileStore(FileConfig{})
	assert.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{uri: "s3://bucket/path/to/doc.txt", bucket: "bucket", key: "path/to/doc.txt"},
		{uri: "s3://bucket/doc.txt", bucket: "bucket", key: "doc.txt"},
		{uri: "s3://bucket", wantErr: true},
		{uri: "s3://bucket/", wantErr: true},
		{uri: "s3:///key", wantErr: true},
		{uri: "/local/path.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsS3URI(t *testing.T) {
	assert.True(t, IsS3URI("s3://bucket/key"))
	assert.False(t, IsS3URI("/tmp/file.txt"))
	assert.False(t, IsS3URI("file.txt"))
}
