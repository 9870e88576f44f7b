package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/pkg/config"
)

func TestCleanKey(t *testing.T) {
	key, err := CleanKey("patients/p1/scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "patients/p1/scan.pdf", key)

	key, err = CleanKey("/patients//p1/./scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "patients/p1/scan.pdf", key)

	key, err = CleanKey("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)

	_, err = CleanKey("  ")
	assert.Error(t, err)
	_, err = CleanKey("/")
	assert.Error(t, err)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "patients/p1/report.txt", strings.NewReader("hello"), 5, "text/plain"))

	obj, err := store.Get(ctx, "patients/p1/report.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), obj.Size)

	require.NoError(t, store.Delete(ctx, "patients/p1/report.txt"))
	_, err = store.Get(ctx, "patients/p1/report.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "patients/p1/report.txt"))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

// fakeS3 is a minimal path-style S3 endpoint backed by a map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write(body) //nolint:errcheck
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StorageRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3Storage(ctx, config.StorageConfig{
		Driver:         config.StorageDriverS3,
		S3Bucket:       "dmr",
		S3Region:       "us-east-1",
		S3Endpoint:     srv.URL,
		S3AccessKey:    "minio",
		S3SecretKey:    "minio123",
		S3UsePathStyle: true,
	})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "files/a.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))
	assert.Contains(t, fake.objects, "dmr/files/a.pdf")

	obj, err := store.Get(ctx, "files/a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	obj.Body.Close() //nolint:errcheck
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "application/pdf", obj.ContentType)

	require.NoError(t, store.Delete(ctx, "files/a.pdf"))
	_, err = store.Get(ctx, "files/a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.StorageConfig{Driver: config.StorageDriverS3})
	assert.Error(t, err)
}
