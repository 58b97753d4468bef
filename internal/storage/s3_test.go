package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/logging"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func TestS3Storage_PutPresignDelete(t *testing.T) {
	srv, requests := newFakeS3(t)
	ctx := context.Background()

	store, err := NewS3Storage(ctx, config.S3Config{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		BucketName:      "exports",
		UseSSL:          false,
	}, logging.Discard())
	require.NoError(t, err)

	require.NoError(t, store.PutObject(ctx, "snapshots/t/a.json", "application/json", []byte(`{"ok":true}`)))

	link, err := store.GeneratePresignedDownloadURL(ctx, "snapshots/t/a.json", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, srv.URL+"/exports/snapshots/t/a.json?"), link)
	assert.Contains(t, link, "X-Amz-Expires=60")

	require.NoError(t, store.DeleteObject(ctx, "snapshots/t/a.json"))

	got := requests()
	require.Len(t, got, 2, "presigning must not call the server")
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/exports/snapshots/t/a.json", got[0].path)
	assert.Contains(t, got[0].body, `{"ok":true}`)
	assert.Equal(t, http.MethodDelete, got[1].method)
	assert.Equal(t, "/exports/snapshots/t/a.json", got[1].path)
}
