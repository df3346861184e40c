package metadata

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverSourceFetch(t *testing.T) {
	payload := []byte("\x89PNG fake bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(payload)
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src := NewCoverSource(time.Second, 32, "")

	data, err := src.Fetch(context.Background(), server.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	data, err = src.Fetch(context.Background(), server.URL+"/missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = src.Fetch(context.Background(), server.URL+"/big")
	require.Error(t, err)
	assert.Nil(t, data)

	data, err = src.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCoverSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	src := NewCoverSource(100*time.Millisecond, 0, "")
	data, err := src.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, data)
}
