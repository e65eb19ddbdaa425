package ingest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmitter(t *testing.T, srv *httptest.Server) *submitter {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return newSubmitter(u, "test-key", 2*time.Second, nil)
}

func TestSubmitter_Success(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sub := testSubmitter(t, srv)
	defer sub.Close()

	err := sub.Submit(t.Context(), []RequestEvent{{Path: "/a"}})
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
}

func TestSubmitter_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	sub := testSubmitter(t, srv)
	defer sub.Close()

	err := sub.Submit(t.Context(), []RequestEvent{{Path: "/a"}})
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err))

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
}

func TestSubmitter_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sub := testSubmitter(t, srv)
	defer sub.Close()

	err := sub.Submit(t.Context(), []RequestEvent{{Path: "/a"}})
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err))
}

func TestSubmitter_TransportErrorIsRetryable(t *testing.T) {
	u, err := url.Parse("https://127.0.0.1:1")
	require.NoError(t, err)
	sub := newSubmitter(u, "test-key", 500*time.Millisecond, nil)
	defer sub.Close()

	err2 := sub.Submit(t.Context(), []RequestEvent{{Path: "/a"}})
	require.Error(t, err2)
	assert.True(t, apperror.IsRetryable(err2))
}
