package xhttp_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebasekit/ostag/pkg/errdefs"
	"github.com/rebasekit/ostag/pkg/util/xhttp"
)

func doRequest(t *testing.T, handler http.HandlerFunc) *http.Response {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSuccess(t *testing.T) {
	resp := doRequest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, xhttp.Success(resp))
}

func TestSuccessAllowedCodes(t *testing.T) {
	resp := doRequest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	})
	assert.NoError(t, xhttp.Success(resp, http.StatusNotModified))
}

func TestSuccessNotFound(t *testing.T) {
	resp := doRequest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such repository", http.StatusNotFound)
	})
	err := xhttp.Success(resp)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.Contains(t, err.Error(), "no such repository")
}

func TestSuccessForbidden(t *testing.T) {
	resp := doRequest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	assert.ErrorIs(t, xhttp.Success(resp), errdefs.ErrAuth)
}

func TestMakeRequestErrorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Millisecond}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
	require.Error(t, err)
	assert.ErrorIs(t, xhttp.MakeRequestError(req, err), errdefs.ErrTimeout)
}

func TestMakeRequestErrorNetwork(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/v2/", http.NoBody)
	require.NoError(t, err)

	_, doErr := http.DefaultClient.Do(req)
	require.Error(t, doErr)
	assert.ErrorIs(t, xhttp.MakeRequestError(req, doErr), errdefs.ErrNetwork)
}

func TestParseHostScheme(t *testing.T) {
	testcases := []struct {
		addr   string
		host   string
		scheme string
	}{
		{"ghcr.io", "ghcr.io", ""},
		{"https://ghcr.io", "ghcr.io", "https"},
		{"http://localhost:5000", "localhost:5000", "http"},
	}
	for _, tc := range testcases {
		t.Run(tc.addr, func(t *testing.T) {
			host, scheme, err := xhttp.ParseHostScheme(tc.addr)
			require.NoError(t, err)
			assert.Equal(t, tc.host, host)
			assert.Equal(t, tc.scheme, scheme)
		})
	}
}

func TestSuccessTruncatesLongBody(t *testing.T) {
	resp := doRequest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 64*1024))
	})
	err := xhttp.Success(resp)
	assert.Error(t, err)
	assert.Less(t, len(err.Error()), 16*1024)
}
