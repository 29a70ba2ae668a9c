// SPDX-License-Identifier: MIT

package peek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// sizeServer advertises a Content-Length per path; paths in broken get
// a 404 instead.
func sizeServer(t *testing.T, sizes map[string]int64, broken map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		if broken[r.URL.Path] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n, ok := sizes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
	}))
}

func TestContentLength(t *testing.T) {
	ts := sizeServer(t, map[string]int64{"/a.mp4": 1234}, nil)
	defer ts.Close()

	n, ok := ContentLength(context.Background(), http.DefaultClient, ts.URL+"/a.mp4")
	assert.True(t, ok)
	assert.Equal(t, int64(1234), n)

	_, ok = ContentLength(context.Background(), http.DefaultClient, ts.URL+"/missing.mp4")
	assert.False(t, ok)
}

func TestTotalSize(t *testing.T) {
	ts := sizeServer(t, map[string]int64{"/a.mp4": 100, "/b.mp4": 250}, nil)
	defer ts.Close()

	total, ok := TotalSize(context.Background(), []string{ts.URL + "/a.mp4", ts.URL + "/b.mp4"})
	assert.True(t, ok)
	assert.Equal(t, int64(350), total)
}

func TestTotalSizeUnknownOnAnyFailure(t *testing.T) {
	ts := sizeServer(t, map[string]int64{"/a.mp4": 100}, map[string]bool{"/bad.mp4": true})
	defer ts.Close()

	_, ok := TotalSize(context.Background(), []string{ts.URL + "/a.mp4", ts.URL + "/bad.mp4"})
	assert.False(t, ok, "one failed probe degrades the whole estimate")
}

func TestTotalSizeEmpty(t *testing.T) {
	total, ok := TotalSize(context.Background(), nil)
	assert.True(t, ok)
	assert.Zero(t, total)
}

func TestTotalSize_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sizes := make(map[string]int64)
	var urls []string
	for i := 0; i < 40; i++ {
		sizes["/v"+strconv.Itoa(i)+".mp4"] = int64(i)
	}
	ts := sizeServer(t, sizes, nil)
	defer ts.Close()
	for p := range sizes {
		urls = append(urls, ts.URL+p)
	}

	_, ok := TotalSize(context.Background(), urls)
	assert.True(t, ok)
	ts.CloseClientConnections()
}
