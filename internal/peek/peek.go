// SPDX-License-Identifier: MIT

// Package peek estimates the total size of a batch of direct-download
// URLs by probing their Content-Length headers concurrently.
package peek

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	poolSize     = 16
	probeTimeout = 3 * time.Second
)

// ContentLength issues a single HEAD request (following redirects) and
// returns the advertised length, if any.
func ContentLength(ctx context.Context, client *http.Client, url string) (int64, bool) {
	reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, false
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, false
	}
	n, err := strconv.ParseInt(res.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// TotalSize probes every URL with a fixed worker pool and returns the
// summed size. ok is false if any probe failed to produce a length; a
// failed probe never aborts the run, it only degrades the estimate to
// "unknown".
func TotalSize(ctx context.Context, urls []string) (int64, bool) {
	if len(urls) == 0 {
		return 0, true
	}
	client := &http.Client{}
	defer client.CloseIdleConnections()
	sem := make(chan struct{}, poolSize)
	results := make(chan struct {
		n  int64
		ok bool
	}, len(urls))
	var wg sync.WaitGroup

	for _, u := range urls {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			n, ok := ContentLength(ctx, client, u)
			results <- struct {
				n  int64
				ok bool
			}{n, ok}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var total int64
	allKnown := true
	for r := range results {
		if !r.ok {
			allKnown = false
			continue
		}
		total += r.n
	}
	if !allKnown {
		return 0, false
	}
	return total, true
}
