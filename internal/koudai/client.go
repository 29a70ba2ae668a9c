// SPDX-License-Identifier: MIT

package koudai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBase      = "https://plive.48.cn/livesystem/api/live/v1"
	defaultResourceBase = "https://source.48.cn/"

	// pageLimit is the page size requested from the listing endpoints.
	pageLimit = 100

	// maxAttempts bounds per-request retries. Only timeouts retry.
	maxAttempts = 3
)

type Client struct {
	apiBase      string
	resourceBase *url.URL
	http         *http.Client

	// attemptTimeout returns the per-attempt timeout for the given
	// zero-based attempt. Timeouts escalate linearly rather than backing
	// off: backend timeouts are usually load-related, not failure-related.
	attemptTimeout func(attempt int) time.Duration
}

// New returns a client against the production endpoints.
func New() *Client {
	c, err := NewWithBase(defaultAPIBase, defaultResourceBase)
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return c
}

// NewWithBase returns a client against explicit API and resource bases.
func NewWithBase(apiBase, resourceBase string) (*Client, error) {
	res, err := url.Parse(resourceBase)
	if err != nil {
		return nil, fmt.Errorf("koudai: invalid resource base %q: %w", resourceBase, err)
	}
	return &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		resourceBase: res,
		http:         &http.Client{},
		attemptTimeout: func(attempt int) time.Duration {
			return (5 + 2*time.Duration(attempt)) * time.Second
		},
	}, nil
}

// SetAttemptTimeout overrides the per-attempt timeout schedule.
func (c *Client) SetAttemptTimeout(fn func(attempt int) time.Duration) {
	c.attemptTimeout = fn
}

// post issues one API call under the bounded-retry policy: up to
// maxAttempts attempts with escalating per-attempt timeouts, retrying
// only on timeout. Any other transport or HTTP error propagates
// immediately.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout(attempt))
		buf, err := c.doOnce(reqCtx, endpoint, body)
		cancel()
		if err == nil {
			return buf, nil
		}
		if !isTimeout(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrTimeout, maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("os", "ios")
	req.Header.Set("version", "5.2.0")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrBadResponse, res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// resolveResource resolves a (possibly relative) media path against the
// resource base URL.
func (c *Client) resolveResource(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.resourceBase.ResolveReference(u).String()
}

func epochMS(t time.Time) int64 {
	return t.UnixMilli()
}

func fromEpochMS(ms int64) time.Time {
	return time.UnixMilli(ms).In(CST)
}
