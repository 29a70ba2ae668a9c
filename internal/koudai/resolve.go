// SPDX-License-Identifier: MIT

package koudai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type resolvePayload struct {
	LiveID string `json:"liveId"`
}

// ResolveOptions configure ResolvePerfVODs progress reporting.
type ResolveOptions struct {
	Progress      func()
	ProgressDelay time.Duration
}

// ResolvePerfVODs fills in VODURL for each record in place, one resolve
// call per id under the same bounded-retry policy as the listing walk.
// The resolve endpoint offers up to three quality variants; the highest
// available wins by fixed priority (hd > ld > base).
func (c *Client) ResolvePerfVODs(ctx context.Context, vods []*VOD, opts ResolveOptions) error {
	endpoint := c.apiBase + "/getLiveOne"
	start := time.Now()
	for _, vod := range vods {
		payload := &resolvePayload{LiveID: vod.ID}
		if opts.Progress != nil && time.Since(start) >= opts.ProgressDelay {
			opts.Progress()
		}
		buf, err := c.post(ctx, endpoint, payload)
		if err != nil {
			return &APIError{Endpoint: endpoint, Payload: payload, Cause: err}
		}
		var res struct {
			Content *struct {
				StreamPathHd string `json:"streamPathHd"`
				StreamPathLd string `json:"streamPathLd"`
				StreamPath   string `json:"streamPath"`
			} `json:"content"`
		}
		if err := json.Unmarshal(buf, &res); err != nil {
			return &APIError{Endpoint: endpoint, Payload: payload,
				Cause: fmt.Errorf("%w: %v", ErrBadResponse, err)}
		}
		if res.Content == nil {
			return &APIError{Endpoint: endpoint, Payload: payload,
				Cause: fmt.Errorf("%w: .content not found", ErrBadResponse)}
		}
		streamPath := res.Content.StreamPathHd
		if streamPath == "" {
			streamPath = res.Content.StreamPathLd
		}
		if streamPath == "" {
			streamPath = res.Content.StreamPath
		}
		if streamPath == "" {
			return &APIError{Endpoint: endpoint, Payload: payload,
				Cause: fmt.Errorf("%w: .content.streamPathHd, .content.streamPathLd, .content.streamPath not found", ErrBadResponse)}
		}
		vod.VODURL = c.resolveResource(streamPath)
	}
	return nil
}
