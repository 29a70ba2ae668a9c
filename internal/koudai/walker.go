// SPDX-License-Identifier: MIT

package koudai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// WalkOptions configure a listing walk.
type WalkOptions struct {
	// MemberID/GroupID scope the listing; 0 means unscoped.
	MemberID int64
	GroupID  int64

	// Progress, if set, is invoked once per page request after
	// ProgressDelay has elapsed since the walk started. Purely
	// observational; never required for correctness.
	Progress      func()
	ProgressDelay time.Duration
}

type listPayload struct {
	Type     int   `json:"type"`
	MemberID int64 `json:"memberId"`
	GroupID  int64 `json:"groupId"`
	LastTime int64 `json:"lastTime"`
	Limit    int   `json:"limit"`
}

type perfListPayload struct {
	IsReview int   `json:"isReview"`
	GroupID  int64 `json:"groupId"`
	LastTime int64 `json:"lastTime"`
	Limit    int   `json:"limit"`
}

// flexString decodes a JSON string or number into a string. The backend
// is not consistent about id field types across payload versions.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type listItem struct {
	LiveID     flexString  `json:"liveId"`
	MemberID   json.Number `json:"memberId"`
	RoomID     json.Number `json:"roomId"`
	Title      string      `json:"title"`
	SubTitle   string      `json:"subTitle"`
	StartTime  int64       `json:"startTime"`
	StreamPath string      `json:"streamPath"`
	LrcPath    string      `json:"lrcPath"`
}

var (
	// Standard-mode titles look like "{name}的直播间" or "{name}的电台".
	// Items not matching the suffix are dropped, not errors: the backend
	// sometimes returns rooms irrelevant to this payload shape.
	stdTitleRe = regexp.MustCompile(`^(.+)(的直播间|的电台)`)

	// Perf-mode stage names are embedded in 《...》 brackets somewhere in
	// title+subtitle. Absence is not an error.
	stageRe = regexp.MustCompile(`《(.*?)》`)
)

// ListVODs walks the standard listing endpoint over the half-open range
// [from, to), yielding canonical VODs in reverse-chronological arrival
// order with duplicate ids suppressed. Items whose title does not match
// the member suffix pattern are dropped silently.
//
// The walk terminates on an empty page or once the cursor has moved
// before from. A yield error aborts the walk and is returned as-is.
func (c *Client) ListVODs(ctx context.Context, from, to time.Time, opts WalkOptions, yield func(VOD) error) error {
	endpoint := c.apiBase + "/memberLivePage"
	return c.walk(ctx, from, to, opts, func(cursor int64) (any, string) {
		return &listPayload{
			Type:     0,
			MemberID: opts.MemberID,
			GroupID:  opts.GroupID,
			LastTime: cursor,
			Limit:    pageLimit,
		}, endpoint
	}, "reviewList", func(it listItem) (VOD, bool, error) {
		return c.normalizeStd(it)
	}, yield)
}

// ListPerfVODs walks the performance listing endpoint over [from, to).
// Stream URLs are not populated; they are expensive (one API call per
// VOD) and are resolved later via ResolvePerfVODs, after user review.
func (c *Client) ListPerfVODs(ctx context.Context, from, to time.Time, opts WalkOptions, yield func(VOD) error) error {
	endpoint := c.apiBase + "/openLivePage"
	return c.walk(ctx, from, to, opts, func(cursor int64) (any, string) {
		return &perfListPayload{
			IsReview: 1,
			GroupID:  opts.GroupID,
			LastTime: cursor,
			Limit:    pageLimit,
		}, endpoint
	}, "liveList", normalizePerf, yield)
}

// CollectVODs runs ListVODs and gathers the emitted records.
func (c *Client) CollectVODs(ctx context.Context, from, to time.Time, opts WalkOptions) ([]VOD, error) {
	var out []VOD
	err := c.ListVODs(ctx, from, to, opts, func(v VOD) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// CollectPerfVODs runs ListPerfVODs and gathers the emitted records.
func (c *Client) CollectPerfVODs(ctx context.Context, from, to time.Time, opts WalkOptions) ([]VOD, error) {
	var out []VOD
	err := c.ListPerfVODs(ctx, from, to, opts, func(v VOD) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func (c *Client) walk(
	ctx context.Context,
	from, to time.Time,
	opts WalkOptions,
	buildPayload func(cursor int64) (any, string),
	listKey string,
	normalize func(listItem) (VOD, bool, error),
	yield func(VOD) error,
) error {
	fromMS := epochMS(from)
	cursor := epochMS(to)
	walkStart := time.Now()
	seen := make(map[string]struct{})

	for fromMS < cursor {
		payload, endpoint := buildPayload(cursor)
		if opts.Progress != nil && time.Since(walkStart) >= opts.ProgressDelay {
			opts.Progress()
		}

		items, err := c.fetchPage(ctx, endpoint, payload, listKey)
		if err != nil {
			return &APIError{Endpoint: endpoint, Payload: payload, Cause: err}
		}
		if len(items) == 0 {
			return nil
		}

		next := cursor
		for _, it := range items {
			if it.LiveID == "" || it.StartTime <= 0 {
				return &APIError{Endpoint: endpoint, Payload: payload,
					Cause: fmt.Errorf("%w: item missing liveId/startTime", ErrBadResponse)}
			}
			// Pages are nominally reverse-chronological, but sort
			// stability across page boundaries cannot be assumed: the
			// next cursor is the minimum start time observed, and
			// out-of-range items still move it.
			if it.StartTime < next {
				next = it.StartTime
			}
			if it.StartTime < fromMS {
				continue
			}
			v, ok, err := normalize(it)
			if err != nil {
				return &APIError{Endpoint: endpoint, Payload: payload, Cause: err}
			}
			if !ok {
				continue
			}
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			if err := yield(v); err != nil {
				return err
			}
		}
		if next >= cursor {
			// The page failed to advance the cursor (e.g. a full page of
			// identical timestamps); continuing would request the same
			// page forever.
			return nil
		}
		cursor = next
	}
	return nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, payload any, listKey string) ([]listItem, error) {
	buf, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var res struct {
		Content map[string]json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(buf, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	raw, ok := res.Content[listKey]
	if !ok {
		return nil, fmt.Errorf("%w: .content.%s not found", ErrBadResponse, listKey)
	}
	var items []listItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: .content.%s: %v", ErrBadResponse, listKey, err)
	}
	return items, nil
}

func (c *Client) normalizeStd(it listItem) (VOD, bool, error) {
	m := stdTitleRe.FindStringSubmatch(it.Title)
	if m == nil {
		return VOD{}, false, nil
	}
	typ := TypeRadio
	if m[2] == "的直播间" {
		typ = TypeLive
	}
	memberID, err := it.MemberID.Int64()
	if err != nil {
		return VOD{}, false, fmt.Errorf("%w: memberId %q", ErrBadResponse, it.MemberID)
	}
	roomID, err := it.RoomID.Int64()
	if err != nil {
		return VOD{}, false, fmt.Errorf("%w: roomId %q", ErrBadResponse, it.RoomID)
	}
	return VOD{
		ID:         string(it.LiveID),
		MemberID:   memberID,
		RoomID:     roomID,
		Type:       typ,
		Name:       m[1],
		Title:      it.SubTitle,
		StartTime:  fromEpochMS(it.StartTime),
		VODURL:     c.resolveResource(it.StreamPath),
		DanmakuURL: c.resolveResource(it.LrcPath),
	}, true, nil
}

func normalizePerf(it listItem) (VOD, bool, error) {
	var stage string
	if m := stageRe.FindStringSubmatch(it.Title + it.SubTitle); m != nil {
		stage = m[1]
	}
	return VOD{
		ID:        string(it.LiveID),
		Title:     it.Title,
		Subtitle:  it.SubTitle,
		Name:      stage,
		StartTime: fromEpochMS(it.StartTime),
	}, true, nil
}
