// SPDX-License-Identifier: MIT

package koudai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listServer serves canned listing pages keyed by the lastTime cursor
// of the request. Unknown cursors get an empty page.
type listServer struct {
	t       *testing.T
	listKey string
	pages   map[int64][]map[string]any
	calls   int
}

func (s *listServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.calls++
		var payload struct {
			LastTime int64 `json:"lastTime"`
			Limit    int   `json:"limit"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(s.t, 100, payload.Limit)
		assert.Equal(s.t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(s.t, "ios", r.Header.Get("os"))
		assert.Equal(s.t, "5.2.0", r.Header.Get("version"))

		items := s.pages[payload.LastTime]
		if items == nil {
			items = []map[string]any{}
		}
		resp := map[string]any{"content": map[string]any{s.listKey: items}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(s.t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewWithBase(srv.URL, "https://source.48.cn/")
	require.NoError(t, err)
	return c
}

func stdItem(id string, startTime int64, name, kind, subtitle string) map[string]any {
	return map[string]any{
		"liveId":     id,
		"memberId":   35,
		"roomId":     3872010,
		"title":      name + kind,
		"subTitle":   subtitle,
		"startTime":  startTime,
		"streamPath": "live/" + id + ".mp4",
		"lrcPath":    "lrc/" + id + ".lrc",
	}
}

func TestListVODsWalksPagesAndDeduplicates(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	t1 := time.Date(2018, 2, 15, 12, 0, 0, 0, CST).UnixMilli()
	t2 := time.Date(2018, 2, 10, 12, 0, 0, 0, CST).UnixMilli()
	t3 := time.Date(2018, 2, 5, 12, 0, 0, 0, CST).UnixMilli()

	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {
			stdItem("a", t1, "莫寒", "的直播间", "晚饭"),
			stdItem("b", t2, "李艺彤", "的电台", ""),
		},
		t2: {
			// Overlap: "b" appears again on the second page.
			stdItem("b", t2, "李艺彤", "的电台", ""),
			stdItem("c", t3, "莫寒", "的直播间", ""),
		},
		t3: {},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	vods, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.NoError(t, err)

	require.Len(t, vods, 3)
	assert.Equal(t, "a", vods[0].ID)
	assert.Equal(t, "b", vods[1].ID)
	assert.Equal(t, "c", vods[2].ID)

	assert.Equal(t, "莫寒", vods[0].Name)
	assert.Equal(t, TypeLive, vods[0].Type)
	assert.Equal(t, "晚饭", vods[0].Title)
	assert.Equal(t, TypeRadio, vods[1].Type)
	assert.Equal(t, "https://source.48.cn/live/a.mp4", vods[0].VODURL)
	assert.Equal(t, "https://source.48.cn/lrc/a.lrc", vods[0].DanmakuURL)
	assert.Equal(t, int64(35), vods[0].MemberID)
	assert.True(t, vods[0].StartTime.Equal(time.UnixMilli(t1)))
}

func TestListVODsDropsNonMatchingTitles(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	t1 := time.Date(2018, 2, 15, 12, 0, 0, 0, CST).UnixMilli()
	t2 := time.Date(2018, 2, 14, 12, 0, 0, 0, CST).UnixMilli()

	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {
			stdItem("a", t1, "莫寒", "的直播间", ""),
			// Title without the member suffix pattern is dropped.
			{"liveId": "junk", "memberId": 1, "title": "公告", "startTime": t2},
		},
		t2: {},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	vods, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.NoError(t, err)
	require.Len(t, vods, 1)
	assert.Equal(t, "a", vods[0].ID)
}

func TestListVODsSkipsOutOfRangeButAdvancesCursor(t *testing.T) {
	from := time.Date(2018, 2, 10, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	inRange := time.Date(2018, 2, 15, 0, 0, 0, 0, CST).UnixMilli()
	before := time.Date(2018, 2, 1, 0, 0, 0, 0, CST).UnixMilli()

	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {
			stdItem("a", inRange, "莫寒", "的直播间", ""),
			stdItem("old", before, "莫寒", "的直播间", ""),
		},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	vods, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.NoError(t, err)
	require.Len(t, vods, 1)
	assert.Equal(t, "a", vods[0].ID)
	// The out-of-range item moved the cursor before from, so the walk
	// must have stopped after a single page.
	assert.Equal(t, 1, srv.calls)
}

func TestListVODsEmptyRange(t *testing.T) {
	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	day := time.Date(2018, 2, 10, 0, 0, 0, 0, CST)
	vods, err := c.CollectVODs(context.Background(), day, day, WalkOptions{})
	require.NoError(t, err)
	assert.Empty(t, vods)
	assert.Equal(t, 0, srv.calls, "a degenerate range must not hit the API")
}

func TestListVODsTerminatesWhenCursorStalls(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)

	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		// Every item carries the upper-bound timestamp, so the cursor
		// cannot move.
		to.UnixMilli(): {
			stdItem("a", to.UnixMilli(), "莫寒", "的直播间", ""),
		},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.calls)
}

func TestListVODsMissingLiveID(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {
			{"memberId": 35, "title": "莫寒的直播间", "startTime": to.UnixMilli() - 1000},
		},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestListVODsMalformedRoomID(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	item := stdItem("5a7fd7", to.UnixMilli()-1000, "莫寒", "的直播间", "")
	item["roomId"] = 3872010.5
	srv := &listServer{t: t, listKey: "reviewList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {item},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	_, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Contains(t, err.Error(), "roomId")
}

func TestListVODsMissingListKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"content":{}}`)
	}))
	defer ts.Close()

	c := newTestClient(t, ts)
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	_, err := c.CollectVODs(context.Background(), from, to, WalkOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".content.reviewList not found")
}

func TestListPerfVODsExtractsStage(t *testing.T) {
	from := time.Date(2018, 2, 1, 0, 0, 0, 0, CST)
	to := time.Date(2018, 2, 20, 0, 0, 0, 0, CST)
	t1 := time.Date(2018, 2, 15, 19, 0, 0, 0, CST).UnixMilli()
	t2 := time.Date(2018, 2, 14, 19, 0, 0, 0, CST).UnixMilli()

	srv := &listServer{t: t, listKey: "liveList", pages: map[int64][]map[string]any{
		to.UnixMilli(): {
			{"liveId": "p1", "title": "《心的旅程》剧场公演", "subTitle": "SII队", "startTime": t1},
			{"liveId": "p2", "title": "生日会", "subTitle": "无题", "startTime": t2},
		},
		t2: {},
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts)
	vods, err := c.CollectPerfVODs(context.Background(), from, to, WalkOptions{GroupID: 10})
	require.NoError(t, err)
	require.Len(t, vods, 2)
	assert.Equal(t, "心的旅程", vods[0].Name)
	assert.Equal(t, "《心的旅程》剧场公演", vods[0].Title)
	assert.Equal(t, "SII队", vods[0].Subtitle)
	assert.Empty(t, vods[0].VODURL, "perf listing must not resolve stream URLs")
	assert.Empty(t, vods[1].Name, "no bracketed stage name present")
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	var s flexString
	require.NoError(t, json.Unmarshal([]byte(`12345`), &s))
	assert.Equal(t, flexString("12345"), s)
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &s))
	assert.Equal(t, flexString("abc"), s)
}
