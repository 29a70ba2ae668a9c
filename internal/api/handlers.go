// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SNH48Live/KVM48/internal/store"
)

// groupNames maps live.48.cn club ids to group names for responses.
var groupNames = map[int]string{
	1: "SNH48",
	2: "BEJ48",
	3: "GNZ48",
	4: "SHY48",
	5: "CKG48",
}

// groupIDs is the inverse of groupNames, accepting query parameters by
// name or by club id.
var groupIDs = func() map[string]int {
	m := make(map[string]int, len(groupNames))
	for id, name := range groupNames {
		m[name] = id
		m[strconv.Itoa(id)] = id
	}
	return m
}()

// vodResponse is the JSON shape of one archived VOD.
type vodResponse struct {
	ID         string `json:"id"`
	L4CClubID  int    `json:"l4c_club_id"`
	L4CID      int    `json:"l4c_id"`
	L4CURL     string `json:"l4c_url"`
	Group      string `json:"group"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	StartTime  int64  `json:"start_time"`
	SDStream   string `json:"sd_stream,omitempty"`
	HDStream   string `json:"hd_stream,omitempty"`
	FHDStream  string `json:"fhd_stream,omitempty"`
	BestStream string `json:"best_stream"`
}

func toResponse(v *store.PerfVOD) *vodResponse {
	if v == nil {
		return nil
	}
	return &vodResponse{
		ID:         v.CanonID,
		L4CClubID:  v.L4CClubID,
		L4CID:      v.L4CID,
		L4CURL:     v.L4CURL(),
		Group:      groupNames[v.L4CClubID],
		Title:      v.Title,
		Subtitle:   v.Subtitle,
		StartTime:  v.StartTime,
		SDStream:   v.SDStream,
		HDStream:   v.HDStream,
		FHDStream:  v.FHDStream,
		BestStream: v.BestStream(),
	}
}

// handleVODByID serves GET /api/vods/{id}.
func (s *Server) handleVODByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := s.store.VODByCanonID(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "no VOD with id "+id)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(v))
}

// handleVODsByRange serves GET /api/vods?from=&to=[&group=]. Bounds are
// epoch seconds, from inclusive, to exclusive.
func (s *Server) handleVODsByRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromStr, toStr := q.Get("from"), q.Get("to")
	if fromStr == "" || toStr == "" {
		writeError(w, http.StatusBadRequest, "both 'from' and 'to' are required")
		return
	}
	from, err := strconv.ParseInt(fromStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "'from' must be an epoch timestamp")
		return
	}
	to, err := strconv.ParseInt(toStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "'to' must be an epoch timestamp")
		return
	}
	var clubID int
	if g := q.Get("group"); g != "" {
		id, ok := groupIDs[g]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown group "+strconv.Quote(g))
			return
		}
		clubID = id
	}
	vods, err := s.store.VODsByTimeRange(r.Context(), from, to, clubID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]*vodResponse, 0, len(vods))
	for _, v := range vods {
		out = append(out, toResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"vods": out})
}

// lookupRequest is the body of POST /api/vods/lookup. Exactly one of
// ids or the from/to pair must be present.
type lookupRequest struct {
	IDs   []string `json:"ids"`
	From  *int64   `json:"from"`
	To    *int64   `json:"to"`
	Group string   `json:"group"`
}

// handleVODLookup serves POST /api/vods/lookup, the batch form of the
// two GET queries. For id lookups the response preserves request order
// and holds null for unknown ids.
func (s *Server) handleVODLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if req.IDs != nil && (req.From != nil || req.To != nil || req.Group != "") {
		writeError(w, http.StatusBadRequest, "'from', 'to' and 'group' are not allowed when 'ids' is specified")
		return
	}
	if req.IDs == nil && (req.From == nil || req.To == nil) {
		writeError(w, http.StatusBadRequest, "either 'ids', or 'from' and 'to' must be specified")
		return
	}

	if req.IDs != nil {
		vods, err := s.store.VODsByCanonIDs(r.Context(), req.IDs)
		if err != nil {
			s.internalError(w, err)
			return
		}
		out := make([]*vodResponse, 0, len(vods))
		for _, v := range vods {
			out = append(out, toResponse(v))
		}
		writeJSON(w, http.StatusOK, map[string]any{"vods": out})
		return
	}

	var clubID int
	if req.Group != "" {
		id, ok := groupIDs[req.Group]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown group "+strconv.Quote(req.Group))
			return
		}
		clubID = id
	}
	vods, err := s.store.VODsByTimeRange(r.Context(), *req.From, *req.To, clubID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]*vodResponse, 0, len(vods))
	for _, v := range vods {
		out = append(out, toResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"vods": out})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("query failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
