// SPDX-License-Identifier: MIT

// Package store persists performance VOD metadata crawled from
// live.48.cn into an embedded SQLite database and serves the read-only
// queries exposed by the query service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// knownCollisionID is a genuine canon id collision on live.48.cn
// (two distinct pages share it); inserts for it are silently ignored.
const knownCollisionID = "5bd81e5a0cf27e320898288b"

// ErrConflict means a crawled VOD contradicts an already-stored record
// with the same canonical id. Not retriable.
var ErrConflict = errors.New("store: conflicting record for canonical id")

// PerfVOD is one archived performance VOD.
type PerfVOD struct {
	// CanonID is the platform's canonical VOD id.
	CanonID string

	// L4CClubID is the live.48.cn club id: 1 SNH48, 2 BEJ48, 3 GNZ48,
	// 4 SHY48, 5 CKG48.
	L4CClubID int

	// L4CID is the CMS-assigned index used in live.48.cn page URLs.
	L4CID int

	Title    string
	Subtitle string

	// StartTime is an epoch timestamp (seconds).
	StartTime int64

	SDStream  string
	HDStream  string
	FHDStream string
}

// L4CURL reconstructs the live.48.cn page URL for the record.
func (v *PerfVOD) L4CURL() string {
	return fmt.Sprintf("https://live.48.cn/Index/invedio/club/%d/id/%d", v.L4CClubID, v.L4CID)
}

// BestStream returns the highest-quality stream URL present. FHD
// streams are unreliable for VODs after October 2018 but still rank
// first when present.
func (v *PerfVOD) BestStream() string {
	if v.FHDStream != "" {
		return v.FHDStream
	}
	if v.HDStream != "" {
		return v.HDStream
	}
	return v.SDStream
}

const schema = `
CREATE TABLE IF NOT EXISTS perf_vods (
	canon_id    TEXT    NOT NULL PRIMARY KEY,
	l4c_club_id INTEGER NOT NULL,
	l4c_id      INTEGER NOT NULL UNIQUE,
	title       TEXT    NOT NULL,
	subtitle    TEXT,
	start_time  INTEGER NOT NULL,
	sd_stream   TEXT,
	hd_stream   TEXT,
	fhd_stream  TEXT
);
CREATE INDEX IF NOT EXISTS idx_perf_vods_start_time ON perf_vods (start_time);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// InsertVOD stores one crawled record. Constraint violations follow the
// site's observed duplication quirks: the known canon-id collision is
// ignored, a re-crawl of an identical record is tolerated, and a
// contradicting record surfaces ErrConflict.
func (s *Store) InsertVOD(ctx context.Context, v *PerfVOD) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perf_vods
			(canon_id, l4c_club_id, l4c_id, title, subtitle, start_time, sd_stream, hd_stream, fhd_stream)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.CanonID, v.L4CClubID, v.L4CID, v.Title, nullable(v.Subtitle), v.StartTime,
		nullable(v.SDStream), nullable(v.HDStream), nullable(v.FHDStream))
	if err == nil {
		return nil
	}
	if !isConstraintError(err) {
		return fmt.Errorf("store: insert %s: %w", v.CanonID, err)
	}
	if v.CanonID == knownCollisionID {
		return nil
	}
	existing, err2 := s.VODByCanonID(ctx, v.CanonID)
	if err2 != nil {
		return fmt.Errorf("store: insert %s: %w", v.CanonID, err)
	}
	if existing == nil {
		// The violated constraint was l4c_id, not canon_id.
		return fmt.Errorf("store: insert %s: %w", v.CanonID, err)
	}
	if existing.StartTime != v.StartTime {
		return fmt.Errorf("%w: %s conflicts with %s", ErrConflict, v.L4CURL(), existing.L4CURL())
	}
	return nil
}

func isConstraintError(err error) bool {
	// modernc.org/sqlite reports constraint violations in the error
	// text; matching the SQLITE_CONSTRAINT name avoids importing the
	// driver's error type across call sites.
	return strings.Contains(err.Error(), "constraint")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const selectCols = `canon_id, l4c_club_id, l4c_id, title,
	COALESCE(subtitle, ''), start_time,
	COALESCE(sd_stream, ''), COALESCE(hd_stream, ''), COALESCE(fhd_stream, '')`

func scanVOD(row interface{ Scan(...any) error }) (*PerfVOD, error) {
	var v PerfVOD
	err := row.Scan(&v.CanonID, &v.L4CClubID, &v.L4CID, &v.Title, &v.Subtitle,
		&v.StartTime, &v.SDStream, &v.HDStream, &v.FHDStream)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// VODByCanonID returns the record for one canonical id, or nil.
func (s *Store) VODByCanonID(ctx context.Context, id string) (*PerfVOD, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectCols+" FROM perf_vods WHERE canon_id = ?", id)
	v, err := scanVOD(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return v, nil
}

// VODsByCanonIDs returns one entry per requested id, preserving order;
// missing ids yield nil entries.
func (s *Store) VODsByCanonIDs(ctx context.Context, ids []string) ([]*PerfVOD, error) {
	out := make([]*PerfVOD, 0, len(ids))
	for _, id := range ids {
		v, err := s.VODByCanonID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// VODsByTimeRange returns records with start_time in [from, to),
// optionally restricted to one club, ordered by start time, club, id.
func (s *Store) VODsByTimeRange(ctx context.Context, from, to int64, clubID int) ([]*PerfVOD, error) {
	query := "SELECT " + selectCols + " FROM perf_vods WHERE start_time >= ? AND start_time < ?"
	args := []any{from, to}
	if clubID != 0 {
		query += " AND l4c_club_id = ?"
		args = append(args, clubID)
	}
	query += " ORDER BY start_time, l4c_club_id, l4c_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	var out []*PerfVOD
	for rows.Next() {
		v, err := scanVOD(rows)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SeenURLs returns the live.48.cn page URLs of every stored record, the
// crawler's resume set.
func (s *Store) SeenURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT l4c_club_id, l4c_id FROM perf_vods ORDER BY l4c_id DESC")
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	seen := make(map[string]struct{})
	for rows.Next() {
		var clubID, l4cID int
		if err := rows.Scan(&clubID, &l4cID); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		v := PerfVOD{L4CClubID: clubID, L4CID: l4cID}
		seen[v.L4CURL()] = struct{}{}
	}
	return seen, rows.Err()
}
