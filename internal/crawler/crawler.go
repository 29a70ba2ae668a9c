// SPDX-License-Identifier: MIT

// Package crawler walks the live.48.cn performance VOD listings and
// archives metadata into the store.
package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/SNH48Live/KVM48/internal/koudai"
	"github.com/SNH48Live/KVM48/internal/log"
	"github.com/SNH48Live/KVM48/internal/store"
)

const (
	listingBase    = "https://live.48.cn"
	requestTimeout = 5 * time.Second
	maxTries       = 3
	detailWorkers  = 2
)

// vodURLRe matches a VOD detail page URL and captures club id and page id.
var vodURLRe = regexp.MustCompile(`^https://live\.48\.cn/Index/invedio/club/(\d+)/id/(\d+)$`)

// subtitleRe splits the trailing start datetime off a detail page subtitle.
var subtitleRe = regexp.MustCompile(`^(.*)(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})$`)

// totalPagesRe extracts the page count from the pagination widget.
var totalPagesRe = regexp.MustCompile(`共(\d+)页`)

// clubNames maps live.48.cn club ids to group names. Clubs 4 and 5 are
// the defunct SHY48 and CKG48, only crawled in legacy mode.
var clubNames = map[int]string{
	1: "SNH48",
	2: "BEJ48",
	3: "GNZ48",
	4: "SHY48",
	5: "CKG48",
}

// Options configures a crawl run.
type Options struct {
	// Full crawls every listing page instead of stopping at the first
	// page containing an already-stored VOD.
	Full bool

	// LimitPages caps the listing pages crawled per club. Zero means
	// no cap.
	LimitPages int

	// Legacy also crawls the defunct SHY48 and CKG48 clubs.
	Legacy bool

	// ArchiveDir is where raw detail page HTML is kept, gzipped, as
	// <dir>/<club>/<id>.html.gz. Empty disables archiving.
	ArchiveDir string
}

// Crawler fetches listing and detail pages and records new VODs.
type Crawler struct {
	store   *store.Store
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	opts    Options

	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns a Crawler writing to st.
func New(st *store.Store, opts Options) *Crawler {
	return &Crawler{
		store:   st,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  log.WithComponent("crawler"),
		opts:    opts,
	}
}

// Run crawls all configured clubs. A broken club does not stop the
// others; the errors are joined and returned at the end.
func (c *Crawler) Run(ctx context.Context) error {
	crawlID := uuid.NewString()
	logger := c.logger.With().Str("crawl_id", crawlID).Logger()

	seen, err := c.store.SeenURLs(ctx)
	if err != nil {
		return err
	}
	c.seen = seen
	logger.Info().Int("known_vods", len(seen)).Bool("full", c.opts.Full).Msg("crawl started")

	clubIDs := []int{1, 2, 3}
	if c.opts.Legacy {
		clubIDs = []int{1, 2, 3, 4, 5}
	}
	var errs []error
	for _, clubID := range clubIDs {
		if err := c.crawlClub(ctx, logger, clubID); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error().Err(err).Str("club", clubNames[clubID]).Msg("club crawl failed")
			errs = append(errs, fmt.Errorf("club %s: %w", clubNames[clubID], err))
		}
	}
	return errors.Join(errs...)
}

func (c *Crawler) crawlClub(ctx context.Context, logger zerolog.Logger, clubID int) error {
	logger = logger.With().Str("club", clubNames[clubID]).Logger()
	page := 1
	for {
		sawKnown, totalPages, err := c.crawlPage(ctx, logger, clubID, page)
		if err != nil {
			return err
		}
		if !c.opts.Full && sawKnown {
			return nil
		}
		page++
		if page > totalPages {
			return nil
		}
		if c.opts.LimitPages > 0 && page > c.opts.LimitPages {
			return nil
		}
	}
}

// crawlPage fetches one listing page, dispatches its unseen VODs to the
// detail worker pool, and reports whether any link on the page was
// already stored.
func (c *Crawler) crawlPage(ctx context.Context, logger zerolog.Logger, clubID, page int) (sawKnown bool, totalPages int, err error) {
	pageURL := fmt.Sprintf("%s/Index/main/club/%d/p/%d.html", listingBase, clubID, page)
	body, err := c.requestPage(ctx, logger, pageURL)
	if err != nil {
		return false, 0, err
	}
	listing, err := parseListing(pageURL, body)
	if err != nil {
		return false, 0, err
	}
	if len(listing.VODURLs) == 0 && page == 1 {
		// An empty first page almost certainly means the site markup
		// changed and the parser is broken.
		logger.Warn().Str("url", pageURL).Msg("no VOD links on first listing page")
		return false, 0, fmt.Errorf("%s: no VOD links found", pageURL)
	}

	var fresh []string
	c.mu.Lock()
	for _, u := range listing.VODURLs {
		if _, ok := c.seen[u]; ok {
			sawKnown = true
		} else {
			fresh = append(fresh, u)
		}
	}
	c.mu.Unlock()
	sort.Strings(fresh)

	sem := make(chan struct{}, detailWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for _, u := range fresh {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := c.fetchVOD(ctx, logger, u); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return sawKnown, listing.TotalPages, err
	}
	return sawKnown, listing.TotalPages, nil
}

// fetchVOD downloads one detail page, archives the raw HTML, parses the
// metadata and inserts it into the store.
func (c *Crawler) fetchVOD(ctx context.Context, logger zerolog.Logger, vodURL string) error {
	m := vodURLRe.FindStringSubmatch(vodURL)
	if m == nil {
		return fmt.Errorf("malformed VOD URL: %s", vodURL)
	}
	clubID, _ := strconv.Atoi(m[1])
	l4cID, _ := strconv.Atoi(m[2])

	body, err := c.requestPage(ctx, logger, vodURL)
	if err != nil {
		return err
	}
	if err := c.archiveHTML(clubID, l4cID, body); err != nil {
		// Archiving is best effort, losing a raw page is not fatal.
		logger.Warn().Err(err).Str("url", vodURL).Msg("failed to archive page")
	}

	detail, err := parseDetail(body)
	if err != nil {
		return fmt.Errorf("%s: %w", vodURL, err)
	}
	st, err := time.ParseInLocation("2006-01-02 15:04:05", detail.StartTime, koudai.CST)
	if err != nil {
		return fmt.Errorf("%s: bad start time %q: %w", vodURL, detail.StartTime, err)
	}
	vod := &store.PerfVOD{
		CanonID:   detail.CanonID,
		L4CClubID: clubID,
		L4CID:     l4cID,
		Title:     detail.Title,
		Subtitle:  detail.Subtitle,
		StartTime: st.Unix(),
		SDStream:  detail.SDStream,
		HDStream:  detail.HDStream,
		FHDStream: detail.FHDStream,
	}
	if err := c.store.InsertVOD(ctx, vod); err != nil {
		return err
	}
	c.mu.Lock()
	c.seen[vodURL] = struct{}{}
	c.mu.Unlock()
	logger.Info().
		Str("id", vod.CanonID).
		Str("title", vod.Title).
		Time("start_time", st).
		Msg("VOD recorded")
	return nil
}

// requestPage fetches a page with rate limiting and exponential retry.
func (c *Crawler) requestPage(ctx context.Context, logger zerolog.Logger, pageURL string) (string, error) {
	op := func() (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		logger.Debug().Str("url", pageURL).Msg("GET")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("GET %s: HTTP %d", pageURL, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.Multiplier = 2
	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Str("url", pageURL).Dur("retry_in", next).Msg("request failed")
		}))
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", pageURL, err)
	}
	return body, nil
}

func (c *Crawler) archiveHTML(clubID, l4cID int, body string) error {
	if c.opts.ArchiveDir == "" {
		return nil
	}
	dir := filepath.Join(c.opts.ArchiveDir, strconv.Itoa(clubID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, body); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	dest := filepath.Join(dir, fmt.Sprintf("%d.html.gz", l4cID))
	return renameio.WriteFile(dest, buf.Bytes(), 0o644)
}

// resolveHref resolves a possibly relative listing href against the
// page it appeared on.
func resolveHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
