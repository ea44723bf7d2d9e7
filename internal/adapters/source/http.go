package source

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"impfmon/internal/core/change"
	"impfmon/internal/core/version"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	ptime "impfmon/internal/platform/time"
	"impfmon/internal/services/ingest/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const defaultHTTPTO = 60 * time.Second

// HTTPConfig locates a published document
type HTTPConfig struct {
	// URL is the document itself. Ignored when PageURL is set
	URL string
	// PageURL is an HTML page linking to the document; the first anchor whose
	// href contains LinkPattern is followed
	PageURL     string
	LinkPattern string
	Timeout     time.Duration
	UserAgent   string
}

// HTTPFetcher implements domain.Fetcher over HTTP. With an archive attached it
// sends If-None-Match / If-Modified-Since from the last stored revision and
// serves the archived bytes on 304
type HTTPFetcher struct {
	cfg     HTTPConfig
	client  *resty.Client
	archive *Archive
	now     func() time.Time
}

var _ domain.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher; archive may be nil
func NewHTTPFetcher(cfg HTTPConfig, archive *Archive) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTO
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &HTTPFetcher{cfg: cfg, client: client, archive: archive, now: time.Now}
}

// Fetch downloads the current revision
func (f *HTTPFetcher) Fetch(ctx context.Context) (domain.SourceRevision, error) {
	log := logger.C(ctx)
	target := f.cfg.URL
	if f.cfg.PageURL != "" {
		u, err := f.resolveLink(ctx)
		if err != nil {
			return domain.SourceRevision{}, err
		}
		target = u
	}
	if target == "" {
		return domain.SourceRevision{}, perr.InvalidArgf("no source URL configured")
	}

	req := f.client.R().SetContext(ctx)
	var cached domain.SourceRevision
	haveCached := false
	if f.archive != nil {
		rev, ok, err := f.archive.Latest()
		if err != nil {
			log.Warn().Err(err).Msg("archive unreadable; fetching unconditionally")
		} else if ok && rev.URL == target {
			cached, haveCached = rev, true
			if rev.ETag != "" {
				req.SetHeader("If-None-Match", rev.ETag)
			}
			if rev.LastModified != "" {
				req.SetHeader("If-Modified-Since", rev.LastModified)
			}
		}
	}

	res, err := req.Get(target)
	if err != nil {
		return domain.SourceRevision{}, perr.Transport(err, "fetch "+target)
	}
	log.Debug().Str("url", target).Int("status", res.StatusCode()).Int("bytes", len(res.Body())).Msg("fetched")

	switch {
	case res.StatusCode() == http.StatusNotModified && haveCached:
		cached.FetchedAt = f.now().UTC()
		cached.Replayed = false
		return cached, nil
	case res.StatusCode() != http.StatusOK:
		return domain.SourceRevision{}, statusError(res.StatusCode(), target)
	case len(bytes.TrimSpace(res.Body())) == 0:
		return domain.SourceRevision{}, perr.Unavailablef("empty document from %s", target)
	}

	rev := change.NewRevision(target, res.Body(), f.now())
	rev.ETag = strings.TrimSpace(res.Header().Get("ETag"))
	rev.LastModified = strings.TrimSpace(res.Header().Get("Last-Modified"))
	if t, err := http.ParseTime(rev.LastModified); err == nil {
		rev.AsOf = ptime.DayOf(t)
	}
	return rev, nil
}

// resolveLink finds the document link on the configured page
func (f *HTTPFetcher) resolveLink(ctx context.Context) (string, error) {
	res, err := f.client.R().SetContext(ctx).Get(f.cfg.PageURL)
	if err != nil {
		return "", perr.Transport(err, "fetch "+f.cfg.PageURL)
	}
	if res.StatusCode() != http.StatusOK {
		return "", statusError(res.StatusCode(), f.cfg.PageURL)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeExtraction, "parse %s", f.cfg.PageURL)
	}
	href := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h := strings.TrimSpace(s.AttrOr("href", ""))
		if strings.Contains(h, f.cfg.LinkPattern) {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return "", perr.Extractionf("no link containing %q on %s", f.cfg.LinkPattern, f.cfg.PageURL)
	}
	base, err := url.Parse(f.cfg.PageURL)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "page URL %s", f.cfg.PageURL)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeExtraction, "link %q", href)
	}
	return base.ResolveReference(ref).String(), nil
}

// statusError classifies a non-200 response. Only 429 and 5xx are worth a retry
func statusError(status int, target string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return perr.Newf(perr.ErrorCodeTooManyRequests, "%s: status %d", target, status)
	case status >= 500:
		return perr.Newf(perr.ErrorCodeUnavailable, "%s: status %d", target, status)
	}
	return perr.Permanent(perr.Newf(perr.ErrorCodeUnavailable, "%s: status %d", target, status))
}
