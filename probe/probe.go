// Package probe decides whether a candidate news site is usable: it is up,
// it serves a well formed feed at a conventional path, and its robots.txt
// could be read.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"

	"github.com/pevans/newsprobe/logging"
	"github.com/pevans/newsprobe/sources"
)

// FeedPaths are the conventional feed locations, in probing order.
var FeedPaths = []string{
	"/rss",
	"/feed",
	"/feeds/posts/default",
	"/rss.xml",
	"/feed.xml",
}

// RobotsAgent is the agent robots.txt rules are evaluated for.
const RobotsAgent = "*"

// Config holds the request settings of a Prober.
type Config struct {
	UserAgent string
}

// Prober runs the per source checks. It holds no mutable state and is safe
// for concurrent use.
type Prober struct {
	client    *http.Client
	userAgent string
	log       zerolog.Logger
}

// NewProber creates a prober using client for every request. A nil client
// gets DefaultTimeout.
func NewProber(client *http.Client, cfg Config) *Prober {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}

	return &Prober{
		client:    client,
		userAgent: cfg.UserAgent,
		log:       logging.GetLogger("probe"),
	}
}

// Process computes the record of one candidate. Each step runs only if the
// previous one succeeded; failures become negative fields, never errors.
func (p *Prober) Process(ctx context.Context, c sources.Candidate) sources.Record {
	record := sources.NewRecord(c)
	p.check(ctx, c.Link, &record)
	record.Decide()
	return record
}

func (p *Prober) check(ctx context.Context, link string, record *sources.Record) {
	if record.Domain == "" {
		return
	}

	record.IsDomainUp = p.CheckLiveness(ctx, link)
	if !record.IsDomainUp {
		return
	}

	feedURL, ok := p.DiscoverFeed(ctx, record.Domain)
	if !ok {
		return
	}
	record.RSSURL = &feedURL
	record.IsRSSFeedAvailable = true

	feed, err := p.FetchFeed(ctx, feedURL)
	if err != nil {
		p.log.Debug().Err(err).Str("feed_url", feedURL).Msg("Invalid feed")
		return
	}
	record.IsRSSFeedValid = true

	links := ArticleLinks(feed)
	if len(links) == 0 {
		return
	}

	permission := p.CheckRobots(ctx, record.Domain, links)
	record.IsScrapingAllowed = permission.Allowed
	record.ScrapingScore = permission.Ratio
}

// LivenessResult is the outcome of a HEAD request.
type LivenessResult struct {
	Up         bool
	StatusCode int
	Err        error
}

// Reason names why a link is down, e.g. "HTTP 404" or "timeout".
func (l LivenessResult) Reason() string {
	switch {
	case l.Up:
		return ""
	case l.Err != nil:
		return classify(l.Err)
	default:
		return fmt.Sprintf("HTTP %d", l.StatusCode)
	}
}

// Liveness issues a HEAD request for link, following redirects.
func (p *Prober) Liveness(ctx context.Context, link string) LivenessResult {
	resp, err := p.do(ctx, http.MethodHead, link)
	if err != nil {
		return LivenessResult{Err: err}
	}
	defer drain(resp)

	return LivenessResult{
		Up:         resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
	}
}

// CheckLiveness reports whether a HEAD request for link ends in 200.
func (p *Prober) CheckLiveness(ctx context.Context, link string) bool {
	result := p.Liveness(ctx, link)
	if !result.Up {
		p.log.Debug().Str("link", link).Str("reason", result.Reason()).Msg("Domain down")
	}
	return result.Up
}

// DiscoverFeed probes FeedPaths under https://domain in order and returns
// the first URL answering 200.
func (p *Prober) DiscoverFeed(ctx context.Context, domain string) (string, bool) {
	for _, path := range FeedPaths {
		feedURL := "https://" + domain + path

		resp, err := p.do(ctx, http.MethodGet, feedURL)
		if err != nil {
			continue
		}
		drain(resp)

		if resp.StatusCode == http.StatusOK {
			return feedURL, true
		}
	}

	return "", false
}

// FetchFeed downloads and parses an RSS or Atom feed.
func (p *Prober) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	resp, err := p.do(ctx, http.MethodGet, feedURL)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// ArticleLinks returns the non empty entry links of feed in entry order.
func ArticleLinks(feed *gofeed.Feed) []string {
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links
}

// Permission is the outcome of the robots.txt check.
type Permission struct {
	// Allowed is true when robots.txt could be fetched, whatever it says.
	Allowed bool
	// Ratio is the fraction of links the rules permit for RobotsAgent.
	Ratio float64
}

// CheckRobots fetches https://domain/robots.txt and tests every link
// against it. A transport failure denies permission.
func (p *Prober) CheckRobots(ctx context.Context, domain string, links []string) Permission {
	if len(links) == 0 {
		return Permission{}
	}

	robots, err := p.fetchRobots(ctx, domain)
	if err != nil {
		p.log.Warn().Err(err).Str("domain", domain).Msg("Failed to read robots.txt")
		return Permission{}
	}

	allowed := 0
	for _, link := range links {
		if robots.TestAgent(requestPath(link), RobotsAgent) {
			allowed++
		}
	}

	return Permission{
		Allowed: true,
		Ratio:   float64(allowed) / float64(len(links)),
	}
}

// fetchRobots reads and interprets robots.txt. 401 and 403 forbid
// everything, other client errors allow everything, server errors forbid
// everything.
func (p *Prober) fetchRobots(ctx context.Context, domain string) (*robotstxt.RobotsData, error) {
	resp, err := p.do(ctx, http.MethodGet, "https://"+domain+"/robots.txt")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return robotstxt.FromString("User-agent: *\nDisallow: /")
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return robots, nil
}

// requestPath reduces a link to the path and query robots rules match on.
func requestPath(link string) string {
	u, err := url.Parse(link)
	if err != nil || (u.Path == "" && u.RawQuery == "") {
		return "/"
	}
	return u.RequestURI()
}
