// Package extraction measures how well article data can be extracted from
// the feeds of the final source list.
package extraction

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/newsprobe/logging"
	"github.com/pevans/newsprobe/probe"
	"github.com/pevans/newsprobe/table"
)

// Columns of the final source list read by the extractor.
const (
	ColumnTitle  = "title"
	ColumnDomain = "domain"
	ColumnRSS    = "rss"
)

// Source is one feed to test.
type Source struct {
	Title  string
	Domain string
	RSS    string
}

// SourcesFromTable reads the title, domain and rss columns.
func SourcesFromTable(t *table.Table) ([]Source, error) {
	if err := t.Require(ColumnTitle, ColumnDomain, ColumnRSS); err != nil {
		return nil, err
	}

	srcs := make([]Source, 0, t.Len())
	for _, row := range t.Rows {
		srcs = append(srcs, Source{
			Title:  t.Get(row, ColumnTitle),
			Domain: t.Get(row, ColumnDomain),
			RSS:    t.Get(row, ColumnRSS),
		})
	}
	return srcs, nil
}

// FeedFetcher fetches and parses a feed. *probe.Prober implements it.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// Config holds the extractor settings.
type Config struct {
	FeedWorkers    int
	ArticleWorkers int
	UserAgent      string
}

// Counters are totals across every feed of a run.
type Counters struct {
	ArticleLinks     atomic.Int64
	Titles           atomic.Int64
	Authors          atomic.Int64
	PublicationDates atomic.Int64
	Summaries        atomic.Int64
	Contents         atomic.Int64
	Tags             atomic.Int64
}

func (c *Counters) observe(a *Article) {
	c.ArticleLinks.Add(1)
	if a.Title != "" {
		c.Titles.Add(1)
	}
	if len(a.Authors) > 0 {
		c.Authors.Add(1)
	}
	if a.PublishedAt != nil {
		c.PublicationDates.Add(1)
	}
	if a.Summary != "" {
		c.Summaries.Add(1)
	}
	if a.Content != "" {
		c.Contents.Add(1)
	}
	if len(a.Tags) > 0 {
		c.Tags.Add(1)
	}
}

// FeedResult is the outcome for one source.
type FeedResult struct {
	Name          string
	Domain        string
	ValidFeed     bool
	EntryCount    int
	FailedScrapes int
}

// Extractor downloads every article of every feed and counts which fields
// could be extracted.
type Extractor struct {
	feeds    FeedFetcher
	client   *http.Client
	cfg      Config
	counters *Counters
	log      zerolog.Logger
}

// NewExtractor creates an extractor. Worker counts below one are treated as
// one.
func NewExtractor(feeds FeedFetcher, client *http.Client, cfg Config) *Extractor {
	if client == nil {
		client = probe.NewHTTPClient(probe.DefaultTimeout)
	}
	cfg.FeedWorkers = max(1, cfg.FeedWorkers)
	cfg.ArticleWorkers = max(1, cfg.ArticleWorkers)

	return &Extractor{
		feeds:    feeds,
		client:   client,
		cfg:      cfg,
		counters: &Counters{},
		log:      logging.GetLogger("extraction"),
	}
}

// Counters returns the live totals.
func (e *Extractor) Counters() *Counters {
	return e.counters
}

// Run processes the sources with at most FeedWorkers feeds at once. Results
// are in input order.
func (e *Extractor) Run(ctx context.Context, srcs []Source) ([]FeedResult, error) {
	results := make([]FeedResult, len(srcs))

	var g errgroup.Group
	g.SetLimit(e.cfg.FeedWorkers)

	for i, src := range srcs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = e.ProcessFeed(ctx, src)
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessFeed parses the source's feed and extracts every entry with at most
// ArticleWorkers downloads at once. FailedScrapes counts article downloads
// or parses that failed; entries without a link are skipped.
func (e *Extractor) ProcessFeed(ctx context.Context, src Source) FeedResult {
	result := FeedResult{Name: src.Title, Domain: src.Domain}

	if src.RSS == "" {
		e.log.Error().Str("domain", src.Domain).Msg("Missing RSS URL")
		return result
	}
	e.log.Info().Str("source", src.Title).Msg("Processing source")

	feed, err := e.feeds.FetchFeed(ctx, src.RSS)
	if err != nil {
		e.log.Warn().Err(err).Str("domain", src.Domain).Msg("Invalid feed")
		return result
	}
	result.ValidFeed = true
	result.EntryCount = len(feed.Items)

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.cfg.ArticleWorkers)

	for _, item := range feed.Items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if item.Link == "" {
				e.log.Warn().Str("domain", src.Domain).Msg("No link found in entry")
				return nil
			}

			article, err := e.FetchArticle(ctx, item.Link)
			if err != nil {
				e.log.Error().Err(err).Str("link", item.Link).Msg("Error processing article")
				failed.Add(1)
				return nil
			}
			e.counters.observe(article)
			return nil
		})
	}

	_ = g.Wait()
	result.FailedScrapes = int(failed.Load())
	return result
}

// FetchArticle downloads and extracts one article page.
func (e *Extractor) FetchArticle(ctx context.Context, link string) (*Article, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid article URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return ExtractArticle(resp.Body, pageURL)
}
