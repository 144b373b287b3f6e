// Package wikipedia builds the raw list of news websites from the
// Wikipedia category of news websites by country.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pevans/newsprobe/logging"
)

// DefaultBaseURL is the wiki every relative link is resolved against.
const DefaultBaseURL = "https://en.wikipedia.org"

// Config holds the crawler settings.
type Config struct {
	BaseURL   string
	UserAgent string
	// Delay is the minimum spacing between two requests. Zero disables it.
	Delay time.Duration
}

// Crawler walks the category pages one request at a time.
type Crawler struct {
	client    *http.Client
	base      *url.URL
	userAgent string
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// CrawlStats summarises a crawl.
type CrawlStats struct {
	Countries int // country pages listed in the category
	Sites     int // sites written
	Resolved  int // sites with an official website
	Failed    int // country pages that could not be read
}

// NewCrawler creates a crawler. An empty BaseURL means DefaultBaseURL.
func NewCrawler(client *http.Client, cfg Config) (*Crawler, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	return &Crawler{
		client:    client,
		base:      base,
		userAgent: cfg.UserAgent,
		limiter:   limiter,
		log:       logging.GetLogger("wikipedia"),
	}, nil
}

// Countries lists the country pages of a category page. Duplicate country
// names keep their first link.
func (c *Crawler) Countries(ctx context.Context, categoryURL string) ([]Link, error) {
	doc, err := c.fetch(ctx, categoryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve category page: %w", err)
	}
	return UniqueNames(CategoryLinks(doc, c.base)), nil
}

// Sites lists the news website articles of a country page.
func (c *Crawler) Sites(ctx context.Context, country Link) ([]Link, error) {
	doc, err := c.fetch(ctx, country.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s links: %w", country.Name, err)
	}
	return CategoryLinks(doc, c.base), nil
}

// ResolveWebsite returns the official website named on an article page, or
// NotAvailable when the page has none or cannot be read.
func (c *Crawler) ResolveWebsite(ctx context.Context, pageURL string) string {
	doc, err := c.fetch(ctx, pageURL)
	if err != nil {
		c.log.Debug().Err(err).Str("page", pageURL).Msg("Failed to read article page")
		return NotAvailable
	}
	return WebsiteLink(doc)
}

// Run crawls every country of the category and writes each site as soon as
// its website is resolved. Country pages that fail are logged and skipped.
func (c *Crawler) Run(ctx context.Context, categoryURL string, w *SiteWriter) (CrawlStats, error) {
	var stats CrawlStats

	countries, err := c.Countries(ctx, categoryURL)
	if err != nil {
		return stats, err
	}
	stats.Countries = len(countries)
	c.log.Info().Int("countries", len(countries)).Msg("Retrieved country links")

	for _, country := range countries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		sites, err := c.Sites(ctx, country)
		if err != nil {
			stats.Failed++
			c.log.Error().Err(err).Str("country", country.Name).Msg("Skipping country")
			continue
		}
		c.log.Info().Str("country", country.Name).Int("sites", len(sites)).Msg("Fetching news websites")

		for _, site := range sites {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			website := c.ResolveWebsite(ctx, site.URL)
			if err := w.Write(Site{Name: site.Name, Link: website, Country: country.Name}); err != nil {
				return stats, err
			}

			stats.Sites++
			if website != NotAvailable {
				stats.Resolved++
			}
		}
	}

	return stats, nil
}

// fetch downloads and parses an HTML page, waiting on the rate limiter
// first.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
