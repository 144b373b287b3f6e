package sources

import (
	"net/url"
	"strings"
)

// Candidate is a site under evaluation, as read from the validator's input
// table.
type Candidate struct {
	Name    string
	Link    string
	Country string
}

// Record is the outcome of evaluating one Candidate. Records are keyed by
// Domain; merge steps treat the first record seen for a domain as
// authoritative.
type Record struct {
	Name               string  `json:"source_name"`
	Domain             string  `json:"domain"`
	Country            string  `json:"country"`
	RSSURL             *string `json:"rss_url"`
	IsDomainUp         bool    `json:"is_domain_up"`
	IsRSSFeedAvailable bool    `json:"is_rss_feed_available"`
	IsRSSFeedValid     bool    `json:"is_rss_feed_valid"`
	IsScrapingAllowed  bool    `json:"is_scraping_allowed"`
	UsableSource       bool    `json:"usable_source"`

	// ScrapingScore is the fraction of feed article links robots.txt lets a
	// wildcard agent fetch. It is recorded but never gates UsableSource.
	ScrapingScore float64 `json:"scraping_score"`
}

// NewRecord starts a record for the given candidate with every check
// negative.
func NewRecord(c Candidate) Record {
	return Record{
		Name:    c.Name,
		Domain:  DomainOf(c.Link),
		Country: c.Country,
	}
}

// Decide sets UsableSource from the liveness, feed and permission checks.
func (r *Record) Decide() {
	r.UsableSource = r.IsDomainUp && r.IsRSSFeedValid && r.IsScrapingAllowed
}

// DomainOf returns the host of link, or "" when link has none.
func DomainOf(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}
