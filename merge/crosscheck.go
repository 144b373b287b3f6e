package merge

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/newsprobe/logging"
	"github.com/pevans/newsprobe/probe"
	"github.com/pevans/newsprobe/sources"
	"github.com/pevans/newsprobe/table"
	"github.com/pevans/newsprobe/wikipedia"
)

// Columns of the crawler's output table.
const (
	ColumnWikiName = "Name"
	ColumnWikiLink = "Link"
)

// LivenessChecker issues the liveness request for one link. *probe.Prober
// implements it.
type LivenessChecker interface {
	Liveness(ctx context.Context, link string) probe.LivenessResult
}

// CrossCheck compares the crawled Wikipedia list with the initial sources
// and re-validates the crawled links.
type CrossCheck struct {
	checker     LivenessChecker
	concurrency int
	log         zerolog.Logger
}

// CrossReport is the outcome of a cross check.
type CrossReport struct {
	Sources       int       // rows of the crawled table
	WithURL       int       // distinct usable links among them
	CommonDomains int       // domains present in both tables
	Valid         int       // links answering 200
	Failures      []Failure // one entry per failure reason, first seen first
}

// Failure groups the links that failed for the same reason.
type Failure struct {
	Reason  string
	Example string // name of the first source that failed this way
	Count   int
}

// NewCrossCheck creates a cross check issuing at most concurrency liveness
// requests at once.
func NewCrossCheck(checker LivenessChecker, concurrency int) *CrossCheck {
	return &CrossCheck{
		checker:     checker,
		concurrency: max(1, concurrency),
		log:         logging.GetLogger("crosscheck"),
	}
}

// Run cross checks the crawled table (Name, Link) against the initial
// sources table (domain).
func (c *CrossCheck) Run(ctx context.Context, wiki, initial *table.Table) (*CrossReport, error) {
	if err := wiki.Require(ColumnWikiName, ColumnWikiLink); err != nil {
		return nil, err
	}
	if err := initial.Require(sources.ColumnDomain); err != nil {
		return nil, err
	}

	report := &CrossReport{Sources: wiki.Len()}

	linked := wiki.Filter(func(row []string) bool {
		return usableLink(wiki.Get(row, ColumnWikiLink))
	})
	unique, err := linked.DedupBy(ColumnWikiLink)
	if err != nil {
		return nil, err
	}
	report.WithURL = unique.Len()
	c.log.Info().Int("with_url", report.WithURL).Int("sources", report.Sources).Msg("Sources with a web URL")

	report.CommonDomains = commonDomains(wiki, initial)
	c.log.Info().Int("common", report.CommonDomains).Msg("Common sources")

	results := make([]probe.LivenessResult, unique.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, row := range unique.Rows {
		if gctx.Err() != nil {
			break
		}

		link := unique.Get(row, ColumnWikiLink)
		g.Go(func() error {
			results[i] = c.checker.Liveness(gctx, link)
			c.log.Info().Str("url", link).Bool("valid", results[i].Up).Str("reason", results[i].Reason()).Msg("Validated URL")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	for i, result := range results {
		if result.Up {
			report.Valid++
			continue
		}

		reason := result.Reason()
		if j, ok := index[reason]; ok {
			report.Failures[j].Count++
			continue
		}
		index[reason] = len(report.Failures)
		report.Failures = append(report.Failures, Failure{
			Reason:  reason,
			Example: unique.Get(unique.Rows[i], ColumnWikiName),
			Count:   1,
		})
	}

	c.log.Info().Int("valid", report.Valid).Int("failure_reasons", len(report.Failures)).Msg("Cross check finished")
	return report, nil
}

// usableLink rejects empty links and the crawler's N/A placeholder.
func usableLink(link string) bool {
	link = strings.TrimSpace(link)
	return link != "" && link != wikipedia.NotAvailable
}

// DomainOf returns the host of a URL. A value that is already a bare domain
// is returned as is.
func DomainOf(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == wikipedia.NotAvailable {
		return ""
	}

	if u, err := url.Parse(value); err == nil && u.Host != "" {
		return u.Host
	}
	if !strings.ContainsAny(value, "/:?#") {
		return value
	}
	return ""
}

func commonDomains(wiki, initial *table.Table) int {
	wikiDomains := make(map[string]bool)
	for _, row := range wiki.Rows {
		if d := DomainOf(wiki.Get(row, ColumnWikiLink)); d != "" {
			wikiDomains[d] = true
		}
	}

	common := make(map[string]bool)
	for _, row := range initial.Rows {
		if d := DomainOf(initial.Get(row, sources.ColumnDomain)); wikiDomains[d] {
			common[d] = true
		}
	}
	return len(common)
}
