package extraction

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pevans/newsprobe/sources"
	"github.com/pevans/newsprobe/table"
)

// BackupFileName is written to the temporary directory when the results
// cannot be written to their primary path.
const BackupFileName = "data_extraction_test_results_backup.csv"

// ResultsHeader is the header of the results table. The counter columns
// repeat the run totals on every row.
var ResultsHeader = []string{
	"name",
	"domain",
	"valid_feed",
	"rss_entry_count",
	"failed_scrapes",
	"rss_article_link_count",
	"title_extracts",
	"author_extracts",
	"publication_date_extracts",
	"summary_extracts",
	"content_extracts",
	"tag_extracts",
}

// ResultsTable renders feed results with the run totals of c.
func ResultsTable(results []FeedResult, c *Counters) *table.Table {
	totals := []string{
		strconv.FormatInt(c.ArticleLinks.Load(), 10),
		strconv.FormatInt(c.Titles.Load(), 10),
		strconv.FormatInt(c.Authors.Load(), 10),
		strconv.FormatInt(c.PublicationDates.Load(), 10),
		strconv.FormatInt(c.Summaries.Load(), 10),
		strconv.FormatInt(c.Contents.Load(), 10),
		strconv.FormatInt(c.Tags.Load(), 10),
	}

	t := table.New(ResultsHeader...)
	for _, r := range results {
		row := []string{
			r.Name,
			r.Domain,
			sources.FormatBool(r.ValidFeed),
			strconv.Itoa(r.EntryCount),
			strconv.Itoa(r.FailedScrapes),
		}
		t.Append(append(row, totals...))
	}
	return t
}

// WriteResults writes t to path, or to BackupFileName in the temporary
// directory when path cannot be written. It returns the path written.
func WriteResults(t *table.Table, path string) (string, error) {
	err := t.WriteFile(path)
	if err == nil {
		return path, nil
	}

	backup := filepath.Join(os.TempDir(), BackupFileName)
	if backupErr := t.WriteFile(backup); backupErr != nil {
		return "", fmt.Errorf("failed to save results to %s (%v) and to backup: %w", path, err, backupErr)
	}
	return backup, nil
}
