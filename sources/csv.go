package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pevans/newsprobe/table"
)

// Input columns of the validator.
const (
	ColumnPublisherName = "publisher_name"
	ColumnLink          = "link"
	ColumnCountry       = "country"
)

// Output columns of the validator, in file order.
const (
	ColumnSourceName         = "source_name"
	ColumnDomain             = "domain"
	ColumnRSSURL             = "rss_url"
	ColumnUsableSource       = "usable_source"
	ColumnIsScrapingAllowed  = "is_scraping_allowed"
	ColumnIsDomainUp         = "is_domain_up"
	ColumnIsRSSFeedAvailable = "is_rss_feed_available"
	ColumnIsRSSFeedValid     = "is_rss_feed_valid"
)

// RecordHeader is the header of a processed sources table.
var RecordHeader = []string{
	ColumnSourceName,
	ColumnDomain,
	ColumnCountry,
	ColumnRSSURL,
	ColumnUsableSource,
	ColumnIsScrapingAllowed,
	ColumnIsDomainUp,
	ColumnIsRSSFeedAvailable,
	ColumnIsRSSFeedValid,
}

// VerdictColumns are the per check booleans of a processed sources table.
var VerdictColumns = []string{
	ColumnUsableSource,
	ColumnIsScrapingAllowed,
	ColumnIsDomainUp,
	ColumnIsRSSFeedAvailable,
	ColumnIsRSSFeedValid,
}

// FormatBool writes booleans the way earlier runs of the pipeline did, so
// old and new tables can be merged.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool reads a boolean cell in any letter case. Empty or unrecognised
// cells are false.
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	return err == nil && b
}

// ReadCandidates reads the validator input table.
func ReadCandidates(r io.Reader) ([]Candidate, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, err
	}
	return CandidatesFromTable(t)
}

// CandidatesFromTable maps the publisher_name, link and country columns to
// candidates.
func CandidatesFromTable(t *table.Table) ([]Candidate, error) {
	if err := t.Require(ColumnPublisherName, ColumnLink, ColumnCountry); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, t.Len())
	for _, row := range t.Rows {
		candidates = append(candidates, Candidate{
			Name:    t.Get(row, ColumnPublisherName),
			Link:    strings.TrimSpace(t.Get(row, ColumnLink)),
			Country: t.Get(row, ColumnCountry),
		})
	}
	return candidates, nil
}

// RecordRow renders a record in RecordHeader order.
func RecordRow(r Record) []string {
	rssURL := ""
	if r.RSSURL != nil {
		rssURL = *r.RSSURL
	}

	return []string{
		r.Name,
		r.Domain,
		r.Country,
		rssURL,
		FormatBool(r.UsableSource),
		FormatBool(r.IsScrapingAllowed),
		FormatBool(r.IsDomainUp),
		FormatBool(r.IsRSSFeedAvailable),
		FormatBool(r.IsRSSFeedValid),
	}
}

// RecordWriter streams records to a CSV document. It is not safe for
// concurrent use; the validator funnels every record through one collector.
type RecordWriter struct {
	w           *csv.Writer
	wroteHeader bool
	count       int
}

// NewRecordWriter creates a writer. The header is written with the first
// record, or by Flush when there are none.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: csv.NewWriter(w)}
}

// Write appends one record.
func (rw *RecordWriter) Write(r Record) error {
	if err := rw.writeHeader(); err != nil {
		return err
	}
	if err := rw.w.Write(RecordRow(r)); err != nil {
		return fmt.Errorf("failed to write record for %s: %w", r.Domain, err)
	}
	rw.count++
	return nil
}

// Count returns how many records were written.
func (rw *RecordWriter) Count() int {
	return rw.count
}

// Flush writes any buffered data.
func (rw *RecordWriter) Flush() error {
	if err := rw.writeHeader(); err != nil {
		return err
	}
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

func (rw *RecordWriter) writeHeader() error {
	if rw.wroteHeader {
		return nil
	}
	if err := rw.w.Write(RecordHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rw.wroteHeader = true
	return nil
}
