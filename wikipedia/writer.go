package wikipedia

import (
	"encoding/csv"
	"fmt"
	"io"
)

// SiteHeader is the header of the crawler's output table.
var SiteHeader = []string{"Name", "Link", "Country"}

// Site is one row of the crawler's output.
type Site struct {
	Name    string
	Link    string
	Country string
}

// SiteWriter writes sites as CSV and flushes after every row.
type SiteWriter struct {
	w *csv.Writer
}

// NewSiteWriter writes the header and returns a writer for the rows.
func NewSiteWriter(w io.Writer) (*SiteWriter, error) {
	sw := &SiteWriter{w: csv.NewWriter(w)}
	if err := sw.write(SiteHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return sw, nil
}

// Write appends one site.
func (sw *SiteWriter) Write(s Site) error {
	if err := sw.write([]string{s.Name, s.Link, s.Country}); err != nil {
		return fmt.Errorf("failed to write site %s: %w", s.Name, err)
	}
	return nil
}

func (sw *SiteWriter) write(row []string) error {
	if err := sw.w.Write(row); err != nil {
		return err
	}
	sw.w.Flush()
	return sw.w.Error()
}
