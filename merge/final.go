// Package merge joins the tables produced by the other stages: the final
// source list merger and the cross check of the Wikipedia list against the
// initial sources.
package merge

import (
	"fmt"

	"github.com/pevans/newsprobe/sources"
	"github.com/pevans/newsprobe/table"
)

// Columns of the final source list that processed tables are mapped onto.
const (
	ColumnTitle    = "title"
	ColumnRSS      = "rss"
	ColumnCategory = "category"
)

// MergeStats reports duplicate counts observed while merging.
type MergeStats struct {
	InitialDuplicates   int // repeated domains in the initial table
	ProcessedDuplicates int // repeated domains among usable processed rows
	MergedDuplicates    int // repeated domains once both are stacked
	Usable              int // usable processed rows
	Rows                int // rows of the merged table
}

// Final merges the usable rows of a processed sources table into the
// initial sources table. Processed rows are renamed to the initial table's
// columns, and rows are deduplicated by domain with initial rows winning.
func Final(initial, processed *table.Table) (*table.Table, MergeStats, error) {
	var stats MergeStats

	if err := initial.Require(sources.ColumnDomain); err != nil {
		return nil, stats, fmt.Errorf("initial sources: %w", err)
	}
	if err := processed.Require(sources.ColumnDomain, sources.ColumnUsableSource); err != nil {
		return nil, stats, fmt.Errorf("processed sources: %w", err)
	}

	usable := processed.Filter(func(row []string) bool {
		return sources.ParseBool(processed.Get(row, sources.ColumnUsableSource))
	})
	stats.Usable = usable.Len()

	stats.InitialDuplicates = initial.Duplicated(sources.ColumnDomain)
	stats.ProcessedDuplicates = usable.Duplicated(sources.ColumnDomain)
	stats.MergedDuplicates = table.Concat(initial, usable).Duplicated(sources.ColumnDomain)

	usable.Rename(map[string]string{
		sources.ColumnSourceName: ColumnTitle,
		sources.ColumnRSSURL:     ColumnRSS,
	})
	usable.AddColumn(ColumnCategory, "")
	usable.Drop(append([]string{sources.ColumnCountry}, sources.VerdictColumns...)...)

	merged, err := table.Concat(initial, usable).DedupBy(sources.ColumnDomain)
	if err != nil {
		return nil, stats, err
	}
	stats.Rows = merged.Len()

	return merged, stats, nil
}
