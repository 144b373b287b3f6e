package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/pevans/newsprobe/sources"
	"github.com/pevans/newsprobe/validator"
)

// printTable prints rows in aligned columns. Cells wider than maxWidth are
// truncated; widths are measured in terminal cells so names in any script
// line up.
func printTable(header []string, rows [][]string, maxWidth int) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range header {
			if i < len(row) {
				widths[i] = max(widths[i], min(maxWidth, runewidth.StringWidth(row[i])))
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(header))
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = runewidth.Truncate(cells[i], maxWidth, "...")
			}
			if i == len(header)-1 {
				parts[i] = cell
			} else {
				parts[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		fmt.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(header)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	fmt.Println(strings.Repeat("-", total-2))
	for _, row := range rows {
		printRow(row)
	}
}

// printRecordsTable prints validation records with their checks.
func printRecordsTable(records []sources.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rss := ""
		if r.RSSURL != nil {
			rss = *r.RSSURL
		}
		rows = append(rows, []string{
			r.Name,
			r.Domain,
			r.Country,
			yesNo(r.UsableSource),
			yesNo(r.IsDomainUp),
			yesNo(r.IsRSSFeedValid),
			yesNo(r.IsScrapingAllowed),
			fmt.Sprintf("%.2f", r.ScrapingScore),
			rss,
		})
	}
	printTable([]string{"NAME", "DOMAIN", "COUNTRY", "USABLE", "UP", "FEED", "ROBOTS", "RATIO", "RSS"}, rows, 40)
}

// printRecordLine prints the per source progress line of a validation run.
func printRecordLine(r sources.Record) {
	fmt.Printf("%s - Usable: %s\n", r.Name, yesNo(r.UsableSource))
	fmt.Printf("\t\tDomain Status: %-6s RSS feed availability: %-3s Crawling allowed?: %-5s\n",
		upDown(r.IsDomainUp), yesNo(r.IsRSSFeedAvailable), yesNo(r.IsScrapingAllowed))
}

// printValidationSummary prints the totals of a validation run.
func printValidationSummary(s validator.Summary) {
	fmt.Println()
	fmt.Println("✓ Validation completed")
	fmt.Printf("  Total sources: %d\n", s.Total)
	fmt.Printf("  Usable sources: %d\n", s.Usable)
	fmt.Printf("  Percentage of usable sources: %.2f%%\n", s.UsablePercent())
	fmt.Printf("  Domains up: %d, feeds found: %d, feeds valid: %d, robots.txt read: %d\n",
		s.DomainUp, s.FeedAvailable, s.FeedValid, s.ScrapingAllowed)
	fmt.Printf("  Duration: %s\n", s.Duration.Round(time.Millisecond))
}
