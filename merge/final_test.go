package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsprobe/table"
)

func mustTable(t *testing.T, doc string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(doc))
	require.NoError(t, err)
	return tbl
}

const initialSources = `title,domain,rss,category
Daily,daily.example,https://daily.example/rss,general
Herald,herald.example,https://herald.example/feed,politics
Daily Copy,daily.example,https://daily.example/rss2,general
`

const processedSources = `source_name,domain,country,rss_url,usable_source,is_scraping_allowed,is_domain_up,is_rss_feed_available,is_rss_feed_valid
Herald New,herald.example,Peru,https://herald.example/rss,True,True,True,True,True
Fresh,fresh.example,Chile,https://fresh.example/feed,True,True,True,True,True
Dead,dead.example,Chile,,False,False,False,False,False
Fresh Again,fresh.example,Chile,https://fresh.example/rss,true,True,True,True,True
`

// TestFinal verifies usable rows are mapped onto the initial columns and
// initial rows win on duplicate domains.
func TestFinal(t *testing.T) {
	merged, stats, err := Final(mustTable(t, initialSources), mustTable(t, processedSources))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "domain", "rss", "category"}, merged.Header)
	assert.Equal(t, [][]string{
		{"Daily", "daily.example", "https://daily.example/rss", "general"},
		{"Herald", "herald.example", "https://herald.example/feed", "politics"},
		{"Fresh", "fresh.example", "https://fresh.example/feed", ""},
	}, merged.Rows)

	assert.Equal(t, MergeStats{
		InitialDuplicates:   1,
		ProcessedDuplicates: 1,
		MergedDuplicates:    3,
		Usable:              3,
		Rows:                3,
	}, stats)
}

// TestFinal_Idempotent verifies merging a final table with itself adds
// nothing.
func TestFinal_Idempotent(t *testing.T) {
	merged, _, err := Final(mustTable(t, initialSources), mustTable(t, processedSources))
	require.NoError(t, err)

	again, err := table.Concat(merged, merged).DedupBy("domain")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Duplicated("domain"))
	assert.Equal(t, merged.Rows, again.Rows)
}

// TestFinal_MissingColumns verifies both inputs are checked.
func TestFinal_MissingColumns(t *testing.T) {
	_, _, err := Final(mustTable(t, "title\nDaily\n"), mustTable(t, processedSources))
	assert.ErrorIs(t, err, table.ErrMissingColumn)
	assert.Contains(t, err.Error(), "initial sources")

	_, _, err = Final(mustTable(t, initialSources), mustTable(t, "domain\na.example\n"))
	assert.ErrorIs(t, err, table.ErrMissingColumn)
	assert.Contains(t, err.Error(), "usable_source")
}
