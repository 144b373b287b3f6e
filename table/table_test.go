package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRead(t *testing.T, doc string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	return tbl
}

// TestRead_FitsRowsToHeader verifies ragged rows are padded or truncated.
func TestRead_FitsRowsToHeader(t *testing.T) {
	tbl := mustRead(t, "a,b,c\n1,2\n1,2,3,4\n\"x,y\",z,w\n")

	assert.Equal(t, []string{"a", "b", "c"}, tbl.Header)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"1", "2", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, tbl.Rows[1])
	assert.Equal(t, "x,y", tbl.Get(tbl.Rows[2], "a"))
}

// TestRead_Empty verifies a document without a header is rejected.
func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

// TestWriteFile_RoundTrip verifies a written table reads back unchanged.
func TestWriteFile_RoundTrip(t *testing.T) {
	tbl := New("name", "link")
	tbl.Append([]string{"Daily, Evening", "https://daily.example"})
	tbl.Append([]string{"Herald", ""})

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tbl.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)
}

// TestReadFile_Missing verifies the path is named in the error.
func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open table")
}

// TestColumnOperations verifies Require, Column, Rename, Drop and AddColumn.
func TestColumnOperations(t *testing.T) {
	tbl := mustRead(t, "source_name,domain,country,rss_url\nDaily,daily.example,Chile,https://daily.example/rss\n")

	require.NoError(t, tbl.Require("domain", "country"))
	err := tbl.Require("domain", "category")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "category")

	domains, err := tbl.Column("domain")
	require.NoError(t, err)
	assert.Equal(t, []string{"daily.example"}, domains)
	_, err = tbl.Column("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)

	tbl.Rename(map[string]string{"source_name": "title", "rss_url": "rss", "absent": "x"})
	tbl.Drop("country", "absent")
	tbl.AddColumn("category", "")
	tbl.AddColumn("title", "Overwritten")

	assert.Equal(t, []string{"title", "domain", "rss", "category"}, tbl.Header)
	assert.Equal(t, []string{"Overwritten", "daily.example", "https://daily.example/rss", ""}, tbl.Rows[0])
	assert.True(t, tbl.Has("title", "rss"))
	assert.False(t, tbl.Has("title", "country"))
}

// TestFilter verifies Filter copies rows.
func TestFilter(t *testing.T) {
	tbl := mustRead(t, "name,ok\na,True\nb,False\nc,True\n")

	kept := tbl.Filter(func(row []string) bool { return tbl.Get(row, "ok") == "True" })
	require.Equal(t, 2, kept.Len())
	kept.Rows[0][0] = "changed"
	assert.Equal(t, "a", tbl.Rows[0][0])
}

// TestConcat verifies the union of columns and empty filling.
func TestConcat(t *testing.T) {
	left := mustRead(t, "domain,title\na.example,A\n")
	right := mustRead(t, "rss,domain\nhttps://b.example/rss,b.example\n")

	out := Concat(left, right)

	assert.Equal(t, []string{"domain", "title", "rss"}, out.Header)
	assert.Equal(t, [][]string{
		{"a.example", "A", ""},
		{"b.example", "", "https://b.example/rss"},
	}, out.Rows)
}

// TestDuplicatedAndDedup verifies first seen wins and dedup is idempotent.
func TestDuplicatedAndDedup(t *testing.T) {
	tbl := mustRead(t, "domain,title\na.example,First\nb.example,B\na.example,Second\na.example,Third\n")

	assert.Equal(t, 2, tbl.Duplicated("domain"))
	assert.Equal(t, 0, tbl.Duplicated("missing"))

	deduped, err := tbl.DedupBy("domain")
	require.NoError(t, err)
	assert.Equal(t, 0, deduped.Duplicated("domain"))
	require.Equal(t, 2, deduped.Len())
	assert.Equal(t, "First", deduped.Get(deduped.Rows[0], "title"))

	again, err := deduped.DedupBy("domain")
	require.NoError(t, err)
	assert.Equal(t, deduped, again)

	doubled, err := Concat(deduped, deduped).DedupBy("domain")
	require.NoError(t, err)
	assert.Equal(t, 0, doubled.Duplicated("domain"))
	assert.Equal(t, deduped.Rows, doubled.Rows)

	_, err = tbl.DedupBy("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

// TestWrite_HeaderOnly verifies an empty table still writes its header.
func TestWrite_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("a", "b").Write(&buf))
	assert.Equal(t, "a,b\n", buf.String())
}
