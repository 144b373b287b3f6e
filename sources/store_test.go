package sources

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test record store
func createTestRecordStore(t *testing.T) *RecordStore {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewRecordStore(dbPath)
	require.NoError(t, err, "should create record store")
	t.Cleanup(func() { store.Close() })
	return store
}

func usableRecord(name, domain, country string) Record {
	feed := "https://" + domain + "/rss"
	r := Record{
		Name: name, Domain: domain, Country: country, RSSURL: &feed,
		IsDomainUp: true, IsRSSFeedAvailable: true, IsRSSFeedValid: true,
		IsScrapingAllowed: true, ScrapingScore: 0.5,
	}
	r.Decide()
	return r
}

// TestNewRecordStore_ExistingDatabase verifies reopening keeps data.
func TestNewRecordStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store1, err := NewRecordStore(dbPath)
	require.NoError(t, err)
	run, err := store1.CreateRun("input.csv")
	require.NoError(t, err)
	store1.Close()

	store2, err := NewRecordStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "input.csv", got.InputPath)
	assert.Nil(t, got.FinishedAt)
}

// TestRecordStore_RunLifecycle verifies runs are created, finished and
// listed newest first.
func TestRecordStore_RunLifecycle(t *testing.T) {
	store := createTestRecordStore(t)

	first, err := store.CreateRun("first.csv")
	require.NoError(t, err)
	second, err := store.CreateRun("second.csv")
	require.NoError(t, err)

	require.NoError(t, store.FinishRun(first.RunID, 10, 4))

	got, err := store.GetRun(first.RunID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 4, got.Usable)
	assert.WithinDuration(t, first.StartedAt, got.StartedAt, 0)

	latest, err := store.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
}

// TestRecordStore_RunNotFound verifies unknown ids return ErrRunNotFound.
func TestRecordStore_RunNotFound(t *testing.T) {
	store := createTestRecordStore(t)

	_, err := store.GetRun(uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.LatestRun()
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = store.FinishRun(uuid.New(), 1, 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// TestRecordStore_Records verifies records round trip in save order and can
// be filtered.
func TestRecordStore_Records(t *testing.T) {
	store := createTestRecordStore(t)
	run, err := store.CreateRun("input.csv")
	require.NoError(t, err)
	other, err := store.CreateRun("other.csv")
	require.NoError(t, err)

	dead := NewRecord(Candidate{Name: "Gone", Link: "https://gone.example", Country: "Peru"})
	require.NoError(t, store.SaveRecord(run.RunID, usableRecord("Daily", "daily.example", "Chile")))
	require.NoError(t, store.SaveRecord(run.RunID, dead))
	require.NoError(t, store.SaveRecord(run.RunID, usableRecord("Herald", "herald.example", "Peru")))
	require.NoError(t, store.SaveRecord(other.RunID, usableRecord("Elsewhere", "elsewhere.example", "Chile")))

	records, err := store.ListRecords(run.RunID, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "daily.example", records[0].Domain)
	assert.Equal(t, "gone.example", records[1].Domain)
	assert.Equal(t, "herald.example", records[2].Domain)

	require.NotNil(t, records[0].RSSURL)
	assert.Equal(t, "https://daily.example/rss", *records[0].RSSURL)
	assert.True(t, records[0].UsableSource)
	assert.Equal(t, 0.5, records[0].ScrapingScore)
	assert.Nil(t, records[1].RSSURL)
	assert.False(t, records[1].UsableSource)

	usable := true
	records, err = store.ListRecords(run.RunID, RecordFilter{Usable: &usable})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	peru := "Peru"
	records, err = store.ListRecords(run.RunID, RecordFilter{Usable: &usable, Country: &peru})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Herald", records[0].Name)

	records, err = store.ListRecords(run.RunID, RecordFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
