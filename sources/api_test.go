package sources

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRecordAPI(t *testing.T) (*RecordStore, *echo.Echo) {
	store := createTestRecordStore(t)
	server := NewRecordAPIServer(store, zerolog.Nop())
	return store, server.SetupRouter()
}

func doGet(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// seedRun stores a finished run with one usable and one unusable record.
func seedRun(t *testing.T, store *RecordStore) *Run {
	run, err := store.CreateRun("sources.csv")
	require.NoError(t, err)
	require.NoError(t, store.SaveRecord(run.RunID, usableRecord("Daily", "daily.example", "Freedonia")))
	require.NoError(t, store.SaveRecord(run.RunID, Record{Name: "Gone", Domain: "gone.example", Country: "Sylvania"}))
	require.NoError(t, store.FinishRun(run.RunID, 2, 1))
	return run
}

// TestRecordAPI_ListRuns verifies runs are listed with a total.
func TestRecordAPI_ListRuns(t *testing.T) {
	store, e := setupTestRecordAPI(t)

	rec := doGet(t, e, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Runs, "an empty listing is an empty array, not null")

	run := seedRun(t, store)

	rec = doGet(t, e, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, run.RunID, resp.Runs[0].RunID)
	assert.Equal(t, 2, resp.Runs[0].Total)
	assert.Equal(t, 1, resp.Runs[0].Usable)
}

// TestRecordAPI_GetRun verifies lookup by ID and the error mapping.
func TestRecordAPI_GetRun(t *testing.T) {
	store, e := setupTestRecordAPI(t)
	run := seedRun(t, store)

	rec := doGet(t, e, "/api/v1/runs/"+run.RunID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var got Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sources.csv", got.InputPath)
	assert.NotNil(t, got.FinishedAt)

	rec = doGet(t, e, "/api/v1/runs/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "not_found", errResp.Error.Code)

	rec = doGet(t, e, "/api/v1/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestRecordAPI_LatestRun verifies the newest run is returned, and 404 when
// there is none.
func TestRecordAPI_LatestRun(t *testing.T) {
	store, e := setupTestRecordAPI(t)

	rec := doGet(t, e, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedRun(t, store)
	newest, err := store.CreateRun("newest.csv")
	require.NoError(t, err)

	rec = doGet(t, e, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, newest.RunID, got.RunID)
}

// TestRecordAPI_ListRecords verifies records come back in save order and
// the query filters apply.
func TestRecordAPI_ListRecords(t *testing.T) {
	store, e := setupTestRecordAPI(t)
	run := seedRun(t, store)
	base := "/api/v1/runs/" + run.RunID.String() + "/records"

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"all", "", []string{"daily.example", "gone.example"}},
		{"usable", "?usable=true", []string{"daily.example"}},
		{"unusable", "?usable=false", []string{"gone.example"}},
		{"country", "?country=Sylvania", []string{"gone.example"}},
		{"limit", "?limit=1", []string{"daily.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, e, base+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp ListRecordsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, run.RunID, resp.RunID)
			assert.Equal(t, len(tt.expected), resp.Total)

			domains := make([]string, len(resp.Records))
			for i, r := range resp.Records {
				domains[i] = r.Domain
			}
			assert.Equal(t, tt.expected, domains)
		})
	}
}

// TestRecordAPI_ListRecordsJSONFields verifies records use the column names
// of the processed sources table.
func TestRecordAPI_ListRecordsJSONFields(t *testing.T) {
	store, e := setupTestRecordAPI(t)
	run := seedRun(t, store)

	rec := doGet(t, e, "/api/v1/runs/"+run.RunID.String()+"/records?usable=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Records, 1)

	for _, column := range RecordHeader {
		assert.Contains(t, raw.Records[0], column)
	}
	assert.Equal(t, "https://daily.example/rss", raw.Records[0][ColumnRSSURL])
	assert.Equal(t, 0.5, raw.Records[0]["scraping_score"])
}

// TestRecordAPI_ListRecordsBadRequests verifies invalid IDs, unknown runs
// and malformed filters.
func TestRecordAPI_ListRecordsBadRequests(t *testing.T) {
	store, e := setupTestRecordAPI(t)
	run := seedRun(t, store)
	base := "/api/v1/runs/" + run.RunID.String() + "/records"

	assert.Equal(t, http.StatusBadRequest, doGet(t, e, "/api/v1/runs/nope/records").Code)
	assert.Equal(t, http.StatusNotFound, doGet(t, e, "/api/v1/runs/"+uuid.New().String()+"/records").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, e, base+"?usable=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, e, base+"?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, e, base+"?limit=ten").Code)
}

// TestRecordAPI_CORS verifies CORS headers and preflight handling.
func TestRecordAPI_CORS(t *testing.T) {
	_, e := setupTestRecordAPI(t)

	rec := doGet(t, e, "/api/v1/runs")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
}
