package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presstrack/internal/jobs"
	"presstrack/internal/recordstore"
)

// memStore is a minimal in-memory record store for handler tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]recordstore.RawRecord
}

func (m *memStore) ListRecords(ctx context.Context, view string) ([]recordstore.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordstore.RawRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetRecord(ctx context.Context, id string) (recordstore.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return recordstore.RawRecord{}, recordstore.ErrNotFound
	}
	return r, nil
}

func (m *memStore) PatchRecord(ctx context.Context, id string, fields map[string]interface{}) (recordstore.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return recordstore.RawRecord{}, recordstore.ErrNotFound
	}
	for k, v := range fields {
		r.Fields[k] = v
	}
	m.records[id] = r
	return r, nil
}

func setupRouter(t *testing.T, records ...recordstore.RawRecord) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &memStore{records: make(map[string]recordstore.RawRecord)}
	for _, r := range records {
		store.records[r.ID] = r
	}

	service := jobs.NewService(store, jobs.Config{}, time.UTC, nil, nil)

	router := gin.New()
	api := router.Group("/api")
	NewJobHandler(service).RegisterRoutes(api)
	return router, store
}

func jobRecord(id, jobID, status string, impressions, left float64) recordstore.RawRecord {
	return recordstore.RawRecord{
		ID: id,
		Fields: map[string]interface{}{
			"JOB ID":          jobID,
			"Outsource North": status,
			"Impressions":     impressions,
			"Impr_left":       left,
		},
	}
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListJobsReturnsSortedJobs(t *testing.T) {
	router, _ := setupRouter(t,
		jobRecord("a", "2", "Finished North", 100, 0),
		jobRecord("b", "1", "In work North", 100, 40),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
		Jobs  []struct {
			JobID     string `json:"jobId"`
			StatusKey string `json:"statusKey"`
			ImprLeft  int64  `json:"imprLeft"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "1", resp.Jobs[0].JobID)
	assert.Equal(t, "in work north", resp.Jobs[0].StatusKey)
	assert.Equal(t, "2", resp.Jobs[1].JobID)
}

func TestListJobsUnknownRegion(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?region=east", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_input", resp.Error)
}

func TestRecordProgressEndpoint(t *testing.T) {
	router, store := setupRouter(t, jobRecord("rec1", "1", "In work North", 1000, 600))

	w := postJSON(router, "/api/jobs/rec1/progress", gin.H{"qty": 100, "machine": 8})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK       bool  `json:"ok"`
		NewLeft  int64 `json:"newLeft"`
		Finished bool  `json:"finished"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, int64(500), resp.NewLeft)
	assert.False(t, resp.Finished)
	assert.Equal(t, int64(500), store.records["rec1"].Fields["Impr_left"])
}

func TestRecordProgressMissingQty(t *testing.T) {
	router, _ := setupRouter(t, jobRecord("rec1", "1", "In work North", 1000, 600))

	w := postJSON(router, "/api/jobs/rec1/progress", gin.H{"machine": 8})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
}

func TestRecordProgressOverdraw(t *testing.T) {
	router, _ := setupRouter(t, jobRecord("rec1", "1", "In work North", 1000, 50))

	w := postJSON(router, "/api/jobs/rec1/progress", gin.H{"qty": 51})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "qty_exceeds_remaining", resp.Error)
}

func TestRecordProgressUnknownRecord(t *testing.T) {
	router, _ := setupRouter(t)

	w := postJSON(router, "/api/jobs/ghost/progress", gin.H{"qty": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartJobEndpoint(t *testing.T) {
	router, store := setupRouter(t, jobRecord("rec1", "1", "Delivered North", 500, 500))

	w := postJSON(router, "/api/jobs/rec1/start", gin.H{"machine": 6})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "In work North", store.records["rec1"].Fields["Outsource North"])

	w = postJSON(router, "/api/jobs/rec1/start", gin.H{"machine": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing machine fails binding before the service is reached.
	w = postJSON(router, "/api/jobs/rec1/start", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetStatusEndpoint(t *testing.T) {
	router, store := setupRouter(t, jobRecord("rec1", "1", "In work North", 500, 100))

	w := postJSON(router, "/api/jobs/rec1/status", gin.H{"status": "Finished North"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Finished North", store.records["rec1"].Fields["Outsource North"])
}

func TestReceiveCartonsZeroIsValid(t *testing.T) {
	router, store := setupRouter(t, jobRecord("rec1", "1", "Prepared to Send North", 500, 500))

	w := postJSON(router, "/api/jobs/rec1/cartons", gin.H{"cartons": 0})
	require.Equal(t, http.StatusOK, w.Code)

	fields := store.records["rec1"].Fields
	assert.Equal(t, int64(0), fields["Carton IN"])
	assert.Equal(t, "Delivered to North", fields["Outsource North"])

	// Omitting the count entirely is a binding failure.
	w = postJSON(router, "/api/jobs/rec1/cartons", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
