package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		BaseURL: srv.URL,
		BaseID:  "appBase",
		TableID: "tblJobs",
		Token:   "secret-token",
	})
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(listResponse{})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListRecords(context.Background(), "viwMain")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestListRecordsFollowsPagination(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Query().Get("offset"))
		assert.Equal(t, "/v0/appBase/tblJobs", r.URL.Path)
		assert.Equal(t, "viwMain", r.URL.Query().Get("view"))

		resp := listResponse{Records: []RawRecord{{ID: "rec" + r.URL.Query().Get("offset")}}}
		if len(calls) == 1 {
			resp.Offset = "page2"
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	records, err := newTestClient(srv).ListRecords(context.Background(), "viwMain")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []string{"", "page2"}, calls)
}

func TestGetRecordNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetRecord(context.Background(), "recMissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatchRecordSendsFieldsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v0/appBase/tblJobs/rec1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Fields map[string]interface{} `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(500), body.Fields["Impr_left"])

		json.NewEncoder(w).Encode(RawRecord{ID: "rec1", Fields: body.Fields})
	}))
	defer srv.Close()

	rec, err := newTestClient(srv).PatchRecord(context.Background(), "rec1",
		map[string]interface{}{"Impr_left": 500})
	require.NoError(t, err)
	assert.Equal(t, "rec1", rec.ID)
}

func TestPatchRecordValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).PatchRecord(context.Background(), "rec1",
		map[string]interface{}{"Rikma Machine": 6})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, http.StatusUnprocessableEntity, verr.StatusCode)
	assert.Contains(t, verr.Body, "INVALID_VALUE_FOR_COLUMN")
}

func TestServerErrorsBecomeUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetRecord(context.Background(), "rec1")
	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusBadGateway, uerr.StatusCode)
	assert.False(t, IsValidation(err))
}

func TestNetworkFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv).GetRecord(context.Background(), "rec1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}
