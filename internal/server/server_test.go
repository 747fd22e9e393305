package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/loanocr/internal/compare"
	"github.com/sells-group/loanocr/internal/extract"
	"github.com/sells-group/loanocr/internal/model"
	"github.com/sells-group/loanocr/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	registry := model.NewFieldRegistry([]model.FieldDefinition{
		{Key: "bank_balance", Label: "Bank Balance", DocumentTypes: []string{"Bank Statement"}, Type: model.ValueNumeric, Tolerance: 200},
		{Key: "business_name", Label: "Business Name", DocumentTypes: []string{model.DocTypeAll}, Type: model.ValueString},
	})

	srv := New(registry, extract.New(registry, st), compare.NewComparator(registry), st, 0)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postExtract(t *testing.T, ts *httptest.Server, documentID string, body map[string]any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/documents/"+documentID+"/extract", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Fields(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/fields")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fields []model.FieldDefinition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "bank_balance", fields[0].Key)
}

func TestServer_Extract(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{"Bank Balance: $12,345.67"},
		"trigger":        "upload",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Run     model.Run      `json:"run"`
		Results []model.Result `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Run.Version)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "$12,345.67", out.Results[0].Value)
}

func TestServer_Extract_MissingPages(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Extract_EmptyPagesAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Extract_MissingApplicationID(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"document_type": "Bank Statement",
		"pages":         []string{"x"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Extract_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/documents/D1/extract", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Comparison_EndToEnd(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{"Bank Balance: $12,345.67"},
	})
	resp.Body.Close()
	resp = postExtract(t, ts, "D2", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{"Bank Balance: $12,000"},
	})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/applications/APP-1/ocr/comparison")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cmp model.Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cmp))
	require.Len(t, cmp.MismatchFlags, 2)
	assert.Equal(t, "D1", cmp.MismatchFlags[0].DocumentID)
	assert.Equal(t, []string{"$12,000"}, cmp.MismatchFlags[0].ComparisonValues)
	assert.Equal(t, []string{"business_name"}, cmp.MissingRequiredFields)
}

func TestServer_DocumentRuns(t *testing.T) {
	ts := newTestServer(t)

	resp := postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{"Bank Balance: 100"},
	})
	resp.Body.Close()
	resp = postExtract(t, ts, "D1", map[string]any{
		"application_id": "APP-1",
		"document_type":  "Bank Statement",
		"pages":          []string{"Bank Balance: 150"},
		"trigger":        "reprocess",
	})
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/documents/D1/ocr/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Version)
	assert.Equal(t, model.TriggerReprocess, runs[1].Trigger)
}

func TestServer_ApplicationResults_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/applications/NONE/ocr/results")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []model.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	assert.Empty(t, results)
}

func TestServer_RateLimit(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	registry := model.NewFieldRegistry([]model.FieldDefinition{
		{Key: "business_name", Label: "Business Name", DocumentTypes: []string{model.DocTypeAll}, Type: model.ValueString},
	})
	srv := New(registry, extract.New(registry, st), compare.NewComparator(registry), st, 1)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	// The limiter's burst is exhausted after two immediate calls.
	var saw429 bool
	for i := 0; i < 5; i++ {
		resp := postExtract(t, ts, "D1", map[string]any{
			"application_id": "APP-1",
			"document_type":  "Letter",
			"pages":          []string{},
		})
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			saw429 = true
		}
	}
	assert.True(t, saw429)
}
