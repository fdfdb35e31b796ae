package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchellmoss/appraisal-generator/internal/httpx"
	"github.com/mitchellmoss/appraisal-generator/internal/sqlite"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

const testKey = "test-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := start
	backend := sqlite.NewBackend(sqlite.WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))
	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { backend.Detach() })

	ts := httptest.NewServer(New(backend, Options{APIKey: testKey}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, key string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func janeDoe() types.AppraisalRecord {
	return types.AppraisalRecord{
		ClientName: "Jane Doe",
		Articles: []types.ArticleLineItem{
			{Description: "Ring", AppraisedValue: "$500.00"},
			{Description: "Necklace", AppraisedValue: "$1,200.00"},
		},
		AppraisedValue: "$1,700.00",
	}
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, key := range []string{"", "wrong"} {
		resp := do(t, ts, http.MethodGet, "/api/appraisals", key, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := httpx.DecodeError(resp.Body)
		assert.Equal(t, CodeUnauthorized, body.Error.Code)
	}

	resp := do(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmptyServerKeyRejectsEverything(t *testing.T) {
	ts := httptest.NewServer(New(nil, Options{}).Handler())
	defer ts.Close()
	resp := do(t, ts, http.MethodGet, "/api/appraisals", "anything", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCRUDLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/api/appraisals", testKey, janeDoe())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[types.CreateResult](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.MessageCreated, created.Message)
	assert.False(t, created.CreatedAt.IsZero())

	resp = do(t, ts, http.MethodGet, "/api/appraisals/"+created.ID, testKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[types.AppraisalRecord](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, janeDoe().Articles, got.Articles)

	edit := got
	edit.ID = "ignored"
	edit.ClientName = "Jane Q. Doe"
	resp = do(t, ts, http.MethodPut, "/api/appraisals/"+created.ID, testKey, edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[types.UpdateResult](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt))

	resp = do(t, ts, http.MethodGet, "/api/appraisals", testKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]types.Summary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Jane Q. Doe", list[0].ClientName)
	assert.Equal(t, "$1,700.00", list[0].AppraisedValue)

	resp = do(t, ts, http.MethodDelete, "/api/appraisals/"+created.ID, testKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[types.DeleteResult](t, resp)
	assert.Equal(t, created.ID, deleted.ID)

	resp = do(t, ts, http.MethodGet, "/api/appraisals/"+created.ID, testKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusCodes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"create without client name", http.MethodPost, "/api/appraisals", types.AppraisalRecord{}, http.StatusBadRequest},
		{"create with empty body", http.MethodPost, "/api/appraisals", "", http.StatusBadRequest},
		{"create with malformed body", http.MethodPost, "/api/appraisals", "{", http.StatusBadRequest},
		{"get missing", http.MethodGet, "/api/appraisals/missing", nil, http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/appraisals/missing", janeDoe(), http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/appraisals/missing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, tt.method, tt.path, testKey, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestUpdateWithoutClientNameIsRejected(t *testing.T) {
	ts := newTestServer(t)
	created := decode[types.CreateResult](t, do(t, ts, http.MethodPost, "/api/appraisals", testKey, janeDoe()))

	resp := do(t, ts, http.MethodPut, "/api/appraisals/"+created.ID, testKey, types.AppraisalRecord{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := httpx.DecodeError(resp.Body)
	assert.Equal(t, msgValidation, body.Error.Message)
}

func TestMetricsExposed(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodGet, "/api/appraisals", testKey, nil)
	do(t, ts, http.MethodGet, "/api/appraisals/missing", testKey, nil)

	resp := do(t, ts, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `appraisal_http_requests_total{method="GET",route="/api/appraisals/{id}",status="404"} 1`)
	assert.Contains(t, text, "appraisal_http_request_duration_seconds")
}
