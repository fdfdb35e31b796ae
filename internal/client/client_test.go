package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchellmoss/appraisal-generator/internal/server"
	"github.com/mitchellmoss/appraisal-generator/internal/sqlite"
	"github.com/mitchellmoss/appraisal-generator/pkg/types"
)

func liveClient(t *testing.T) *Client {
	t.Helper()
	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { backend.Detach() })
	ts := httptest.NewServer(server.New(backend, server.Options{APIKey: "k"}).Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", "k")
}

func TestRoundTripAgainstServer(t *testing.T) {
	ctx := context.Background()
	c := liveClient(t)

	rec := types.AppraisalRecord{
		ID:         "stripped-on-create",
		ClientName: "Jane Doe",
		Articles: []types.ArticleLineItem{
			{Description: "Ring", AppraisedValue: "$500.00"},
			{Description: "Necklace", AppraisedValue: "$1,200.00"},
		},
	}
	created, err := c.Create(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, "stripped-on-create", created.ID)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Articles, got.Articles)

	upd, err := c.Update(ctx, created.ID, got)
	require.NoError(t, err)
	assert.Equal(t, created.ID, upd.ID)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = c.Delete(ctx, created.ID)
	require.NoError(t, err)
	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateOmitsServerFields(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "k", r.Header.Get(APIKeyHeader))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.CreateResult{ID: "new"})
	}))
	defer ts.Close()

	now := time.Now()
	_, err := New(ts.URL, "k").Create(context.Background(), types.AppraisalRecord{
		ID: "x", ClientName: "Jane", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "id")
	assert.NotContains(t, body, "createdAt")
	assert.NotContains(t, body, "updatedAt")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, types.ErrValidation},
		{http.StatusUnauthorized, types.ErrUnauthorized},
		{http.StatusForbidden, types.ErrUnauthorized},
		{http.StatusNotFound, types.ErrNotFound},
		{http.StatusInternalServerError, types.ErrTransient},
		{http.StatusBadGateway, types.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			_, err := New(ts.URL, "k").Get(context.Background(), "abc")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url, "k").List(context.Background())
	assert.ErrorIs(t, err, types.ErrTransient)
}

func TestMissingAPIKeySendsNothing(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	_, err := New(ts.URL, " ").List(context.Background())
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.Zero(t, hits.Load())
}

func TestEmptyIDRejectedLocally(t *testing.T) {
	c := New("http://127.0.0.1:1", "k")
	_, err := c.Get(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = c.Update(context.Background(), "", types.AppraisalRecord{})
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = c.Delete(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}
