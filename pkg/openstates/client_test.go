package openstates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBills(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bills", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))

		q := r.URL.Query()
		assert.Equal(t, "tx", q.Get("jurisdiction"))
		assert.Equal(t, "prior authorization", q.Get("q"))
		assert.Equal(t, "2025-08-25", q.Get("updated_since"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.ElementsMatch(t, Includes, q["include"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{"identifier": "HB 1", "title": "Relating to prior authorization"}
			],
			"pagination": {"per_page": 20, "page": 2, "max_page": 3, "total_items": 48}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.SearchBills(context.Background(), SearchQuery{
		Jurisdiction: "tx",
		Query:        "prior authorization",
		UpdatedSince: "2025-08-25",
		Page:         2,
		PerPage:      20,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "HB 1", resp.Results[0].Str("identifier"))
	assert.Equal(t, 3, resp.Pagination.MaxPage)
	assert.Equal(t, 48, resp.Pagination.TotalItems)
}

func TestSearchBillsOmitsOptionalParams(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("updated_since"))
		assert.False(t, q.Has("page"))
		assert.False(t, q.Has("per_page"))
		w.Write([]byte(`{"results": [], "pagination": {}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.SearchBills(context.Background(), SearchQuery{
		Jurisdiction: "tx",
		Query:        "telehealth",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchBillsNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.SearchBills(context.Background(), SearchQuery{Jurisdiction: "tx", Query: "telehealth"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestSearchBillsMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.SearchBills(context.Background(), SearchQuery{Jurisdiction: "tx", Query: "telehealth"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestSearchBillsContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [], "pagination": {}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.SearchBills(ctx, SearchQuery{Jurisdiction: "tx", Query: "telehealth"})
	require.Error(t, err)
}
