package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bill-tracker/pkg/openstates"
)

// fakeClient serves canned pages keyed by query, failing queries listed
// in failWords.
type fakeClient struct {
	pages     map[string][]*openstates.SearchResponse
	failWords map[string]bool
	calls     []openstates.SearchQuery
}

func (f *fakeClient) SearchBills(ctx context.Context, q openstates.SearchQuery) (*openstates.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, q)
	if f.failWords[q.Query] {
		return nil, eris.New("openstates: unexpected status 500")
	}
	pages := f.pages[q.Query]
	if q.Page > len(pages) || len(pages) == 0 {
		return &openstates.SearchResponse{Pagination: openstates.Pagination{Page: q.Page, MaxPage: len(pages)}}, nil
	}
	return pages[q.Page-1], nil
}

func bill(identifier, title string) openstates.Bill {
	return openstates.Bill{"identifier": identifier, "title": title}
}

func page(maxPage, pageNum int, bills ...openstates.Bill) *openstates.SearchResponse {
	return &openstates.SearchResponse{
		Results:    bills,
		Pagination: openstates.Pagination{Page: pageNum, MaxPage: maxPage},
	}
}

func testConfig(keywords ...string) Config {
	return Config{
		Keywords:     keywords,
		RequestDelay: time.Microsecond,
		PerPage:      20,
		MaxPages:     5,
		DefaultYear:  "2026",
	}
}

func TestCrawlFailedKeywordSkipped(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"prior authorization": {page(1, 1, bill("HB 1", "Relating to prior authorization"))},
			"clean claim":         {page(1, 1, bill("HB 2", "Payment of a clean claim"))},
		},
		failWords: map[string]bool{"utilization review": true},
	}

	c := New(client, testConfig("prior authorization", "utilization review", "clean claim"))
	result, err := c.Crawl(context.Background(), "TX")
	require.NoError(t, err)

	// The failing keyword is recorded and the ones after it still run.
	assert.Equal(t, []string{"utilization review"}, result.FailedWords)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 3, result.Requests)
	assert.Equal(t, map[string]int{"prior authorization": 1, "clean claim": 1}, result.KeywordCounts)
}

func TestCrawlDedupByBillNumber(t *testing.T) {
	t.Parallel()

	// HB 1 matches two keywords; only the first occurrence survives.
	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"prior authorization": {page(1, 1,
				bill("HB 1", "Prior authorization and utilization review"),
			)},
			"utilization review": {page(1, 1,
				bill("HB 1", "Prior authorization and utilization review"),
				bill("HB 3", "Utilization review standards"),
			)},
		},
	}

	c := New(client, testConfig("prior authorization", "utilization review"))
	result, err := c.Crawl(context.Background(), "TX")
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "HB 1", result.Records[0].BillNumber)
	assert.Equal(t, "HB 3", result.Records[1].BillNumber)
	// Pre-dedup counts keep the per-keyword totals.
	assert.Equal(t, 1, result.KeywordCounts["prior authorization"])
	assert.Equal(t, 2, result.KeywordCounts["utilization review"])
}

func TestCrawlVerificationFilter(t *testing.T) {
	t.Parallel()

	// The API may return loosely related hits; records whose title and
	// summary carry no configured keyword are dropped.
	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"prior authorization": {page(1, 1,
				bill("HB 1", "Relating to prior authorization"),
				bill("HB 2", "Relating to highway funding"),
			)},
		},
	}

	c := New(client, testConfig("prior authorization"))
	result, err := c.Crawl(context.Background(), "TX")
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "HB 1", result.Records[0].BillNumber)
}

func TestCrawlPaginates(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"telehealth": {
				page(3, 1, bill("HB 1", "Telehealth services")),
				page(3, 2, bill("HB 2", "Telehealth parity")),
				page(3, 3, bill("HB 3", "Telehealth licensure")),
			},
		},
	}

	c := New(client, testConfig("telehealth"))
	result, err := c.Crawl(context.Background(), "TX")
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 3, result.Requests)
	for i, q := range client.calls {
		assert.Equal(t, i+1, q.Page)
		assert.Equal(t, "TX", q.Jurisdiction)
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	t.Parallel()

	// Upstream reports more pages than the cap allows; the crawl stops at
	// the cap.
	pages := make([]*openstates.SearchResponse, 10)
	for i := range pages {
		pages[i] = page(10, i+1, bill("HB 1", "Telehealth services"))
	}
	client := &fakeClient{pages: map[string][]*openstates.SearchResponse{"telehealth": pages}}

	cfg := testConfig("telehealth")
	cfg.MaxPages = 2

	result, err := New(client, cfg).Crawl(context.Background(), "TX")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Requests)
}

func TestCrawlCancelledContextAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	_, err := New(client, testConfig("telehealth")).Crawl(ctx, "TX")
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestCrawlDeadlineDuringPacingFails(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"prior authorization": {page(1, 1, bill("HB 1", "Relating to prior authorization"))},
			"clean claim":         {page(1, 1, bill("HB 2", "Payment of a clean claim"))},
		},
	}

	// The first request spends the burst token; the second keyword's wait
	// cannot fit inside the remaining deadline, so the limiter fails fast
	// while ctx.Err() is still nil. That must fail the whole jurisdiction
	// rather than be skipped as a per-keyword failure with partial data.
	cfg := testConfig("prior authorization", "clean claim")
	cfg.RequestDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := New(client, cfg).Crawl(ctx, "TX")
	require.Error(t, err)
	assert.Nil(t, result)
	// Only the first keyword ever reached the API.
	assert.Len(t, client.calls, 1)
}

func TestDedupKeepsUnnumberedRecords(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		pages: map[string][]*openstates.SearchResponse{
			"telehealth": {page(1, 1,
				bill("", "Telehealth study resolution"),
				bill("", "Telehealth pilot program"),
			)},
		},
	}

	result, err := New(client, testConfig("telehealth")).Crawl(context.Background(), "TX")
	require.NoError(t, err)
	// Records without a bill number cannot be keyed and are never
	// collapsed into each other.
	assert.Len(t, result.Records, 2)
}
