package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bill-tracker/internal/extract"
	"github.com/sells-group/bill-tracker/internal/model"
	"github.com/sells-group/bill-tracker/pkg/openstates"
)

// Config holds the crawl tunables.
type Config struct {
	Keywords         []string
	RequestDelay     time.Duration // fixed spacing between consecutive requests
	UpdatedSinceDays int           // search floor, in days before now
	PerPage          int
	MaxPages         int // page cap per keyword
	DefaultYear      string
}

// Result is the outcome of one jurisdiction crawl.
type Result struct {
	Jurisdiction  string
	Records       []model.BillRecord
	KeywordCounts map[string]int // verified records per keyword, pre-dedup
	Requests      int
	FailedWords   []string // keywords skipped after transport/HTTP failure
}

// Crawler issues rate-limited keyword searches against one jurisdiction
// and produces its deduplicated record set.
type Crawler struct {
	client  openstates.Client
	matcher *extract.KeywordMatcher
	builder *extract.Builder
	limiter *rate.Limiter
	cfg     Config
}

// New creates a crawler. The limiter holds one token so the first
// request goes out immediately and every later request waits out the
// fixed delay — deliberate fixed-interval pacing under an external
// quota, not adaptive backoff.
func New(client openstates.Client, cfg Config) *Crawler {
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 3 * time.Second
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = model.DefaultKeywords
	}
	return &Crawler{
		client:  client,
		matcher: extract.NewKeywordMatcher(cfg.Keywords),
		builder: extract.NewBuilder(cfg.DefaultYear),
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		cfg:     cfg,
	}
}

// Crawl searches every configured keyword against the jurisdiction,
// strictly sequentially. A failed keyword is logged and skipped; it
// never aborts the rest of the crawl. The returned records are verified
// against the keyword list and deduplicated by bill number, first
// occurrence wins.
func (c *Crawler) Crawl(ctx context.Context, code string) (*Result, error) {
	log := zap.L().With(
		zap.String("component", "crawler"),
		zap.String("jurisdiction", code),
	)

	result := &Result{
		Jurisdiction:  code,
		KeywordCounts: make(map[string]int),
	}

	updatedSince := ""
	if c.cfg.UpdatedSinceDays > 0 {
		updatedSince = time.Now().UTC().AddDate(0, 0, -c.cfg.UpdatedSinceDays).Format("2006-01-02")
	}

	var collected []model.BillRecord
	for _, keyword := range c.cfg.Keywords {
		records, requests, err := c.searchKeyword(ctx, code, keyword, updatedSince)
		result.Requests += requests
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrapf(ctx.Err(), "crawler: %s", code)
			}
			// The limiter fails fast when the remaining deadline cannot
			// cover the wait, before ctx.Err() turns non-nil. Every
			// later keyword would fail the same way instantly, so this
			// is fatal to the jurisdiction, not a keyword skip.
			if eris.Is(err, errPacingInterrupted) {
				return nil, eris.Wrapf(err, "crawler: %s", code)
			}
			log.Warn("keyword search failed, skipping",
				zap.String("keyword", keyword),
				zap.Error(err),
			)
			result.FailedWords = append(result.FailedWords, keyword)
			continue
		}

		result.KeywordCounts[keyword] = len(records)
		collected = append(collected, records...)

		log.Debug("keyword processed",
			zap.String("keyword", keyword),
			zap.Int("verified", len(records)),
		)
	}

	result.Records = dedupByBillNumber(collected)

	log.Info("crawl complete",
		zap.Int("requests", result.Requests),
		zap.Int("collected", len(collected)),
		zap.Int("unique", len(result.Records)),
		zap.Strings("failed_keywords", result.FailedWords),
	)
	return result, nil
}

// errPacingInterrupted marks a rate-limiter wait cut short by
// cancellation or a deadline too close to cover the configured delay.
var errPacingInterrupted = eris.New("crawler: pacing interrupted")

// searchKeyword pulls every page for one keyword, building and verifying
// records as pages arrive. Each page spends one limiter token.
func (c *Crawler) searchKeyword(ctx context.Context, code, keyword, updatedSince string) ([]model.BillRecord, int, error) {
	var records []model.BillRecord
	requests := 0

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return records, requests, eris.Wrapf(errPacingInterrupted, "%v", err)
		}

		resp, err := c.client.SearchBills(ctx, openstates.SearchQuery{
			Jurisdiction: code,
			Query:        keyword,
			UpdatedSince: updatedSince,
			Page:         page,
			PerPage:      c.cfg.PerPage,
		})
		requests++
		if err != nil {
			return records, requests, err
		}

		for _, bill := range resp.Results {
			record := c.builder.Build(bill, code)
			if c.matcher.Matches(record.Title + " " + record.Summary) {
				records = append(records, record)
			}
		}

		if page >= resp.Pagination.MaxPage {
			break
		}
	}

	return records, requests, nil
}

// dedupByBillNumber keeps the first occurrence of each bill number.
// Records without a number cannot be keyed and are all kept.
func dedupByBillNumber(records []model.BillRecord) []model.BillRecord {
	seen := make(map[string]bool, len(records))
	unique := make([]model.BillRecord, 0, len(records))
	for _, r := range records {
		key := strings.TrimSpace(r.BillNumber)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		unique = append(unique, r)
	}
	return unique
}
