package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bill-tracker/internal/crawler"
	"github.com/sells-group/bill-tracker/internal/report"
	"github.com/sells-group/bill-tracker/internal/runlog"
)

// JurisdictionCrawler abstracts the per-jurisdiction crawl for testing.
type JurisdictionCrawler interface {
	Crawl(ctx context.Context, code string) (*crawler.Result, error)
}

// Config holds the orchestrator tunables.
type Config struct {
	Jurisdictions       []string
	OutputDir           string
	Workers             int           // jurisdiction fan-out; 1 = sequential
	JurisdictionTimeout time.Duration // bounds one crawl regardless of keyword count
	Pause               time.Duration // between jurisdictions in sequential mode
}

// Report summarizes one orchestrator run.
type Report struct {
	RunID        string
	StartedAt    time.Time
	Elapsed      time.Duration
	Attempted    int
	Succeeded    int
	Failed       int
	FailedStates []string
	TotalBills   int
	Merged       int    // consolidated record count
	Artifact     string // consolidated artifact path, "" when nothing merged
}

// SuccessRate returns the fraction of attempted jurisdictions that
// succeeded, in [0, 1].
func (r *Report) SuccessRate() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Attempted)
}

// Orchestrator drives crawls across the jurisdiction list and merges
// the successful outputs.
type Orchestrator struct {
	crawler JurisdictionCrawler
	log     *runlog.Log // optional; nil disables bookkeeping
	cfg     Config
	now     func() time.Time
}

// New creates an orchestrator. runLog may be nil.
func New(c JurisdictionCrawler, runLog *runlog.Log, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JurisdictionTimeout <= 0 {
		cfg.JurisdictionTimeout = 10 * time.Minute
	}
	return &Orchestrator{
		crawler: c,
		log:     runLog,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run crawls every configured jurisdiction, each under its own timeout,
// then merges the successful outputs once all crawls have finished. A
// failed or timed-out jurisdiction is recorded and never aborts the
// run; only context cancellation stops it early.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	log := zap.L().With(zap.String("component", "orchestrator"))
	start := o.now()

	runID := ""
	if o.log != nil {
		id, err := o.log.StartRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = id
	}

	rep := &Report{
		RunID:     runID,
		StartedAt: start,
		Attempted: len(o.cfg.Jurisdictions),
	}

	var mu sync.Mutex
	var artifacts []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	for _, code := range o.cfg.Jurisdictions {
		code := code
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			artifact, bills, err := o.crawlOne(gctx, runID, code)

			mu.Lock()
			if err != nil {
				rep.Failed++
				rep.FailedStates = append(rep.FailedStates, code)
			} else {
				rep.Succeeded++
				rep.TotalBills += bills
				if artifact != "" {
					artifacts = append(artifacts, artifact)
				}
			}
			mu.Unlock()

			if o.cfg.Pause > 0 && o.cfg.Workers == 1 {
				o.pause(gctx)
			}
			return nil // individual failures never abort the run
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "orchestrator: run cancelled")
	}

	// Merge barrier: all crawls are done, successful or not.
	o.merge(rep, artifacts)

	rep.Elapsed = o.now().Sub(start)

	if o.log != nil {
		if err := o.log.CompleteRun(ctx, runID, rep.Attempted, rep.Succeeded,
			rep.Failed, rep.TotalBills, rep.FailedStates); err != nil {
			log.Error("failed to record run completion", zap.Error(err))
		}
	}

	log.Info("run complete",
		zap.String("run_id", runID),
		zap.Int("attempted", rep.Attempted),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Strings("failed_states", rep.FailedStates),
		zap.Float64("success_rate", rep.SuccessRate()),
		zap.Int("total_bills", rep.TotalBills),
		zap.Duration("elapsed", rep.Elapsed),
	)
	return rep, nil
}

// crawlOne runs a single jurisdiction under its timeout and writes its
// artifact. A crawl yielding zero bills is a normal success with no
// artifact.
func (o *Orchestrator) crawlOne(ctx context.Context, runID, code string) (string, int, error) {
	log := zap.L().With(
		zap.String("component", "orchestrator"),
		zap.String("jurisdiction", code),
	)

	crawlID := ""
	if o.log != nil {
		id, err := o.log.StartCrawl(ctx, runID, code)
		if err != nil {
			log.Error("failed to record crawl start", zap.Error(err))
		} else {
			crawlID = id
		}
	}

	crawlCtx, cancel := context.WithTimeout(ctx, o.cfg.JurisdictionTimeout)
	result, err := o.crawler.Crawl(crawlCtx, code)
	cancel()

	if err != nil {
		if crawlCtx.Err() == context.DeadlineExceeded {
			log.Warn("crawl timed out", zap.Duration("timeout", o.cfg.JurisdictionTimeout))
		} else {
			log.Error("crawl failed", zap.Error(err))
		}
		if crawlID != "" {
			if logErr := o.log.FailCrawl(ctx, crawlID, err.Error()); logErr != nil {
				log.Error("failed to record crawl failure", zap.Error(logErr))
			}
		}
		return "", 0, err
	}

	artifact := ""
	if len(result.Records) > 0 {
		path := report.ArtifactPath(o.cfg.OutputDir, code, o.now())
		if err := report.WriteWorkbook(path, result.Records); err != nil {
			log.Error("failed to write artifact", zap.Error(err))
			if crawlID != "" {
				if logErr := o.log.FailCrawl(ctx, crawlID, err.Error()); logErr != nil {
					log.Error("failed to record crawl failure", zap.Error(logErr))
				}
			}
			return "", 0, err
		}
		artifact = path
	} else {
		log.Info("no matching bills") // normal outcome, not an error
	}

	if crawlID != "" {
		if err := o.log.CompleteCrawl(ctx, crawlID, len(result.Records), artifact); err != nil {
			log.Error("failed to record crawl completion", zap.Error(err))
		}
	}
	return artifact, len(result.Records), nil
}

// merge consolidates this run's artifacts. Merge failure is reported,
// never fatal to the run.
func (o *Orchestrator) merge(rep *Report, artifacts []string) {
	log := zap.L().With(zap.String("component", "orchestrator"))

	if len(artifacts) == 0 {
		log.Info("nothing to merge")
		return
	}

	merged, err := report.MergeFiles(o.cfg.OutputDir, artifacts, o.now())
	if err != nil {
		log.Error("merge failed", zap.Error(err))
		return
	}
	rep.Merged = len(merged.Records)
	rep.Artifact = merged.Path
}

func (o *Orchestrator) pause(ctx context.Context) {
	t := time.NewTimer(o.cfg.Pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
