package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bill-tracker/internal/crawler"
	"github.com/sells-group/bill-tracker/internal/model"
	"github.com/sells-group/bill-tracker/internal/orchestrator"
	"github.com/sells-group/bill-tracker/internal/runlog"
	"github.com/sells-group/bill-tracker/pkg/openstates"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl jurisdictions now",
	Long: `Crawl one or more jurisdictions immediately and write
per-jurisdiction spreadsheets plus a consolidated merge.

Use --states for a subset (comma-separated codes), or --all for every
known jurisdiction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		codes, err := selectedJurisdictions(cmd)
		if err != nil {
			return err
		}

		runLog, err := runlog.Open(cfg.Run.DBPath)
		if err != nil {
			return err
		}
		defer runLog.Close()

		orch := orchestrator.New(newCrawler(), runLog, orchestratorConfig(codes))

		zap.L().Info("starting crawl", zap.Strings("jurisdictions", codes))
		rep, err := orch.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		printReport(rep)
		return nil
	},
}

func init() {
	crawlCmd.Flags().String("states", "", "comma-separated jurisdiction codes (e.g., CA,TX)")
	crawlCmd.Flags().Bool("all", false, "crawl every known jurisdiction")
	rootCmd.AddCommand(crawlCmd)
}

func selectedJurisdictions(cmd *cobra.Command) ([]string, error) {
	statesStr, _ := cmd.Flags().GetString("states")
	all, _ := cmd.Flags().GetBool("all")

	if all {
		return model.JurisdictionCodes(), nil
	}
	if statesStr == "" {
		return nil, eris.New("crawl: pass --states or --all")
	}

	var codes []string
	for _, raw := range strings.Split(statesStr, ",") {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if _, ok := model.Jurisdictions[code]; !ok {
			return nil, eris.Errorf("crawl: unknown jurisdiction %q", code)
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, eris.New("crawl: no jurisdictions selected")
	}
	return codes, nil
}

func newCrawler() *crawler.Crawler {
	client := openstates.NewClient(cfg.OpenStates.Key, openstates.WithBaseURL(cfg.OpenStates.BaseURL))
	return crawler.New(client, crawler.Config{
		Keywords:         cfg.Crawl.Keywords,
		RequestDelay:     time.Duration(cfg.Crawl.RequestDelaySecs * float64(time.Second)),
		UpdatedSinceDays: cfg.Crawl.UpdatedSinceDays,
		PerPage:          cfg.Crawl.PerPage,
		MaxPages:         cfg.Crawl.MaxPages,
		DefaultYear:      cfg.Crawl.DefaultYear,
	})
}

func orchestratorConfig(codes []string) orchestrator.Config {
	return orchestrator.Config{
		Jurisdictions:       codes,
		OutputDir:           cfg.Run.OutputDir,
		Workers:             cfg.Run.Workers,
		JurisdictionTimeout: time.Duration(cfg.Run.JurisdictionTimeout) * time.Minute,
		Pause:               time.Duration(cfg.Run.PauseSecs) * time.Second,
	}
}

func printReport(rep *orchestrator.Report) {
	fmt.Printf("Run %s complete in %s\n", rep.RunID, rep.Elapsed.Round(time.Second))
	fmt.Printf("  Jurisdictions: %d/%d succeeded (%.1f%%)\n",
		rep.Succeeded, rep.Attempted, rep.SuccessRate()*100)
	if len(rep.FailedStates) > 0 {
		fmt.Printf("  Failed: %s\n", strings.Join(rep.FailedStates, ", "))
	}
	fmt.Printf("  Bills extracted: %d\n", rep.TotalBills)
	if rep.Artifact != "" {
		fmt.Printf("  Consolidated: %s (%d bills)\n", rep.Artifact, rep.Merged)
	} else {
		fmt.Println("  Nothing to merge")
	}
}
