package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/bill-tracker/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded crawl runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runLog, err := runlog.Open(cfg.Run.DBPath)
		if err != nil {
			return err
		}
		defer runLog.Close()

		entries, err := runLog.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tOK\tFAILED\tBILLS\tFAILED STATES")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\n",
				e.ID[:8],
				e.Status,
				e.StartedAt.Format("2006-01-02 15:04"),
				e.Succeeded, e.Attempted,
				e.Failed,
				e.TotalBills,
				strings.Join(e.FailedStates, ","),
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
