package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bill-tracker/internal/report"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-jurisdiction spreadsheets",
	Long: `Merge every per-jurisdiction spreadsheet in the output
directory into one consolidated workbook, deduplicated by bill link and
sorted by state and bill number.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Run.OutputDir
		}

		result, err := report.MergeDir(dir, time.Now())
		if err != nil {
			if eris.Is(err, report.ErrNothingToMerge) {
				fmt.Println("Nothing to merge")
				return nil
			}
			return eris.Wrap(err, "merge")
		}

		fmt.Printf("Merged %d artifacts (%d skipped): %d bills, %d duplicates removed\n",
			result.Inputs, result.Skipped, len(result.Records), result.Duplicates)
		fmt.Printf("Wrote %s\n", result.Path)
		return nil
	},
}

func init() {
	mergeCmd.Flags().String("dir", "", "artifact directory (defaults to run.output_dir)")
	rootCmd.AddCommand(mergeCmd)
}
