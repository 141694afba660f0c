package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/monitoring"
)

var (
	statusHours int
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system health over a lookback window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusHours)
		if err != nil {
			return eris.Wrap(err, "collect status")
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		fmt.Printf("Window:        last %dh (collected %s)\n",
			snap.LookbackHours, snap.CollectedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Runs:          %d total, %d completed, %d partial, %d failed, %d queued, %d active\n",
			snap.RunsTotal, snap.RunsCompleted, snap.RunsPartial, snap.RunsFailed,
			snap.RunsQueued, snap.RunsActive)
		fmt.Printf("Fail rate:     %.1f%%\n", snap.FailRate*100)
		if snap.ScoredRuns > 0 {
			fmt.Printf("Avg score:     %.1f over %d scored runs\n", snap.AvgScore, snap.ScoredRuns)
		}
		fmt.Printf("Samples:       %d (%d known outcomes, %.1f%% accurate)\n",
			snap.Samples, snap.SamplesKnown, snap.SampleAccuracy*100)
		fmt.Printf("Drift alerts:  %d open\n", snap.OpenDriftAlerts)
		if snap.ActiveConfigName != "" {
			fmt.Printf("Active config: %s\n", snap.ActiveConfigName)
		}

		issues := monitoring.Evaluate(snap, monitoring.DefaultThresholds())
		if len(issues) == 0 {
			fmt.Println("\nhealthy")
			return nil
		}
		fmt.Println()
		for _, is := range issues {
			fmt.Printf("[%s] %s: %s\n", is.Severity, is.Check, is.Message)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHours, "hours", 24, "lookback window in hours")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}
