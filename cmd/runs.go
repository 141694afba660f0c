package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/pipeline"
	"github.com/findablehq/findable-cli/internal/score"
	"github.com/findablehq/findable-cli/internal/store"
)

var (
	runsSite   string
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List audit runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			SiteID: runsSite,
			Status: model.RunStatus(runsStatus),
			Limit:  runsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list runs")
		}
		fmt.Print(pipeline.FormatRunList(runs))
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its score math",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "get run")
		}

		if showJSON, _ := cmd.Flags().GetBool("json"); showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		fmt.Printf("Run:     %s\n", run.ID)
		fmt.Printf("Site:    %s\n", run.SiteID)
		fmt.Printf("Type:    %s\n", run.RunType)
		fmt.Printf("Status:  %s\n", run.Status)
		fmt.Printf("Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		if run.CompletedAt != nil {
			fmt.Printf("Done:    %s\n", run.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if run.Error != "" {
			fmt.Printf("Error:   %s\n", run.Error)
		}
		if run.Score != nil {
			fmt.Printf("\n%s", score.ShowTheMath(run.Score))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsSite, "site", "", "filter by site id")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by run status")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum rows")
	runsShowCmd.Flags().Bool("json", false, "emit the run as JSON")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
