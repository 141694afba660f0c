package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/pipeline"
)

var (
	auditURL     string
	auditName    string
	auditNoCache bool
	auditRefresh bool
	auditJSON    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a full findability audit for one site",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p := pipeline.New(cfg, st, metrics.Nop())
		result, err := p.Run(ctx, pipeline.AuditRequest{
			URL:          auditURL,
			SiteName:     auditName,
			UseCache:     !auditNoCache,
			ForceRefresh: auditRefresh,
		})
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		if auditJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		fmt.Print(pipeline.FormatReport(result))
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditURL, "url", "", "site URL to audit (required)")
	auditCmd.Flags().StringVar(&auditName, "name", "", "company name override")
	auditCmd.Flags().BoolVar(&auditNoCache, "no-cache", false, "bypass the crawl cache")
	auditCmd.Flags().BoolVar(&auditRefresh, "refresh", false, "invalidate any cached crawl first")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "emit the raw result as JSON")
	_ = auditCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(auditCmd)
}
