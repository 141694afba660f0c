package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/crawl"
	"github.com/findablehq/findable-cli/internal/extract"
	"github.com/findablehq/findable-cli/internal/simulate"
)

var (
	questionsURL   string
	questionsName  string
	questionsCount int
	questionsJSON  bool
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate the simulated question bank for a site",
	Long:  "Builds the deterministic question bank a simulation would run. Uses a cached crawl for schema- and heading-derived questions when one exists; otherwise only the fixed categories are produced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain, err := crawl.Domain(questionsURL)
		if err != nil {
			return eris.Wrap(err, "parse url")
		}

		sc := simulate.SiteContext{CompanyName: questionsName, Domain: domain}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if entry, err := st.GetCachedCrawl(ctx, domain); err == nil && entry != nil {
			extractor := extract.NewExtractor(cfg.Extract)
			seen := make(map[string]bool)
			for _, page := range entry.Result.Pages {
				ep, err := extractor.Extract(page)
				if err != nil {
					continue
				}
				for _, t := range ep.Metadata.SchemaTypes {
					if !seen[t] {
						seen[t] = true
						sc.SchemaTypes = append(sc.SchemaTypes, t)
					}
				}
				sc.Headings = append(sc.Headings, ep.Metadata.Headings.H2...)
				sc.Headings = append(sc.Headings, ep.Metadata.Headings.H3...)
				if sc.CompanyName == "" {
					sc.CompanyName = ep.Metadata.OGSiteName
				}
			}
		}

		questions := simulate.GenerateQuestions(sc, questionsCount)
		if questionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(questions)
		}
		for _, q := range questions {
			fmt.Printf("%-10s %-11s %-6s %s\n", q.ID, q.Category, q.Difficulty, q.Text)
		}
		return nil
	},
}

func init() {
	questionsCmd.Flags().StringVar(&questionsURL, "url", "", "site URL (required)")
	questionsCmd.Flags().StringVar(&questionsName, "name", "", "company name")
	questionsCmd.Flags().IntVar(&questionsCount, "count", 0, "question count (0 = config default)")
	questionsCmd.Flags().BoolVar(&questionsJSON, "json", false, "emit questions as JSON")
	_ = questionsCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(questionsCmd)
}
