package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/calibrate"
	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/pipeline"
	"github.com/findablehq/findable-cli/internal/replay"
	"github.com/findablehq/findable-cli/internal/validate"
)

var (
	validateURL      string
	validateName     string
	validateCassette string
	validateModel    string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit a site and collect ground truth for calibration",
	Long:  "Runs a validation audit, replays every simulated question against the recorded answer-engine cassette, and appends the resulting calibration samples.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cassettePath := validateCassette
		if cassettePath == "" {
			cassettePath = filepath.Join(cfg.Replay.CassetteDir, "answers.yaml")
		}
		cassette, err := replay.OpenLLMCassette(cassettePath, 0.6)
		if err != nil {
			return eris.Wrap(err, "open answer cassette")
		}

		p := pipeline.New(cfg, st, metrics.Nop())
		result, err := p.Run(ctx, pipeline.AuditRequest{
			URL:      validateURL,
			SiteName: validateName,
			RunType:  model.RunTypeValidation,
			UseCache: true,
		})
		if err != nil {
			return eris.Wrap(err, "validation audit")
		}
		if len(result.Questions) == 0 {
			return eris.New("audit produced no question results to validate")
		}

		req := validate.GroundTruthRequest{
			SiteID:      result.Site.ID,
			RunID:       result.Run.ID,
			Domain:      result.Site.Domain,
			CompanyName: result.Site.Name,
			Results:     result.Questions,
		}
		if exp, err := st.GetActiveExperiment(ctx); err == nil && exp != nil {
			req.ExperimentID = exp.ID
			req.Arm = calibrate.AssignArm(result.Site.ID, exp.TreatmentAllocation)
		}

		collector := validate.NewCollector(
			validate.NewCassetteEngine(cassette, validateModel),
			validate.WithConcurrency(cfg.Validation.MaxConcurrentQueries))
		samples, err := collector.CollectGroundTruth(ctx, req)
		if err != nil {
			return eris.Wrap(err, "collect ground truth")
		}
		if err := st.AppendSamples(ctx, samples); err != nil {
			return eris.Wrap(err, "append samples")
		}

		bias := calibrate.ComputeBias(samples)
		fmt.Printf("collected %d samples (%d known outcomes, %.1f%% accurate)\n",
			bias.Samples, bias.Known, bias.Accuracy*100)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateURL, "url", "", "site URL to validate (required)")
	validateCmd.Flags().StringVar(&validateName, "name", "", "company name override")
	validateCmd.Flags().StringVar(&validateCassette, "cassette", "", "answer cassette path (default from replay config)")
	validateCmd.Flags().StringVar(&validateModel, "model", "recorded", "engine model name for cassette keys")
	_ = validateCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(validateCmd)
}
