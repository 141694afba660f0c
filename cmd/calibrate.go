package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/calibrate"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/store"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Inspect and tune the scoring calibration",
}

var calibrateBiasCmd = &cobra.Command{
	Use:   "bias",
	Short: "Show prediction bias over collected samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		samples, err := st.ListSamples(ctx, store.SampleFilter{})
		if err != nil {
			return eris.Wrap(err, "list samples")
		}
		bias := calibrate.ComputeBias(samples)
		fmt.Printf("Samples:    %d (%d with known outcomes)\n", bias.Samples, bias.Known)
		fmt.Printf("Accuracy:   %.1f%%\n", bias.Accuracy*100)
		fmt.Printf("Optimism:   %.1f%% (predicted answerable, not observed)\n", bias.Optimism*100)
		fmt.Printf("Pessimism:  %.1f%% (predicted unanswerable, observed)\n", bias.Pessimism*100)
		fmt.Printf("TP %d  TN %d  FP %d  FN %d\n", bias.TruePositive, bias.TrueNegative, bias.FalsePositive, bias.FalseNegative)
		return nil
	},
}

var calibrateDriftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Run drift detection and persist new alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		samples, err := st.ListSamples(ctx, store.SampleFilter{})
		if err != nil {
			return eris.Wrap(err, "list samples")
		}

		alerts := calibrate.NewDetector(cfg.Calibrate).Detect(samples, time.Now().UTC())
		for _, a := range alerts {
			if err := st.SaveDriftAlert(ctx, &a); err != nil {
				zap.L().Warn("drift alert save failed", zap.String("metric", a.Metric), zap.Error(err))
			}
			fmt.Printf("DRIFT %-12s baseline %.3f -> window %.3f (magnitude %+.3f over %d samples)\n",
				a.Metric, a.BaselineValue, a.ObservedValue, a.Magnitude, a.WindowSamples)
		}
		if len(alerts) == 0 {
			fmt.Println("no drift detected")
		}
		return nil
	},
}

var calibrateAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List open drift alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		status := model.DriftStatusOpen
		if all, _ := cmd.Flags().GetBool("all"); all {
			status = ""
		}
		alerts, err := st.ListDriftAlerts(ctx, status)
		if err != nil {
			return eris.Wrap(err, "list drift alerts")
		}
		for _, a := range alerts {
			fmt.Printf("%-36s %-12s %-12s %s\n", a.ID, a.Metric, a.Status,
				a.DetectedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var calibrateProposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose recalibrated thresholds as a draft config",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		base, err := st.GetActiveConfig(ctx)
		if err != nil {
			return eris.Wrap(err, "get active config")
		}
		if base == nil {
			def := model.DefaultCalibrationConfig()
			base = &def
		}
		samples, err := st.ListSamples(ctx, store.SampleFilter{})
		if err != nil {
			return eris.Wrap(err, "list samples")
		}

		proposal, err := calibrate.ProposeThresholds(*base, samples, cfg.Calibrate.OptimizeMinSamples, time.Now().UTC())
		if err != nil {
			return eris.Wrap(err, "propose thresholds")
		}
		if err := st.SaveConfig(ctx, &proposal.Draft); err != nil {
			return eris.Wrap(err, "save draft config")
		}

		fmt.Printf("Draft config: %s (%s)\n", proposal.Draft.ID, proposal.Draft.Name)
		fmt.Printf("Thresholds:   fully %.2f  partially %.2f (shift %+.2f)\n",
			proposal.Draft.Thresholds.Fully, proposal.Draft.Thresholds.Partially, proposal.ThresholdShift)
		fmt.Printf("Rationale:    %s\n", proposal.Rationale)
		fmt.Printf("Activate with: findable-cli calibrate activate %s\n", proposal.Draft.ID)
		return nil
	},
}

var calibrateActivateCmd = &cobra.Command{
	Use:   "activate <config-id>",
	Short: "Activate a draft calibration config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ActivateConfig(ctx, args[0]); err != nil {
			return eris.Wrap(err, "activate config")
		}
		fmt.Printf("config %s is now active\n", args[0])
		return nil
	},
}

var calibrateExportCmd = &cobra.Command{
	Use:   "export <path.xlsx>",
	Short: "Export samples and bias summary to a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		samples, err := st.ListSamples(ctx, store.SampleFilter{})
		if err != nil {
			return eris.Wrap(err, "list samples")
		}
		if err := calibrate.ExportWorkbook(args[0], samples); err != nil {
			return eris.Wrap(err, "export workbook")
		}
		fmt.Printf("wrote %d samples to %s\n", len(samples), args[0])
		return nil
	},
}

var calibrateArmCmd = &cobra.Command{
	Use:   "arm <site-id>",
	Short: "Show the experiment arm a site hashes into",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		exp, err := st.GetActiveExperiment(ctx)
		if err != nil {
			return eris.Wrap(err, "get active experiment")
		}
		if exp == nil {
			fmt.Println("no active experiment; all sites use the active config")
			return nil
		}
		arm := calibrate.AssignArm(args[0], exp.TreatmentAllocation)
		fmt.Printf("experiment %s: site %s -> %s\n", exp.Name, args[0], arm)
		return nil
	},
}

func init() {
	calibrateAlertsCmd.Flags().Bool("all", false, "include acknowledged and resolved alerts")
	calibrateCmd.AddCommand(calibrateBiasCmd, calibrateDriftCmd, calibrateAlertsCmd,
		calibrateProposeCmd, calibrateActivateCmd, calibrateExportCmd, calibrateArmCmd)
	rootCmd.AddCommand(calibrateCmd)
}
