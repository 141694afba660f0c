package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/pipeline"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Audit several sites concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		urls := args
		if batchFile != "" {
			fileURLs, err := readURLFile(batchFile)
			if err != nil {
				return err
			}
			urls = append(urls, fileURLs...)
		}
		if len(urls) == 0 {
			return eris.New("no URLs given; pass them as arguments or via --file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p := pipeline.New(cfg, st, metrics.Nop())
		result, err := p.RunBatch(ctx, urls, batchConcurrency, pipeline.AuditRequest{UseCache: true})
		if err != nil {
			return eris.Wrap(err, "batch")
		}

		for _, item := range result.Items {
			if item.Err != nil {
				fmt.Printf("FAIL  %-40s %v\n", item.URL, item.Err)
				continue
			}
			scoreText := "-"
			if item.Result.Score != nil {
				scoreText = fmt.Sprintf("%.1f %s", item.Result.Score.TotalScore, item.Result.Score.Grade)
			}
			fmt.Printf("OK    %-40s %s\n", item.URL, scoreText)
		}
		fmt.Printf("\n%d succeeded, %d failed in %s\n",
			result.Succeeded, result.Failed, result.Elapsed.Round(time.Second))
		return nil
	},
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open url file")
	}
	defer f.Close() //nolint:errcheck

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(scanner.Err(), "read url file")
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one URL per line")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "concurrent site audits")
	rootCmd.AddCommand(batchCmd)
}
