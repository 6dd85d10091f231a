package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-ranker/internal/observability"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Preview the aspect weights for a recruiter request",
	Long:  "Runs only the weighting phase for a job and prints the resulting aspect weights and reasoning.",
	RunE:  runWeights,
}

var (
	weightsJobID  string
	weightsQuery  string
	weightsFormat string
)

func init() {
	weightsCmd.Flags().StringVar(&weightsJobID, "job", "", "Job ID (required)")
	weightsCmd.Flags().StringVarP(&weightsQuery, "query", "q", "", "Recruiter request (default \"general analysis\")")
	weightsCmd.Flags().StringVar(&weightsFormat, "format", "text", "Output format: text or json")

	if err := weightsCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}

	rootCmd.AddCommand(weightsCmd)
}

func runWeights(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	return previewWeights(cmd.Context(), a, weightsJobID, weightsQuery, weightsFormat, cmd.OutOrStdout())
}

func previewWeights(ctx context.Context, a *app, jobID, query, format string, out io.Writer) error {
	preview, err := a.engine.PreviewWeights(ctx, jobID, query)
	if err != nil {
		return fmt.Errorf("failed to preview weights for job %s: %w", jobID, err)
	}

	switch format {
	case "json":
		if err := writeJSON(preview, "", out); err != nil {
			return err
		}
		validateOutput(a.logger, "schemas/weight_preview.schema.json", preview)
	case "text":
		observability.NewPrinter(out).PrintWeights(preview)
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
	return nil
}
