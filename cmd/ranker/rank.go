package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/observability"
	"github.com/jonathan/candidate-ranker/internal/pipeline"
	"github.com/jonathan/candidate-ranker/internal/schemas"
	"github.com/jonathan/candidate-ranker/internal/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the candidates of a job",
	Long:  "Weights the aspects for a recruiter request, scores every candidate of the job against them and writes the AnalysisReport JSON.",
	RunE:  runRank,
}

var (
	rankJobID   string
	rankQuery   string
	rankHistory []string
	rankOutput  string
	rankVerbose bool
)

func init() {
	rankCmd.Flags().StringVar(&rankJobID, "job", "", "Job ID to rank candidates for (required)")
	rankCmd.Flags().StringVarP(&rankQuery, "query", "q", "", "Recruiter request")
	rankCmd.Flags().StringArrayVar(&rankHistory, "history", nil, "Earlier recruiter requests, oldest first (repeatable)")
	rankCmd.Flags().StringVarP(&rankOutput, "out", "o", "", "Path to output AnalysisReport JSON file (default stdout)")
	rankCmd.Flags().BoolVarP(&rankVerbose, "verbose", "v", false, "Print a readable summary to stderr")

	if err := rankCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
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

	var summary io.Writer
	if rankVerbose {
		summary = cmd.ErrOrStderr()
	}
	return rankJob(cmd.Context(), a, pipeline.RankRequest{
		JobID:   rankJobID,
		Query:   rankQuery,
		History: types.Conversation{Turns: rankHistory},
	}, rankOutput, cmd.OutOrStdout(), summary)
}

// rankJob runs one ranking request and writes the report to outPath, or to
// stdout when outPath is empty. summary, when non-nil, receives the
// human-readable rendition.
func rankJob(ctx context.Context, a *app, req pipeline.RankRequest, outPath string, stdout, summary io.Writer) error {
	report, err := a.engine.Rank(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to rank job %s: %w", req.JobID, err)
	}

	if err := writeJSON(report, outPath, stdout); err != nil {
		return err
	}

	// Output validation is a safety check, not a requirement
	validateOutput(a.logger, "schemas/analysis_report.schema.json", report)

	if summary != nil {
		p := observability.NewPrinter(summary)
		p.PrintRanking(report)
		p.PrintExplanation(report)
	}
	return nil
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func writeJSON(v any, path string, stdout io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	// Ensure output directory exists
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}

// validateOutput checks v against a repo schema when the schema can be found
// and logs a warning on mismatch.
func validateOutput(logger *zap.Logger, schemaPath string, v any) {
	resolved := schemas.ResolveSchemaPath(schemaPath)
	if resolved == "" {
		logger.Debug("output schema not found, skipping validation", zap.String("schema", schemaPath))
		return
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		logger.Warn("failed to read output schema", zap.String("schema", resolved), zap.Error(err))
		return
	}
	if err := schemas.ValidateValue(string(content), v); err != nil {
		logger.Warn("output validation failed", zap.String("schema", schemaPath), zap.Error(err))
	}
}
