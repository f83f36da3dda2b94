package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"kaieval/internal/config"
	"kaieval/internal/judge"
	"kaieval/internal/kailogs"
)

var (
	evalLanguage string
	evalSource   string
	evalTarget   string
)

// newJudgeModel builds the judge from config. Replaced in tests.
var newJudgeModel = func(ctx context.Context, c *config.Config) (judge.Model, error) {
	if err := c.ValidateJudge(); err != nil {
		return nil, err
	}
	return judge.NewGeminiModel(ctx, c.Judge.APIKey, c.Judge.Model)
}

// evaluateCmd grades every parsed record with the judge model.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <input_file> <output_file>",
	Short: "Grade each fix with an LLM judge",
	Long: `Reads the records written by parse-logs, sends every fix that has both a
reasoning and an updated file to the judge model, and writes the resulting
report cards as a YAML list. Records without a fix and failed reviews are
logged and left out.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	inputFile, outputFile := args[0], args[1]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	var records []kailogs.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse records %s: %w", inputFile, err)
	}

	model, err := newJudgeModel(ctx, cfg)
	if err != nil {
		return err
	}

	defaults := judge.Defaults{
		Language: firstNonEmpty(evalLanguage, cfg.Judge.Language),
		Source:   firstNonEmpty(evalSource, cfg.Judge.Source),
		Target:   firstNonEmpty(evalTarget, cfg.Judge.Target),
	}
	tasks := make([]judge.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, judge.TaskFromRecord(r, defaults))
	}

	results := judge.NewEvaluator(model, cfg.Judge.Concurrency).EvaluateAll(ctx, tasks)
	var skipped, failed int
	for _, r := range results {
		switch {
		case r.Skipped():
			skipped++
			logger.Info("No fix for file", zap.String("file", r.Filename))
		case r.Err != nil:
			failed++
			logger.Warn("Couldn't evaluate response for file", zap.String("file", r.Filename), zap.Error(r.Err))
		}
	}

	cards := judge.Cards(results)
	if cards == nil {
		cards = []judge.ReportCard{}
	}
	if err := writeYAML(outputFile, cards); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Evaluated %d of %d records (%d without a fix, %d failed) into %s\n",
		len(cards), len(records), skipped, failed, outputFile)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
