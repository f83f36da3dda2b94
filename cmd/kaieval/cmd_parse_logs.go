package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaieval/internal/kailogs"
)

// parseLogsCmd walks a log tree and writes one record per attempt.
var parseLogsCmd = &cobra.Command{
	Use:   "parse-logs <input_dir> <output_file>",
	Short: "Collect assistant results and their metadata from a log tree",
	Long: `Walks input_dir for result files, decodes each attempt's model, app,
source file, batch mode and timestamp from its path (or from a manifest next
to it), pairs it with the prompt_vars.json sidecar and splits the result into
its sections. Writes the records as a YAML list.`,
	Args: cobra.ExactArgs(2),
	RunE: runParseLogs,
}

func runParseLogs(cmd *cobra.Command, args []string) error {
	inputDir, outputFile := args[0], args[1]
	if info, err := os.Stat(inputDir); err != nil {
		return fmt.Errorf("input directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("input directory: %s is not a directory", inputDir)
	}

	resolver := kailogs.NewResolver(kailogs.Options{
		Anchor:       cfg.Logs.Anchor,
		ResultFile:   cfg.Logs.ResultFile,
		MetadataFile: cfg.Logs.MetadataFile,
		ManifestFile: cfg.Logs.ManifestFile,
	})
	records, sum := kailogs.Collect(resolver.Walk(inputDir))
	if records == nil {
		records = []kailogs.Record{}
	}

	reasons := make([]string, 0, len(sum.Skipped))
	for r := range sum.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		logger.Info("Skipped result files",
			zap.String("reason", r),
			zap.Int("count", sum.Skipped[kailogs.SkipReason(r)]))
	}

	if err := writeYAML(outputFile, records); err != nil {
		return err
	}
	logger.Info("Wrote records", zap.String("file", outputFile), zap.Int("records", sum.Records))
	fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d of %d result files into %s\n", sum.Records, sum.Leaves, outputFile)
	return nil
}
