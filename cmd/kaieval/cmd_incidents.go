package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaieval/internal/incidents"
	"kaieval/internal/vcs"
)

var incidentsRepo string

// incidentsCmd indexes analysis output by file and attaches git diffs.
var incidentsCmd = &cobra.Command{
	Use:   "incidents <analysis_output> <output_file>",
	Short: "Index Konveyor incidents by file, optionally with git diffs",
	Long: `Reads a Konveyor analysis output (a YAML or JSON list of rulesets), groups
every incident by its file URI and writes the map as YAML. With --repo, files
modified in that git work tree get their uncommitted diff attached.`,
	Args: cobra.ExactArgs(2),
	RunE: runIncidents,
}

func runIncidents(cmd *cobra.Command, args []string) error {
	inputFile, outputFile := args[0], args[1]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	builder := incidents.NewBuilder(incidents.Options{
		ExcludedPrefixes: cfg.Incidents.ExcludedPrefixes,
		ProjectRoot:      cfg.Incidents.ProjectRoot,
	})
	m, stats, err := builder.LoadMap(inputFile)
	if err != nil {
		return fmt.Errorf("failed to index incidents: %w", err)
	}
	reasons := make([]string, 0, len(stats.Skipped))
	for r := range stats.Skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		logger.Debug("Skipped analysis items",
			zap.String("reason", r),
			zap.Int("count", stats.Skipped[incidents.SkipReason(r)]))
	}

	attached := 0
	if incidentsRepo != "" {
		wt, err := vcs.NewGitWorkTree(ctx, incidentsRepo)
		if err != nil {
			return err
		}
		attached, err = incidents.Correlate(ctx, m, wt)
		if err != nil {
			return fmt.Errorf("failed to correlate diffs: %w", err)
		}
	}

	if err := writeYAML(outputFile, m); err != nil {
		return err
	}
	logger.Info("Wrote incident map",
		zap.String("file", outputFile),
		zap.Int("files", len(m)),
		zap.Int("incidents", stats.Indexed),
		zap.Int("diffs", attached))
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d incidents across %d files (%d with diffs) into %s\n",
		stats.Indexed, len(m), attached, outputFile)
	return nil
}
