package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaieval/internal/report"
)

// reportCmd turns report cards into a score table.
var reportCmd = &cobra.Command{
	Use:   "report <input_file> <output_file>",
	Short: "Write the judge's scores as CSV or XLSX",
	Long: `Reads the report cards written by evaluate and writes one row per file
with each score and the average of the four numeric scores. The format
follows the output file's extension (.csv or .xlsx).`,
	Args: cobra.ExactArgs(2),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	inputFile, outputFile := args[0], args[1]

	cards, err := report.LoadCards(inputFile)
	if err != nil {
		return fmt.Errorf("failed to load evaluations: %w", err)
	}
	if err := report.Write(outputFile, cards); err != nil {
		return err
	}
	logger.Info("Wrote report", zap.String("file", outputFile), zap.Int("rows", len(cards)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(cards), outputFile)
	return nil
}
