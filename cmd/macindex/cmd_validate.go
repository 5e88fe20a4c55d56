package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/macrolab/macindex/internal/backtest"
	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		seriesPath string
		threshold  float64
		windowDays int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Score a MAC series against the labeled crisis table",
		Long: `Checks whether the MAC series dropped below the warning threshold
inside the warning window before each labeled crisis, and reports the
true-positive rate, lead times and false-positive rate. Reads an existing
series.jsonl when --series is given, otherwise the one in the configured
output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootFlags.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("warning-threshold") {
				cfg.WarningThreshold = threshold
			}
			if cmd.Flags().Changed("warning-window") {
				cfg.WarningWindowDays = windowDays
			}

			path := seriesPath
			if path == "" {
				path = filepath.Join(cfg.OutputDir, "series.jsonl")
			}
			rows, err := backtest.ReadJSONL(path)
			if err != nil {
				return err
			}

			events, err := validate.LoadEvents(cfg.Tables.Crises)
			if err != nil {
				return err
			}

			validator, err := validate.NewValidator(cfg.WarningThreshold, cfg.WarningWindowDays)
			if err != nil {
				return err
			}
			metrics := validator.Validate(rows, events)

			if err := writeValidation(cfg.OutputDir, metrics); err != nil {
				return err
			}
			printValidation(cmd, rows, metrics)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&seriesPath, "series", "", "path to a series.jsonl artifact")
	fs.Float64Var(&threshold, "warning-threshold", 0.35, "score at or below which a row counts as a warning")
	fs.IntVar(&windowDays, "warning-window", 90, "days before an event start in which a warning counts as detection")
	return cmd
}

func writeValidation(outputDir string, metrics validate.Metrics) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "validation.json"), data, 0o644)
}

func printValidation(cmd *cobra.Command, rows []composite.Row, m validate.Metrics) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "series rows:        %d\n", len(rows))
	fmt.Fprintf(out, "warning threshold:  %.2f (window %d days)\n", m.WarningThreshold, m.WarningWindowDays)
	fmt.Fprintf(out, "crises detected:    %d/%d (TPR %.1f%%)\n", m.DetectedEvents, m.TotalEvents, m.TruePositiveRate*100)
	fmt.Fprintf(out, "mean lead time:     %.0f days\n", m.MeanLeadTimeDays)
	fmt.Fprintf(out, "warning points:     %d (%d false positives, FPR %.1f%%)\n",
		m.WarningPoints, m.FalsePositives, m.FalsePositiveRate*100)
	fmt.Fprintln(out)
	for _, ev := range m.PerEvent {
		mark := "miss"
		lead := ""
		if ev.Detected {
			mark = "hit "
			lead = fmt.Sprintf("  lead %3dd (first warning %s)",
				ev.LeadTimeDays, ev.WarningDate.Format("2006-01-02"))
		}
		fmt.Fprintf(out, "  [%s] %-18s %s  %-8s%s\n",
			mark, ev.Name, ev.Start.Format("2006-01-02"), ev.Severity, lead)
	}
}
