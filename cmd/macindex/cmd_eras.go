package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/era"
)

func newErasCmd() *cobra.Command {
	var (
		extended   bool
		eraWeights bool
	)

	cmd := &cobra.Command{
		Use:   "eras",
		Short: "Print the resolved era table",
		Long: `Loads and validates the era table, then prints each era with its
effective pillar weights, calibration factor and threshold overrides.
Useful to sanity-check the table before a long backtest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootFlags.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("extended-eras") {
				cfg.ExtendedEras = extended
			}
			if cmd.Flags().Changed("era-weights") {
				cfg.EraWeights = eraWeights
			}

			mode := era.WeightModeEqual
			if cfg.EraWeights {
				mode = era.WeightModeEraSpecific
			}
			resolver, err := era.LoadTable(cfg.Tables.Eras, mode, cfg.ExtendedEras)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "weight mode: %s\n\n", resolver.Mode())
			for _, raw := range resolver.Eras() {
				// Resolve materializes the effective weights for the mode.
				e, err := resolver.Resolve(raw.Start)
				if err != nil {
					return err
				}
				end := "open"
				if !e.End.IsZero() {
					end = e.End.Format("2006-01-02")
				}
				fmt.Fprintf(out, "%s (%s)\n", e.Name, e.ID)
				fmt.Fprintf(out, "  range:       %s .. %s\n", e.Start.Format("2006-01-02"), end)
				fmt.Fprintf(out, "  calibration: %.3f\n", e.CalibrationFactor)
				fmt.Fprintf(out, "  pillars:     %s\n", formatWeights(e))
				if len(e.ThresholdOverrides) > 0 {
					fmt.Fprintf(out, "  overrides:   %s\n", formatOverrides(e.ThresholdOverrides))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&extended, "extended-eras", false, "include pre-modern proxy eras")
	fs.BoolVar(&eraWeights, "era-weights", false, "use per-era pillar weights instead of equal weights")
	return cmd
}

func formatWeights(e *era.Config) string {
	parts := make([]string, 0, len(e.ActivePillars))
	for _, p := range e.ActivePillars {
		parts = append(parts, fmt.Sprintf("%s=%.3f", p, e.Weights[p]))
	}
	return strings.Join(parts, " ")
}

func formatOverrides(overrides map[string]float64) string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, overrides[k]))
	}
	return strings.Join(parts, " ")
}
