package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootFlags = struct {
	configPath string
	logLevel   string
}{}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   appName,
		Short: "Market Absorption Capacity index engine",
		Long: `macindex computes the Market Absorption Capacity (MAC) index: a
composite 0-1 buffer score built from pillar-grouped financial indicators,
calibrated per historical era, backtested over a century of proxy-stitched
data, and validated against labeled crisis events.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(rootFlags.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", rootFlags.logLevel)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "config/macindex.yaml", "run configuration file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	normalizeFlags(pf)

	root.AddCommand(newBacktestCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newErasCmd())
	root.AddCommand(newSeedCmd())

	return root.ExecuteContext(ctx)
}

// normalizeFlags maps underscores to dashes so --era_weights and
// --era-weights both work.
func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		normalized := make([]rune, 0, len(name))
		for _, r := range name {
			if r == '_' {
				r = '-'
			}
			normalized = append(normalized, r)
		}
		return pflag.NormalizedName(string(normalized))
	})
}
