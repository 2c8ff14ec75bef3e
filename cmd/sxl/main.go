// cmd/sxl/main.go: command-line front end for spacetime
//
// Usage:
//
//	sxl search minkowski --tag flat
//	sxl report "Schwarzschild metric" --tensor "Ricci tensor"
//	sxl scalar "Schwarzschild metric" --kind kretschmann
//	sxl geodesic "Schwarzschild metric" --position 0,10,1.5708,0 --velocity 1,0,0,0 --param M=1
//	sxl serve --addr :8080
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/njchilds90/spacetime/config"
)

var (
	configPath string
	unitsFlag  string
	cfg        config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sxl",
	Short:         "Symbolic curvature tensors for general relativity",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyUnits(&cfg, unitsFlag); err != nil {
			return err
		}
		logger = cfg.Logger(cmd.ErrOrStderr())
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&unitsFlag, "units", "", "unit system: natural or si (overrides the config)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scalarCmd)
	rootCmd.AddCommand(geodesicCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		newPrinter(os.Stderr).errorLine(err)
		os.Exit(1)
	}
}
