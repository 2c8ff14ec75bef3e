package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/njchilds90/spacetime/config"
	"github.com/njchilds90/spacetime/field"
	"github.com/njchilds90/spacetime/library"
	"github.com/njchilds90/spacetime/server"
	"github.com/njchilds90/spacetime/symbolic"
	"github.com/njchilds90/spacetime/telemetry"
	"github.com/njchilds90/spacetime/tensor"
	"github.com/njchilds90/spacetime/worldline"
)

func applyUnits(c *config.Config, name string) error {
	switch strings.ToLower(name) {
	case "":
	case "natural":
		c.Units = library.Natural()
	case "si":
		c.Units = library.SI()
	default:
		return fmt.Errorf("unknown unit system %q (want natural or si)", name)
	}
	return nil
}

// buildManifold creates a manifold over a catalog metric and defines every
// tensor set named in tensors, in order.
func buildManifold(ctx context.Context, metric string, tensors []string) (*tensor.Manifold, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	g, err := catalog.Metric(metric, cfg.Units)
	if err != nil {
		return nil, err
	}
	m, err := tensor.NewManifold(g, tensor.WithSettings(cfg.Settings()), tensor.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for _, name := range tensors {
		kinds, err := catalog.Resolve(name)
		if err != nil {
			return nil, err
		}
		if err := field.DefineAll(ctx, m, kinds...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ============================================================
// search
// ============================================================

var (
	searchTags    []string
	searchWithout []string
)

var searchCmd = &cobra.Command{
	Use:   "search TERM...",
	Short: "Search the catalog of coordinates, metrics and tensors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := cfg.Catalog()
		if err != nil {
			return err
		}
		filters := map[string]bool{}
		for _, t := range searchTags {
			filters[t] = true
		}
		for _, t := range searchWithout {
			filters[t] = false
		}
		newPrinter(cmd.OutOrStdout()).hits(catalog.Search(args, filters))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "require a tag")
	searchCmd.Flags().StringSliceVar(&searchWithout, "without", nil, "exclude a tag")
}

// ============================================================
// report
// ============================================================

var (
	reportTensors  []string
	reportShow     string
	reportVariance string
	reportLaTeX    bool
)

var reportCmd = &cobra.Command{
	Use:   "report METRIC",
	Short: "Print the nonzero components of a tensor on a catalog metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := tensor.ParseVariance(reportVariance)
		if err != nil {
			return err
		}
		m, err := buildManifold(cmd.Context(), args[0], reportTensors)
		if err != nil {
			return err
		}
		defer m.Close()
		show := reportShow
		if show == "" {
			defined := m.Tensors()
			if len(defined) == 0 {
				return fmt.Errorf("no tensors defined on %q", args[0])
			}
			show = defined[len(defined)-1]
		}
		show = server.ResolveName(m, show)
		rows, err := server.Report(m, show, v)
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).components(show, v, rows, reportLaTeX)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportTensors, "tensor", []string{"Ricci tensor"}, "tensor or catalog tensor set to define")
	reportCmd.Flags().StringVar(&reportShow, "show", "", "tensor to print (default: the last one defined)")
	reportCmd.Flags().StringVar(&reportVariance, "variance", "co", "co, contra or mixed")
	reportCmd.Flags().BoolVar(&reportLaTeX, "latex", false, "print LaTeX instead of plain expressions")
}

// ============================================================
// scalar
// ============================================================

var scalarKind string

var scalarCmd = &cobra.Command{
	Use:   "scalar METRIC",
	Short: "Print the Ricci or Kretschmann scalar of a catalog metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var tensors []string
		switch scalarKind {
		case "ricci":
			tensors = []string{"Ricci tensor"}
		case "kretschmann":
			tensors = []string{"Riemann tensor"}
		default:
			return fmt.Errorf("unknown scalar %q (want ricci or kretschmann)", scalarKind)
		}
		m, err := buildManifold(cmd.Context(), args[0], tensors)
		if err != nil {
			return err
		}
		defer m.Close()
		var value symbolic.Expr
		if scalarKind == "ricci" {
			value, err = field.RicciScalar(m)
		} else {
			value, err = field.KretschmannScalar(m)
		}
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).value(scalarKind+" scalar", value.String())
		return nil
	},
}

func init() {
	scalarCmd.Flags().StringVar(&scalarKind, "kind", "ricci", "ricci or kretschmann")
}

// ============================================================
// geodesic
// ============================================================

var (
	geoPosition []float64
	geoVelocity []float64
	geoParams   map[string]string
	geoSteps    int
	geoDtau     float64
)

var geodesicCmd = &cobra.Command{
	Use:   "geodesic METRIC",
	Short: "Trace a timelike geodesic on a catalog metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(geoParams)
		if err != nil {
			return err
		}
		m, err := buildManifold(cmd.Context(), args[0], []string{"Christoffel symbols"})
		if err != nil {
			return err
		}
		defer m.Close()
		w, err := worldline.New(m, geoPosition, geoVelocity, params)
		if err != nil {
			return err
		}
		states, err := w.Trace(geoSteps, geoDtau)
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).states(m.Coords().Names(), states)
		return nil
	},
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func init() {
	geodesicCmd.Flags().Float64SliceVar(&geoPosition, "position", nil, "initial coordinates")
	geodesicCmd.Flags().Float64SliceVar(&geoVelocity, "velocity", nil, "initial coordinate velocity dx/dt (the first entry is ignored)")
	geodesicCmd.Flags().StringToStringVar(&geoParams, "param", nil, "numeric values of free symbols, e.g. M=1")
	geodesicCmd.Flags().IntVar(&geoSteps, "steps", 10, "number of steps")
	geodesicCmd.Flags().Float64Var(&geoDtau, "dtau", 0.1, "proper-time step")
	_ = geodesicCmd.MarkFlagRequired("position")
	_ = geodesicCmd.MarkFlagRequired("velocity")
}

// ============================================================
// serve
// ============================================================

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve manifold sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tel, err := telemetry.Init(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
		catalog, err := cfg.Catalog()
		if err != nil {
			return err
		}
		s := server.New(
			server.WithCatalog(catalog),
			server.WithUnits(cfg.Units),
			server.WithNames(cfg.Names),
			server.WithMaxManifolds(cfg.Server.MaxManifolds),
			server.WithMetricsHandler(tel.MetricsHandler()),
			server.WithDebug(cfg.Log.Level == "debug"),
			server.WithLogger(logger),
		)
		return s.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// ============================================================
// config
// ============================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the sxl configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Write the default configuration to PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		if err := config.WriteDefault(args[0]); err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).success("wrote " + args[0])
		return nil
	},
}
