package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect"
	"github.com/tordrt/cfelect/internal/config"
	"github.com/tordrt/cfelect/internal/db"
	"github.com/tordrt/cfelect/internal/formatter"
	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/server"
	"github.com/tordrt/cfelect/internal/stream"
)

// app holds the global flags and the configuration resolved from them
type app struct {
	configPath string
	envFile    string
	catalogURL string
	logLevel   string
	format     string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cfelect",
		Short: "Decide which column families a streaming operation copies",
		Long: `cfelect reads a keyspace schema from a catalog (PostgreSQL, MySQL, SQLite or a YAML file)
and reports which tables and materialized views a streaming operation such as
repair, rebuild or bootstrap streams directly, and whether the primary keys of
the keyspace's views are congruent with their base tables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (YAML, or TOML when it ends in .toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the config (ignored if missing)")
	flags.StringVar(&a.catalogURL, "catalog", "", "Catalog URL: postgres://, mysql://, sqlite:// or file://")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVarP(&a.format, "format", "f", "text", "Output format: text, markdown or json")

	rootCmd.AddCommand(
		a.electCmd(),
		a.explainCmd(),
		a.congruencyCmd(),
		a.operationsCmd(),
		a.reportCmd(),
		a.catalogCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

// setup loads the env file and config, applies flag overrides and initializes logging
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.catalogURL != "" {
		cfg.Catalog.URL = a.catalogURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
	a.cfg = cfg
	return nil
}

func (a *app) options() *cfelect.Options {
	return &cfelect.Options{
		SchemaName:  a.cfg.Catalog.SchemaName,
		CacheTTL:    a.cfg.CacheTTL(),
		Concurrency: a.cfg.Catalog.Concurrency,
	}
}

func (a *app) open(ctx context.Context) (*cfelect.Coordinator, error) {
	if err := a.cfg.RequireCatalog(); err != nil {
		return nil, err
	}
	return cfelect.Open(ctx, a.cfg.Catalog.URL, a.options())
}

func (a *app) formatter(w io.Writer) (formatter.Formatter, error) {
	return formatter.New(a.format, w)
}

func closeCoordinator(coord *cfelect.Coordinator) {
	if err := coord.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close catalog: %v\n", err)
	}
}

func parseOperation(label string) (stream.Operation, error) {
	if label == "" {
		return stream.Other, fmt.Errorf("--operation is required (see 'cfelect operations')")
	}
	return stream.ParseStrict(label)
}

func (a *app) electCmd() *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "elect <keyspace>...",
		Short: "List the tables and views an operation streams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOperation(operation)
			if err != nil {
				return err
			}
			out, err := a.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			coord, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCoordinator(coord)

			explanations, err := coord.ExplainAll(cmd.Context(), args, op)
			if err != nil {
				return err
			}
			for _, exp := range explanations {
				if err := out.FormatElection(exp.Keyspace, op, exp.Elected); err != nil {
					return fmt.Errorf("failed to format output: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "p", "", "Stream operation label, e.g. Repair or \"Bulk Load\"")
	return cmd
}

func (a *app) explainCmd() *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "explain <keyspace>",
		Short: "Show why each view is or is not streamed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOperation(operation)
			if err != nil {
				return err
			}
			out, err := a.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			coord, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCoordinator(coord)

			exp, err := coord.Explain(cmd.Context(), args[0], op)
			if err != nil {
				return err
			}
			return out.FormatExplanation(exp)
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "p", "", "Stream operation label")
	return cmd
}

func (a *app) congruencyCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "congruency <keyspace>",
		Short: "Check whether view primary keys are congruent with their base tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCoordinator(coord)

			if view != "" {
				congruent, err := coord.IsViewCongruentToBase(cmd.Context(), args[0], view)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s.%s congruent: %t\n", args[0], view, congruent)
				return nil
			}

			out, err := a.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			report, err := coord.Congruency(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out.FormatCongruency(report)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "Check a single view")
	return cmd
}

func (a *app) operationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the stream operations and whether they stream every view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return out.FormatOperations(stream.Operations())
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	var operation, outputDir string
	cmd := &cobra.Command{
		Use:   "report [keyspace]...",
		Short: "Write an overview plus one file per keyspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOperation(operation)
			if err != nil {
				return err
			}
			if outputDir == "" {
				return fmt.Errorf("--output-dir is required")
			}
			coord, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCoordinator(coord)

			reports, err := coord.Report(cmd.Context(), args, op)
			if err != nil {
				return err
			}
			if err := formatter.NewMultiFileFormatter(outputDir, a.format).Format(reports); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "p", "", "Stream operation label")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory")
	return cmd
}

func (a *app) catalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage catalog contents",
	}
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "load <schema.yaml>",
		Short: "Write a YAML schema document into the configured database catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireCatalog(); err != nil {
				return err
			}
			snap, err := db.NewFileCatalog(args[0]).Snapshot()
			if err != nil {
				return err
			}
			if err := cfelect.LoadCatalog(cmd.Context(), a.cfg.Catalog.URL, snap, a.options()); err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			logger.L().Info("catalog loaded",
				zap.Strings("keyspaces", snap.KeyspaceNames()), logger.Generation(snap.Generation()))
			return nil
		},
	})
	return catalogCmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve elections and congruency checks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			coord, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer closeCoordinator(coord)

			srv, err := server.New(coord, server.Options{
				Addr:            a.cfg.Server.Addr,
				ReadTimeout:     a.cfg.ReadTimeout(),
				WriteTimeout:    a.cfg.WriteTimeout(),
				ShutdownTimeout: a.cfg.ShutdownTimeout(),
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
