// Package main provides the varsift command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/varsift/internal/config"
	"github.com/inodb/varsift/internal/plugin"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors caused by bad command-line usage.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// app holds state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	plugins *plugin.Registry

	configPath string
	dbPath     string
	driver     string
	logLevel   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "varsift",
		Short: "Import and explore annotated variant files",
		Long: `varsift loads VCF files annotated by SnpEff or VEP, and MAF files, into a
project database, attaches pedigree information to samples and lets you filter
variants and save selections.`,
		Example: `  varsift --db project.duckdb import sample.snpeff.vcf.gz
  varsift --db project.duckdb pedigree family.tfam
  varsift --db project.duckdb variants --gene KRAS --impact MODERATE
  varsift --db project.duckdb selections create kras --gene KRAS`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.varsift.yaml)")
	pf.StringVar(&a.dbPath, "db", "", "project database file (overrides store.path)")
	pf.StringVar(&a.driver, "driver", "", "database engine: duckdb or sqlite3 (overrides store.driver)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides log.level)")

	root.AddCommand(
		newImportCmd(a),
		newPedigreeCmd(a),
		newFieldsCmd(a),
		newSamplesCmd(a),
		newSelectionsCmd(a),
		newVariantsCmd(a),
		newInfoCmd(a),
		newShowCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger and plugin registry.
func (a *app) setup() error {
	a.v = config.NewViper(a.configPath)
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return usageError{err}
	}
	a.logger = logger

	a.plugins = plugin.NewRegistry()
	a.plugins.SetLogger(logger)
	return plugin.RegisterBuiltins(a.plugins)
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "varsift version %s (%s) built %s\n", version, commit, date)
		},
	}
}
