// s3sel runs S3 Select style SQL over CSV, JSON and Parquet files
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vegasq/s3sel/internal/cli"
	"github.com/vegasq/s3sel/internal/config"
	"github.com/vegasq/s3sel/internal/logger"
	"github.com/vegasq/s3sel/query"
)

var version = "0.1.0"

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"input-format":  "input.format",
	"delimiter":     "input.delimiter",
	"comment":       "input.comment",
	"header":        "input.header",
	"compression":   "input.compression",
	"format":        "output.format",
	"out-delimiter": "output.delimiter",
	"out-header":    "output.header",
	"max-width":     "output.max_width",
	"sanitize":      "output.sanitize_formulas",
	"max-errors":    "query.max_row_errors",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-output":    "log.output",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// app carries the state shared by the commands of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "s3sel",
		Short: "Run SQL over CSV, JSON and Parquet files",
		Long: `s3sel evaluates S3 Select style queries over local files.

Query a CSV file with a header row:
  s3sel query --header use -q "select name, age from data.csv where age > 30"

Aggregate over stdin:
  cat data.csv | s3sel query -q "select count(*), avg(_3) from s3object"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	a.addConfigFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "s3sel %s\n", version)
		},
	})

	queryCmd := &cobra.Command{
		Use:   "query -q <sql> [file]",
		Short: "Run one query; reads the FROM target, the file argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runQuery,
	}
	queryCmd.Flags().StringP("query", "q", "", "SQL query")
	queryCmd.Flags().Bool("stats", false, "print row statistics to stderr")
	_ = queryCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(queryCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell [file]",
		Short: "Start an interactive query shell",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runShell,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema <file>",
		Short: "Describe the columns of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return cli.NewRunner(cfg, log, cmd.OutOrStdout()).Schema(args[0])
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "functions",
		Short: "List builtin functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewRunner(nil, logger.NewNop(), cmd.OutOrStdout()).Functions()
		},
	})

	return rootCmd
}

func (a *app) addConfigFlags(fs *pflag.FlagSet) {
	fs.String("input-format", "auto", "input format: auto, csv, json, parquet")
	fs.StringP("delimiter", "d", ",", "input field delimiter")
	fs.String("comment", "", "input comment character")
	fs.String("header", "none", "CSV header mode: none, use, ignore")
	fs.String("compression", "auto", "input compression: auto, none, gzip, bzip2, zstd, lz4, snappy, brotli")
	fs.StringP("format", "f", "csv", "output format: csv, json, table")
	fs.String("out-delimiter", ",", "output field delimiter")
	fs.Bool("out-header", false, "write a header row")
	fs.Int("max-width", 40, "table cell width (0 = unlimited)")
	fs.Bool("sanitize", false, "escape spreadsheet formulas in CSV output")
	fs.Int("max-errors", query.DefaultMaxRowErrors, "skipped rows tolerated before failing (-1 = unlimited)")
	fs.String("log-level", "warn", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text, json")
	fs.String("log-output", "stderr", "log output: stderr, stdout or a file path")

	for flag, key := range flagKeys {
		_ = a.v.BindPFlag(key, fs.Lookup(flag))
	}
}

func (a *app) setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWith(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	log.Debug("configuration loaded",
		"input_format", cfg.Input.Format,
		"header", cfg.Input.Header,
		"output_format", cfg.Output.Format,
	)
	return cfg, log, nil
}

func (a *app) runQuery(cmd *cobra.Command, args []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sql, _ := cmd.Flags().GetString("query")
	showStats, _ := cmd.Flags().GetBool("stats")
	var input string
	if len(args) > 0 {
		input = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stats, err := cli.NewRunner(cfg, log, cmd.OutOrStdout()).Run(ctx, sql, input)
	if showStats {
		fmt.Fprintf(cmd.ErrOrStderr(), "rows read: %d, matched: %d, skipped: %d, emitted: %d, time: %s\n",
			stats.RowsRead, stats.RowsMatched, stats.RowsSkipped, stats.RowsEmitted, stats.Duration)
	}
	return err
}

func (a *app) runShell(cmd *cobra.Command, args []string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var input string
	if len(args) > 0 {
		input = args[0]
	}
	log.Info("starting shell", "version", version, "input", input)
	return cli.NewShell(cfg, log, input).Run(cmd.Context())
}

// exitCode is 2 for queries that failed to compile and 1 otherwise
func exitCode(err error) int {
	var perr *query.ParseError
	if errors.As(err, &perr) || errors.Is(err, query.ErrUnknownFunction) {
		return 2
	}
	return 1
}
