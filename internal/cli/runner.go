// Package cli runs queries for the s3sel commands and the interactive shell
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/s3sel/internal/config"
	"github.com/vegasq/s3sel/internal/logger"
	"github.com/vegasq/s3sel/output"
	"github.com/vegasq/s3sel/query"
	"github.com/vegasq/s3sel/reader"
)

// Runner executes queries with one configuration
type Runner struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

// NewRunner creates a Runner writing results to out
func NewRunner(cfg *config.Config, log *logger.Logger, out io.Writer) *Runner {
	return &Runner{cfg: cfg, log: log, out: out}
}

// ResolveInput picks the input for a query: an explicit path wins, then the
// FROM target unless it names the document itself (s3object) or stdin.
func ResolveInput(path string, q *query.Query) string {
	if path != "" {
		return path
	}
	switch src := q.Source(); strings.ToLower(src) {
	case "", "s3object", "stdin", "-":
		return "-"
	default:
		return src
	}
}

// Run parses and executes sql against input ("" to use the FROM target)
func (r *Runner) Run(ctx context.Context, sql, input string) (query.Stats, error) {
	q, err := query.Parse(sql, query.WithArenaLimits(r.cfg.Query.ArenaMaxNodes, r.cfg.Query.ArenaMaxBytes))
	if err != nil {
		return query.Stats{}, err
	}
	defer q.Release()

	input = ResolveInput(input, q)
	readerOpts, err := r.cfg.ReaderOptions()
	if err != nil {
		return query.Stats{}, err
	}
	src, err := reader.Open(input, readerOpts)
	if err != nil {
		return query.Stats{}, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.log.Warn("failed to close input", "input", input, "error", err)
		}
	}()

	outOpts, err := r.cfg.OutputOptions()
	if err != nil {
		return query.Stats{}, err
	}
	f, err := output.New(r.cfg.Output.Format, r.out, outOpts)
	if err != nil {
		return query.Stats{}, err
	}

	r.log.Debug("running query", "input", input, "output_format", r.cfg.Output.Format)
	stats, err := query.Execute(ctx, q, src, f, query.ExecOptions{
		MaxRowErrors: r.cfg.Query.MaxRowErrors,
		Logger:       r.log.Zap().With(zap.String("input", input)),
	})
	if flushErr := f.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return stats, err
}

// Schema writes the columns of input. Parquet files are described with
// their types; text inputs list the columns their header provides.
func (r *Runner) Schema(input string) error {
	readerOpts, err := r.cfg.ReaderOptions()
	if err != nil {
		return err
	}
	outOpts, err := r.cfg.OutputOptions()
	if err != nil {
		return err
	}
	outOpts.Header = true
	f, err := output.New(r.cfg.Output.Format, r.out, outOpts)
	if err != nil {
		return err
	}

	src, err := reader.Open(input, readerOpts)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if pq, ok := src.(*reader.ParquetSource); ok {
		if err := f.WriteHeader([]string{"name", "type", "physical_type", "logical_type", "required", "repeated"}); err != nil {
			return err
		}
		for _, info := range pq.Schema() {
			err := f.WriteRow([]query.Value{
				query.TextValue(info.Name),
				query.TextValue(info.Type),
				query.TextValue(info.PhysicalType),
				query.TextValue(info.LogicalType),
				query.BoolValue(info.Required),
				query.BoolValue(info.Repeated),
			})
			if err != nil {
				return err
			}
		}
		return f.Flush()
	}

	columns := src.Columns()
	if columns == nil {
		return fmt.Errorf("%s has no header; columns are positional (_1, _2, ...)", input)
	}
	if err := f.WriteHeader([]string{"position", "name"}); err != nil {
		return err
	}
	for i, name := range columns {
		if err := f.WriteRow([]query.Value{query.TextValue("_" + strconv.Itoa(i+1)), query.TextValue(name)}); err != nil {
			return err
		}
	}
	return f.Flush()
}

// Functions writes the builtin function names, one per line
func (r *Runner) Functions() error {
	for _, name := range query.FunctionNames() {
		if _, err := fmt.Fprintln(r.out, name); err != nil {
			return err
		}
	}
	return nil
}
