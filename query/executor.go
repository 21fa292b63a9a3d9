package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxRowErrors is the number of skipped rows tolerated before a
// query is aborted
const DefaultMaxRowErrors = 100

// ErrTooManyRowErrors is returned when more rows failed than MaxRowErrors
var ErrTooManyRowErrors = errors.New("too many row errors")

// Row is one input record. Sources that know their column types fill
// Fields; text sources fill Tokens.
type Row struct {
	Tokens []string
	Fields []any
}

// RowSource produces input rows. Next returns io.EOF after the last row.
type RowSource interface {
	// Columns returns the schema column names, or nil when the source has
	// no header.
	Columns() []string
	Next() (Row, error)
}

// RowSink receives output rows
type RowSink interface {
	WriteHeader(names []string) error
	WriteRow(values []Value) error
}

// ExecOptions configures Execute
type ExecOptions struct {
	// MaxRowErrors bounds recoverable row errors; 0 means
	// DefaultMaxRowErrors and a negative value means no bound.
	MaxRowErrors int
	Logger       *zap.Logger
}

// Stats summarises one execution
type Stats struct {
	QueryID     string
	RowsRead    int64
	RowsMatched int64
	RowsSkipped int64
	// InputsRejected counts aggregate inputs left out of accumulated rows
	InputsRejected int64
	RowsEmitted    int64
	Duration       time.Duration
}

// executor drives one query over one source
type executor struct {
	q      *Query
	sink   RowSink
	log    *zap.Logger
	stats  Stats
	header bool
}

// Execute feeds every row of src through q and writes the results to sink.
// Rows failing with a recoverable error are logged and skipped; a fatal
// error, a failing source or sink, or context cancellation stops the run.
func Execute(ctx context.Context, q *Query, src RowSource, sink RowSink, opts ExecOptions) (Stats, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxErrors := opts.MaxRowErrors
	if maxErrors == 0 {
		maxErrors = DefaultMaxRowErrors
	}

	e := &executor{q: q, sink: sink}
	e.stats.QueryID = uuid.NewString()
	e.log = log.With(zap.String("query_id", e.stats.QueryID))
	e.log.Debug("executing query",
		zap.String("query", q.Text()),
		zap.Bool("aggregate", q.IsAggregate()),
		zap.Int("nodes", q.NodeCount()))

	err := e.run(ctx, src, maxErrors)
	e.stats.Duration = time.Since(start)

	fields := []zap.Field{
		zap.Int64("rows_read", e.stats.RowsRead),
		zap.Int64("rows_matched", e.stats.RowsMatched),
		zap.Int64("rows_skipped", e.stats.RowsSkipped),
		zap.Int64("inputs_rejected", e.stats.InputsRejected),
		zap.Int64("rows_emitted", e.stats.RowsEmitted),
		zap.Duration("duration", e.stats.Duration),
	}
	if err != nil {
		e.log.Error("query failed", append(fields, zap.Error(err))...)
		return e.stats, err
	}
	e.log.Info("query finished", fields...)
	return e.stats, nil
}

func (e *executor) run(ctx context.Context, src RowSource, maxErrors int) error {
	if cols := src.Columns(); cols != nil {
		if err := e.q.Bind(cols); err != nil {
			return err
		}
	}
	limit, hasLimit := e.q.Limit()

	for !hasLimit || e.stats.RowsEmitted < limit || e.q.IsAggregate() {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row %d: %w", e.stats.RowsRead+1, err)
		}
		e.stats.RowsRead++

		if row.Fields != nil {
			e.q.UpdateRecord(row.Fields)
		} else {
			e.q.UpdateRow(row.Tokens)
		}

		out, err := e.q.EvaluateRow()
		if err != nil {
			if IsFatal(err) {
				return err
			}
			e.stats.RowsSkipped++
			e.log.Warn("skipping row", zap.Int64("row", e.stats.RowsRead), zap.Error(err))
			if maxErrors > 0 && e.stats.RowsSkipped > int64(maxErrors) {
				return fmt.Errorf("%w: %d rows skipped (max %d), last: %w", ErrTooManyRowErrors, e.stats.RowsSkipped, maxErrors, err)
			}
			continue
		}

		switch out.Kind {
		case OutcomeProjected:
			e.stats.RowsMatched++
			if err := e.emit(out.Values); err != nil {
				return err
			}
		case OutcomeAccumulated:
			e.stats.RowsMatched++
			for _, rerr := range out.Rejected {
				e.stats.InputsRejected++
				e.log.Warn("aggregate input skipped", zap.Int64("row", e.stats.RowsRead), zap.Error(rerr))
			}
		}
	}

	out, err := e.q.Finish()
	if err != nil {
		return err
	}
	if out.HasValues() && (!hasLimit || limit > 0) {
		return e.emit(out.Values)
	}
	return nil
}

func (e *executor) emit(values []Value) error {
	if !e.header {
		e.header = true
		if err := e.sink.WriteHeader(e.q.ColumnNames()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := e.sink.WriteRow(values); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	e.stats.RowsEmitted++
	return nil
}
