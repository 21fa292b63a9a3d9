// Package query compiles SQL-subset SELECT statements into an arena-backed
// AST and evaluates that tree once per input row.
//
// A statement has the shape
//
//	SELECT projection-list FROM source [alias] [WHERE predicate] [LIMIT n] [;]
//
// # Basic Usage
//
// Parse a query, bind the schema and feed it one row at a time:
//
//	q, err := query.Parse("select _1, upper(_2) from s3object where _3 > 10")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Release()
//
//	for _, tokens := range rows {
//	    q.UpdateRow(tokens)
//	    out, err := q.EvaluateRow()
//	    if err != nil && query.IsFatal(err) {
//	        log.Fatal(err)
//	    }
//	    if out.Kind == query.OutcomeProjected {
//	        fmt.Println(out.Values)
//	    }
//	}
//
// Execute runs the same loop over a RowSource and writes to a RowSink,
// skipping rows with recoverable errors.
//
// # Aggregation
//
// A query whose projections call sum, count, avg, min or max is an
// aggregate query. Each accepted row is accumulated and EvaluateRow reports
// OutcomeAccumulated; Finish returns the single aggregated row once the
// input is exhausted:
//
//	q, _ := query.Parse("select sum(_1), count(*) from s3object")
//	...
//	final, err := q.Finish() // OutcomeEndOfAggregation
//
// Aggregates cannot be nested, mixed with plain row columns in the
// projection, or used in WHERE.
//
// # Columns and Aliases
//
// Columns are referenced by position (_1, _2, ...) or by schema name,
// optionally qualified with the FROM alias (s._1). A projection alias may be
// referenced by other expressions of the same query; its value is computed
// at most once per row. A name that is both a schema column and an alias is
// rejected.
//
// # Supported Operators
//
//   - Arithmetic: +, -, *, /, %, ^
//   - Comparison: =, !=, <>, <, >, <=, >=
//   - Logical: AND, OR, NOT
//   - Special: IN, LIKE [ESCAPE], BETWEEN, IS [NOT] NULL
//   - CASE, CAST(x AS type), EXTRACT(part FROM ts)
//
// # Type System
//
// Values are Integer, Float, Text, Timestamp, Bool, Null or NaN. Raw row
// tokens are typed on read: empty is Null, integer and float syntax are
// numbers, anything else is text. Integer and Float mix as Float. Null and
// NaN propagate through arithmetic and make comparisons false (except !=).
//
// # Error Handling
//
// Every error wraps one of the package sentinels. SeverityOf reports whether
// it is Recoverable (the row is skipped) or Fatal (the query stops).
// Compilation failures are *ParseError values carrying the byte offset.
package query
