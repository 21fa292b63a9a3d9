// Package reader opens input files as row sources for the query engine.
//
// CSV and JSON inputs are streamed, optionally through a decompressor
// chosen by extension or by sniffing the stream. Parquet files are read
// with their column types, so values reach the query as integers, floats,
// booleans and timestamps rather than text.
//
// # Basic Usage
//
//	src, err := reader.Open("data.csv.gz", reader.Options{
//	    CSV: reader.CSVOptions{Header: reader.HeaderUse},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer src.Close()
//
//	stats, err := query.Execute(ctx, q, src, sink, query.ExecOptions{})
//
// # Multi-file Operations
//
// A glob pattern reads every matching file in lexical order. All files
// share the columns of the first one:
//
//	src, err := reader.Open("logs/2024-*.jsonl", reader.Options{})
//
// # Schema Introspection
//
// Parquet leaf columns are named in dot notation (address.street):
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
package reader
