// Package dapper statically detects which distribution packages a source tree
// depends on. It reads C/C++, Python and CMake sources, extracts dependency
// signals from them, and looks those signals up in local package indexes.
//
// # Pipeline
//
// A scan runs in three steps:
//
//  1. Discover: walk the scan root (or take the single file given) and keep
//     the files some extractor handles.
//
//  2. Extract: parse each file with tree-sitter on a bounded worker pool and
//     pull out header includes, Python imports, CMake remote fetches, and
//     programs started through system/exec/subprocess calls. Results are
//     funneled through a channel into a single aggregator.
//
//  3. Resolve: after every worker has finished, look each distinct token up
//     once. Headers and programs are matched against the Linux file index,
//     Python imports against the PyPI import index. CMake fetches are
//     reported as remote dependencies.
//
// # Usage
//
//	e, err := dapper.New(dapper.WithDatabases(linuxDB, pythonDB))
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.Scan(ctx, "path/to/project")
//
// # Ranking
//
// All candidates for a token are treated as equally likely. [WithRanker]
// plugs in an ordering; internal/rank provides one backed by a Risor script.
package dapper
