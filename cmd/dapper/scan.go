package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/dapper"
	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/rank"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory or file and report the packages it depends on",
		Long: "Extracts dependency tokens from every C/C++, Python and CMake source under path " +
			"and resolves them against the Linux and PyPI package indexes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, a, args)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("languages", nil, "comma-separated language filter (cpp,python,cmake)")
	flags.Int("workers", 0, "extraction workers (default: number of CPUs)")
	flags.String("linux-db", "", "Linux package file index (SQLite)")
	flags.String("python-db", "", "PyPI import index (SQLite)")
	flags.Bool("unresolved", false, "also report tokens that matched no package")
	flags.Bool("gitignore", false, "skip files matched by the scan root's .gitignore")
	flags.String("rank-script", "", "Risor script that orders candidate packages")
	bindFlag(a.v, flags, "languages", languagesKey)
	bindFlag(a.v, flags, "workers", workersKey)
	bindFlag(a.v, flags, "linux-db", linuxDBKey)
	bindFlag(a.v, flags, "python-db", pythonDBKey)
	bindFlag(a.v, flags, "unresolved", includeUnresolvKey)
	bindFlag(a.v, flags, "gitignore", gitignoreKey)
	bindFlag(a.v, flags, "rank-script", rankScriptKey)
	return cmd
}

func runScan(cmd *cobra.Command, a *app, args []string) error {
	start := time.Now()

	target, err := resolveTarget(args)
	if err != nil {
		return outputError(cmd, a, "scan", err)
	}

	opts, err := engineOptions(a)
	if err != nil {
		return outputError(cmd, a, "scan", err)
	}

	engine, err := dapper.New(opts...)
	if err != nil {
		return outputError(cmd, a, "scan", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	report, err := engine.Scan(cmd.Context(), target)
	if err != nil {
		return outputError(cmd, a, "scan", err)
	}

	a.logger.Info("scan finished",
		"root", target,
		"files", report.Stats.Files,
		"resolved", report.Stats.Resolved,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return outputResult(cmd, a, CLIResult{Command: "scan", Results: report})
}

// engineOptions turns the configuration into Engine options.
func engineOptions(a *app) ([]dapper.Option, error) {
	v := a.v
	opts := []dapper.Option{
		dapper.WithLogger(a.logger),
		dapper.WithWorkers(v.GetInt(workersKey)),
		dapper.WithGitignore(v.GetBool(gitignoreKey)),
		dapper.WithIncludeUnresolved(v.GetBool(includeUnresolvKey)),
	}

	if names := listValue(v, languagesKey); len(names) > 0 {
		langs, unknown := lang.Parse(names)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown language(s): %s", strings.Join(unknown, ", "))
		}
		opts = append(opts, dapper.WithLanguages(langs...))
	}

	paths, err := databasePaths(v, a.logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, dapper.WithDatabases(paths.Linux, paths.Python))

	if script := v.GetString(rankScriptKey); script != "" {
		ranker, err := rank.LoadScript(script, a.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dapper.WithRanker(ranker))
	}
	return opts, nil
}

// resolveTarget returns the absolute path of the file or directory to scan.
func resolveTarget(args []string) (string, error) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", target, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("path not found: %s", abs)
	}
	return abs, nil
}
