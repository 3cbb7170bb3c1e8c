package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jward/dapper/internal/dataset"
)

const (
	configBaseName = "dapper"
	envPrefix      = "DAPPER"

	formatKey          = "format"
	dataDirKey         = "data_dir"
	linuxDBKey         = "database.linux"
	pythonDBKey        = "database.python"
	workersKey         = "scan.workers"
	gitignoreKey       = "scan.gitignore"
	languagesKey       = "scan.languages"
	includeUnresolvKey = "report.unresolved"
	rankScriptKey      = "rank.script"

	logLevelKey      = "log.level"
	logFileKey       = "log.file"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"

	defaultFormat        = "json"
	defaultLogLevel      = "warn"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// newConfig returns a viper instance with dapper's defaults, environment
// binding and config search path. Nothing is read yet; see loadConfig.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := dataset.DataDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(formatKey, defaultFormat)
	v.SetDefault(logLevelKey, defaultLogLevel)
	v.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	v.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	v.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	return v
}

// loadConfig reads the config file. An explicit path must exist; the
// default search finding nothing is fine.
func loadConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// bindFlag wires a cobra flag to a viper key so config and env values feed
// the flag.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, name, key string) {
	flag := flags.Lookup(name)
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(v.BindPFlag(key, flag))
}

// listValue reads a list setting, accepting both repeated values and
// comma-separated strings (as env vars provide).
func listValue(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// newLogger creates a logger with timestamp formatting. Timestamps are
// formatted as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// configureLogger builds the CLI logger. verbose forces debug level. When a
// log file is configured the logger writes there, rotated by lumberjack,
// and the returned closer must be closed on exit.
func configureLogger(v *viper.Viper, stderr io.Writer, verbose bool) (*log.Logger, io.Closer, error) {
	level := log.DebugLevel
	if !verbose {
		parsed, err := log.ParseLevel(v.GetString(logLevelKey))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", logLevelKey, err)
		}
		level = parsed
	}

	path := strings.TrimSpace(v.GetString(logFileKey))
	if path == "" {
		return newLogger(stderr, level), nil, nil
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    v.GetInt(logMaxSizeKey),
		MaxBackups: v.GetInt(logMaxBackupsKey),
		MaxAge:     v.GetInt(logMaxAgeKey),
	}
	return newLogger(w, level), w, nil
}

// dataDir is the configured data directory or the platform default.
func dataDir(v *viper.Viper) (string, error) {
	if dir := v.GetString(dataDirKey); dir != "" {
		return dir, nil
	}
	return dataset.DataDir()
}

// databasePaths resolves the index databases: explicit settings win over
// the dataset catalog, which wins over the default file names.
func databasePaths(v *viper.Viper, logger *log.Logger) (dataset.Paths, error) {
	var paths dataset.Paths
	linux, python := v.GetString(linuxDBKey), v.GetString(pythonDBKey)
	if linux == "" || python == "" {
		dir, err := dataDir(v)
		if err != nil {
			return paths, err
		}
		paths = dataset.Locate(dir, logger)
	}
	if linux != "" {
		paths.Linux = linux
	}
	if python != "" {
		paths.Python = python
	}
	if _, err := os.Stat(paths.Linux); err != nil {
		logger.Debug("linux package index not found", "path", paths.Linux)
	}
	if _, err := os.Stat(paths.Python); err != nil {
		logger.Debug("python package index not found", "path", paths.Python)
	}
	return paths, nil
}
