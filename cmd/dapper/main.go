package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by every command of one invocation.
type app struct {
	v          *viper.Viper
	logger     *log.Logger
	closer     io.Closer
	configPath string
	verbose    bool

	// errorHandled is set by outputError so run doesn't double-print.
	errorHandled bool
}

// run executes the CLI with args and reports the error after printing it.
func run(args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close()

	err := root.Execute()
	if err != nil && !a.errorHandled {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return err
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
		a.closer = nil
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: newConfig(), logger: log.New(io.Discard)}

	root := &cobra.Command{
		Use:   "dapper",
		Short: "Detect the distribution packages a source tree depends on",
		Long: "Dapper scans C/C++, Python and CMake sources for headers, imports, remote fetches and spawned programs, " +
			"and looks them up in locally installed package indexes.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(a.v, a.configPath); err != nil {
				return err
			}
			if err := validateFormat(a.v.GetString(formatKey)); err != nil {
				return err
			}
			logger, closer, err := configureLogger(a.v, cmd.ErrOrStderr(), a.verbose)
			if err != nil {
				return err
			}
			a.logger, a.closer = logger, closer
			return nil
		},
		// No Run: prints help by default.
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: dapper.yaml in the working or data directory)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.String("format", defaultFormat, "output format: json|text")
	flags.String("log-file", "", "write logs to a rotated file instead of stderr")
	flags.String("data-dir", "", "directory holding the installed datasets (default: $XDG_DATA_HOME/dapper)")
	bindFlag(a.v, flags, "format", formatKey)
	bindFlag(a.v, flags, "log-file", logFileKey)
	bindFlag(a.v, flags, "data-dir", dataDirKey)

	root.AddCommand(newScanCmd(a))
	root.AddCommand(newNormalizeCmd(a))
	root.AddCommand(newDatasetsCmd(a))
	return root, a
}
