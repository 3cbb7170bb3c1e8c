package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/dapper/internal/soname"
)

func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <name>...",
		Short: "Show how shared-object file names are normalized",
		Long: "Prints the normalized name, version and SOABI the package indexes use for each " +
			"shared-object file name, e.g. libfoo-1.2.so or _ssl.cpython-312-x86_64-linux-gnu.so.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]CLINormalized, 0, len(args))
			for _, name := range args {
				results = append(results, normalizeName(name))
			}
			return outputResult(cmd, a, CLIResult{Command: "normalize", Results: results})
		},
	}
}

// normalizeName normalizes name even when it fails the shared-object check,
// so the output shows what the rules would do.
func normalizeName(name string) CLINormalized {
	n, ok := soname.NormalizeFileName(name)
	if !ok {
		n = soname.Normalize(name)
	}
	return CLINormalized{
		Input:        name,
		Name:         n.Name,
		Version:      n.Version,
		SOABI:        n.SOABI,
		Normalized:   n.Normalized,
		SharedObject: ok,
	}
}
