package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/dapper/internal/dataset"
)

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the package index datasets installed locally",
		Long:  "Reads dataset_info.toml from the data directory. Installing and updating datasets is done by other tooling.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := dataDir(a.v)
			if err != nil {
				return outputError(cmd, a, "datasets", err)
			}
			list, err := installedDatasets(dir)
			if err != nil {
				return outputError(cmd, a, "datasets", err)
			}
			return outputResult(cmd, a, CLIResult{Command: "datasets", Results: list})
		},
	}
}

// installedDatasets lists the catalog in dir. A missing catalog means
// nothing is installed.
func installedDatasets(dir string) ([]CLIDataset, error) {
	info, err := dataset.Load(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []CLIDataset{}, nil
	}
	if err != nil {
		return nil, err
	}

	sorted := info.Sorted()
	out := make([]CLIDataset, 0, len(sorted))
	for _, d := range sorted {
		out = append(out, CLIDataset{
			Name:       d.Name,
			Version:    d.Version,
			Format:     d.Format,
			Timestamp:  d.Timestamp,
			Categories: d.Categories,
			Filepath:   d.Filepath,
		})
	}
	return out, nil
}
