package main

import "time"

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLINormalized is one normalize result.
type CLINormalized struct {
	Input      string `json:"input"`
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	SOABI      string `json:"soabi,omitempty"`
	Normalized bool   `json:"normalized"`
	// SharedObject is false when the input does not look like a library, in
	// which case the index builder would not normalize it.
	SharedObject bool `json:"shared_object"`
}

// CLIDataset is one installed dataset.
type CLIDataset struct {
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	Format     string    `json:"format"`
	Timestamp  time.Time `json:"timestamp"`
	Categories []string  `json:"categories"`
	Filepath   string    `json:"filepath"`
}
