package dapper

import (
	"github.com/jward/dapper/internal/rank"
	"github.com/jward/dapper/internal/token"
)

// Public aliases for the internal token and ranking types used in the Engine
// API. They are identical to the internal types; no conversion is needed.

type Language = token.Language
type Reference = token.Reference
type Invocation = token.Invocation
type Candidate = rank.Candidate
type Ranker = rank.Ranker

// Occurrences maps a token to the files it was found in. A file appears once
// per token; the same token found in several files lists each of them.
type Occurrences[K comparable] map[K][]string

// invocationKey separates identical commands spawned from different
// languages.
type invocationKey struct {
	Language   token.Language
	Invocation token.Invocation
}

// Resolution is one token and the packages that may provide it.
type Resolution struct {
	Language string `json:"language"`
	Kind     string `json:"kind"`
	Token    string `json:"token"`
	Key      string `json:"key,omitempty"`
	// Packages are the distinct package names of Candidates, in order.
	Packages   []string    `json:"packages,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Files      []string    `json:"files"`
}

// RemoteDependency is a dependency fetched at build time, reported from
// CMake ExternalProject_Add and FetchContent_Declare calls.
type RemoteDependency struct {
	Kind  string   `json:"kind"`
	URL   string   `json:"url"`
	Tag   string   `json:"tag,omitempty"`
	Files []string `json:"files"`
}

// Stats counts what a scan did.
type Stats struct {
	Files        int `json:"files"`
	FilesSkipped int `json:"files_skipped"`
	References   int `json:"references"`
	Invocations  int `json:"invocations"`
	Resolved     int `json:"resolved"`
	Unresolved   int `json:"unresolved"`
	Remote       int `json:"remote"`
	Ignored      int `json:"ignored"`
}

// Report is the result of one scan.
type Report struct {
	Root     string             `json:"root"`
	Resolved []Resolution       `json:"resolved"`
	Remote   []RemoteDependency `json:"remote"`
	// Unresolved is only populated with WithIncludeUnresolved.
	Unresolved []Resolution `json:"unresolved,omitempty"`
	Stats      Stats        `json:"stats"`
}
