// Package rank orders the candidate packages found for a token.
//
// dapper treats every candidate as equally likely by default. A Risor script
// can be plugged in to reorder or filter candidates without rebuilding.
package rank

import "context"

// Candidate is one package that may provide a token.
type Candidate struct {
	Package string `json:"package"`
	// Path is the matching file inside the package, empty for import lookups.
	Path string `json:"path,omitempty"`
}

// Subject describes the token whose candidates are being ranked.
type Subject struct {
	Language string
	Kind     string
	Token    string
	Key      string
}

// Ranker orders candidates, most likely first. Returning fewer candidates
// than given drops the rest.
type Ranker interface {
	Rank(ctx context.Context, subject Subject, candidates []Candidate) ([]Candidate, error)
}

// Identity keeps candidates in lookup order.
type Identity struct{}

var _ Ranker = Identity{}

func (Identity) Rank(_ context.Context, _ Subject, candidates []Candidate) ([]Candidate, error) {
	return candidates, nil
}
