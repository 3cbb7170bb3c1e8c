package extract

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jward/dapper/internal/cmake"
	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/token"
)

// cmakeFetchCommands declare remote sources. Matched case-insensitively.
var cmakeFetchCommands = []string{"ExternalProject_Add", "FetchContent_Declare"}

// CMakeExtractor extracts remote-fetch declarations from CMake scripts. It
// produces no invocation tokens.
type CMakeExtractor struct {
	logger *log.Logger
}

func NewCMake(logger *log.Logger) *CMakeExtractor {
	return &CMakeExtractor{logger: orDiscard(logger)}
}

func (e *CMakeExtractor) Language() token.Language { return token.CMake }

func (e *CMakeExtractor) Matches(path string) bool { return lang.Matches(token.CMake, path) }

func (e *CMakeExtractor) ExtractReferences(_ context.Context, path string, src []byte) ([]token.Reference, error) {
	var refs set[token.Reference]
	for _, cmd := range cmake.Parse(string(src)) {
		if !isFetchCommand(cmd.Name) {
			continue
		}
		if ref, ok := e.remote(path, cmd); ok {
			refs.add(ref)
		}
	}
	return refs.items, nil
}

func (e *CMakeExtractor) ExtractInvocations(context.Context, string, []byte) ([]token.Invocation, error) {
	return nil, nil
}

func (e *CMakeExtractor) Extract(ctx context.Context, path string, src []byte) (Extraction, error) {
	refs, err := e.ExtractReferences(ctx, path, src)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{References: refs}, nil
}

func (e *CMakeExtractor) Close() {}

// remote reads the key/value arguments that follow the target name.
func (e *CMakeExtractor) remote(path string, cmd cmake.Command) (token.Reference, bool) {
	if len(cmd.Args) < 2 {
		return token.Reference{}, false
	}
	kv := cmd.Args[1:]
	if len(kv)%2 != 0 {
		e.logger.Warn("dangling CMake key without value",
			"path", path, "line", cmd.Line, "command", cmd.Name, "key", kv[len(kv)-1])
		kv = kv[:len(kv)-1]
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	if url, ok := fields["URL"]; ok {
		return token.URL(url), true
	}
	if repo, ok := fields["GIT_REPOSITORY"]; ok {
		if tag, ok := fields["GIT_TAG"]; ok {
			return token.GitRepoAt(repo, tag), true
		}
		return token.GitRepo(repo), true
	}
	return token.Reference{}, false
}

func isFetchCommand(name string) bool {
	for _, c := range cmakeFetchCommands {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}
