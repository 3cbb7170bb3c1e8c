package rank

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
)

// Script ranks candidates with a Risor script.
//
// The script sees two globals:
//
//	token      map with language, kind, token and key
//	candidates list of maps with package and path
//
// and a log object with Info/Warn/Error methods. Its final expression must
// be a list of package names (or candidate maps) in the desired order.
// Names that are not among the candidates are ignored.
type Script struct {
	source string
	label  string
	logger *log.Logger
}

var _ Ranker = (*Script)(nil)

// NewScript wraps Risor source. label names the script in errors.
func NewScript(source, label string, logger *log.Logger) *Script {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Script{source: source, label: label, logger: logger}
}

// LoadScript reads a .risor file.
func LoadScript(path string, logger *log.Logger) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rank: loading script %s: %w", path, err)
	}
	return NewScript(string(data), path, logger), nil
}

func (s *Script) Rank(ctx context.Context, subject Subject, candidates []Candidate) ([]Candidate, error) {
	result, err := risor.Eval(ctx, s.source,
		risor.WithGlobal("token", subjectObject(subject)),
		risor.WithGlobal("candidates", candidatesObject(candidates)),
		risor.WithGlobal("log", mustProxy(&logObject{logger: s.logger.With("script", s.label)})),
	)
	if err != nil {
		return nil, fmt.Errorf("rank: script %s: %w", s.label, err)
	}

	names, err := packageNames(result)
	if err != nil {
		return nil, fmt.Errorf("rank: script %s: %w", s.label, err)
	}

	byName := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		if _, ok := byName[c.Package]; !ok {
			byName[c.Package] = c
		}
	}

	ranked := make([]Candidate, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			s.logger.Debug("ranking script returned unknown package", "script", s.label, "package", name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		ranked = append(ranked, c)
	}
	return ranked, nil
}

func subjectObject(s Subject) *object.Map {
	return object.NewMap(map[string]object.Object{
		"language": object.NewString(s.Language),
		"kind":     object.NewString(s.Kind),
		"token":    object.NewString(s.Token),
		"key":      object.NewString(s.Key),
	})
}

func candidatesObject(candidates []Candidate) *object.List {
	items := make([]object.Object, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, object.NewMap(map[string]object.Object{
			"package": object.NewString(c.Package),
			"path":    object.NewString(c.Path),
		}))
	}
	return object.NewList(items)
}

// packageNames converts the script result into package names.
func packageNames(result object.Object) ([]string, error) {
	list, ok := result.(*object.List)
	if !ok {
		if result == nil {
			return nil, fmt.Errorf("expected list result, got nothing")
		}
		return nil, fmt.Errorf("expected list result, got %s", result.Type())
	}

	var names []string
	for _, item := range list.Value() {
		switch v := item.(type) {
		case *object.String:
			names = append(names, v.Value())
		case *object.Map:
			if name := getString(v.Value(), "package"); name != "" {
				names = append(names, name)
			}
		default:
			return nil, fmt.Errorf("expected package name or candidate map, got %s", item.Type())
		}
	}
	return names, nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *log.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("rank: proxy error: %v", err))
	}
	return p
}
