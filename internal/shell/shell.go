// Package shell recovers the program name from a command string passed to a
// subprocess-spawning call.
package shell

import (
	"bytes"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// FirstCommand parses cmd as a POSIX shell script and returns the first word
// of the first simple command. The boolean is false when cmd does not parse
// or contains no simple command with arguments.
func FirstCommand(cmd string) (string, bool) {
	file, err := syntax.NewParser().Parse(strings.NewReader(cmd), "")
	if err != nil {
		return "", false
	}

	var name string
	var found bool
	syntax.Walk(file, func(node syntax.Node) bool {
		if found {
			return false
		}
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		name, found = wordText(call.Args[0]), true
		return false
	})
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// Program returns the basename of the program cmd starts. It falls back to
// the first whitespace-separated token when cmd is not valid shell, and
// returns "" for blank input.
func Program(cmd string) string {
	name, ok := FirstCommand(cmd)
	if !ok {
		fields := strings.Fields(cmd)
		if len(fields) == 0 {
			return ""
		}
		name = fields[0]
	}
	return path.Base(name)
}

// wordText renders a word with quoting removed. Words containing expansions
// are printed back in source form.
func wordText(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return printWord(w)
				}
				sb.WriteString(lit.Value)
			}
		default:
			return printWord(w)
		}
	}
	return sb.String()
}

func printWord(w *syntax.Word) string {
	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, w); err != nil {
		return ""
	}
	return buf.String()
}
