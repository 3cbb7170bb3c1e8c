// Package cmake is a small reader for the CMake language. It recognizes
// command invocations and their arguments; it does not evaluate variables,
// generator expressions, or control flow.
package cmake

import (
	"sort"
	"strings"
)

// Command is one command invocation such as `FetchContent_Declare(...)`.
type Command struct {
	Name string
	// Args holds the arguments in source order with quoting removed. Tokens
	// from nested parentheses are flattened into the same list.
	Args []string
	Line int
}

// Parse returns every complete command invocation in src. Comments are
// removed first; an invocation missing its closing parenthesis is dropped.
func Parse(src string) []Command {
	return (&reader{src: StripComments(src), line: 1}).commands()
}

// StripComments removes line and bracket comments from src.
func StripComments(src string) string {
	ranges := mergeRanges(commentRanges(src))
	if len(ranges) == 0 {
		return src
	}
	cleaned := src
	for i := len(ranges) - 1; i >= 0; i-- {
		r := ranges[i]
		cleaned = cleaned[:r.start] + cleaned[r.end:]
	}
	return cleaned
}

type byteRange struct{ start, end int }

// commentRanges locates comments, skipping over quoted and bracket
// arguments so a '#' inside them is left alone.
func commentRanges(src string) []byteRange {
	var ranges []byteRange
	for i := 0; i < len(src); {
		switch src[i] {
		case '\\':
			i += 2
		case '"':
			i = skipQuoted(src, i)
		case '[':
			if level, n, ok := bracketOpen(src, i); ok {
				i = bracketEnd(src, i+n, level)
			} else {
				i++
			}
		case '#':
			if level, n, ok := bracketOpen(src, i+1); ok {
				end := bracketEnd(src, i+1+n, level)
				ranges = append(ranges, byteRange{i, end})
				i = end
				continue
			}
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			ranges = append(ranges, byteRange{i, i + end})
			i += end
		default:
			i++
		}
	}
	return ranges
}

// mergeRanges sorts ranges and coalesces overlapping or adjacent ones.
func mergeRanges(ranges []byteRange) []byteRange {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(a, b int) bool { return ranges[a].start < ranges[b].start })
	merged := []byteRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// bracketOpen reports whether src[i:] starts a bracket opener "[", "=" * level, "[".
func bracketOpen(src string, i int) (level, n int, ok bool) {
	if i >= len(src) || src[i] != '[' {
		return 0, 0, false
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j >= len(src) || src[j] != '[' {
		return 0, 0, false
	}
	return j - i - 1, j - i + 1, true
}

// bracketEnd returns the offset just past the closing bracket matching level,
// or len(src) when it is missing.
func bracketEnd(src string, from, level int) int {
	closer := "]" + strings.Repeat("=", level) + "]"
	idx := strings.Index(src[from:], closer)
	if idx < 0 {
		return len(src)
	}
	return from + idx + len(closer)
}

// skipQuoted returns the offset just past the quoted argument starting at i.
func skipQuoted(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

type reader struct {
	src  string
	pos  int
	line int
}

func (r *reader) commands() []Command {
	var out []Command
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if !isIdentStart(c) {
			r.advance(1)
			continue
		}
		line := r.line
		name := r.ident()
		r.skipSpace()
		if r.pos >= len(r.src) || r.src[r.pos] != '(' {
			continue
		}
		r.advance(1)
		args, ok := r.arguments()
		if !ok {
			break
		}
		out = append(out, Command{Name: name, Args: args, Line: line})
	}
	return out
}

// arguments reads up to and including the closing parenthesis of the
// current invocation.
func (r *reader) arguments() ([]string, bool) {
	args := []string{}
	depth := 0
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case isSpace(c):
			r.advance(1)
		case c == '(':
			depth++
			r.advance(1)
		case c == ')':
			r.advance(1)
			if depth == 0 {
				return args, true
			}
			depth--
		case c == '"':
			end := skipQuoted(r.src, r.pos)
			args = append(args, unquote(r.src[r.pos:end]))
			r.advance(end - r.pos)
		case c == '[':
			if level, n, ok := bracketOpen(r.src, r.pos); ok {
				end := bracketEnd(r.src, r.pos+n, level)
				body := r.src[r.pos+n : end]
				body = strings.TrimSuffix(body, "]"+strings.Repeat("=", level)+"]")
				args = append(args, strings.TrimPrefix(body, "\n"))
				r.advance(end - r.pos)
				continue
			}
			args = append(args, r.unquoted())
		default:
			args = append(args, r.unquoted())
		}
	}
	return nil, false
}

func (r *reader) unquoted() string {
	start := r.pos
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if isSpace(c) || c == '(' || c == ')' {
			break
		}
		if c == '\\' && r.pos+1 < len(r.src) {
			r.advance(2)
			continue
		}
		if c == '"' {
			// Legacy unquoted arguments may embed a quoted section: -DX="a b".
			r.advance(skipQuoted(r.src, r.pos) - r.pos)
			continue
		}
		r.advance(1)
	}
	return r.src[start:r.pos]
}

func (r *reader) ident() string {
	start := r.pos
	for r.pos < len(r.src) && isIdentChar(r.src[r.pos]) {
		r.pos++
	}
	return r.src[start:r.pos]
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) && (r.src[r.pos] == ' ' || r.src[r.pos] == '\t') {
		r.pos++
	}
}

func (r *reader) advance(n int) {
	end := r.pos + n
	if end > len(r.src) {
		end = len(r.src)
	}
	r.line += strings.Count(r.src[r.pos:end], "\n")
	r.pos = end
}

// unquote strips one leading and one trailing double quote.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
