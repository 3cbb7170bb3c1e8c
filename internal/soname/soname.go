// Package soname canonicalizes shared-object file names so that differently
// versioned builds of the same library map to one lookup key.
//
// Normalize is a pure function of its input: the same raw name always yields
// the same result, and it never fails. The Normalized field reports whether
// any rewriting rule fired.
package soname

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// Normalized is the result of normalizing one shared-object name.
type Normalized struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	HasVersion bool   `json:"-"`
	SOABI      string `json:"soabi,omitempty"`
	HasSOABI   bool   `json:"-"`
	Normalized bool   `json:"normalized"`
}

// nonLibrarySuffixes are artifacts that embed ".so." without being libraries,
// e.g. "libnss_cache_oslogin.so.2.8.gz" or "local-ldconfig-ignore-ld.so.diff".
var nonLibrarySuffixes = []string{".gz", ".patch", ".diff", ".hmac", ".qm"}

// IsSharedObject reports whether name looks like a shared library file name.
func IsSharedObject(name string) bool {
	if strings.HasSuffix(name, ".so") {
		return true
	}
	if !strings.Contains(name, ".so.") {
		return false
	}
	for _, suffix := range nonLibrarySuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// NormalizeFileName normalizes name when it passes IsSharedObject. The
// boolean is false, and the result zero, for any other file name.
func NormalizeFileName(name string) (Normalized, bool) {
	if !IsSharedObject(name) {
		return Normalized{}, false
	}
	return Normalize(name), true
}

// versionSuffix matches "-1.2.3.so" at the end of a name. A bare "-64" is not
// a version: it collides with bit-width markers such as "linux-amd64-64.so".
var versionSuffix = regexp.MustCompile(`-(\d+(?:\.\d+)+)\.so$`)

// Normalize canonicalizes a shared-object name. Callers are expected to have
// checked IsSharedObject.
func Normalize(raw string) Normalized {
	base, soabi, hasSOABI := splitSOABI(raw)
	n := Normalized{SOABI: soabi, HasSOABI: hasSOABI}

	switch {
	case strings.Contains(base, ".cpython-"):
		// stringprep.cpython-312-x86_64-linux-gnu.so -> stringprep.cpython.so
		n.Name = base[:strings.Index(base, ".cpython-")] + ".cpython.so"
		n.Normalized = true
	case strings.Contains(base, ".pypy"):
		// tklib_cffi.pypy39-pp73-x86_64-linux-gnu.so -> tklib_cffi.pypy.so
		n.Name = base[:strings.Index(base, ".pypy")] + ".pypy.so"
		n.Normalized = true
	case strings.HasPrefix(base, "libHS"):
		name, version, ok := normalizeHaskell(base)
		if !ok {
			n.Name = base
			break
		}
		n.Name, n.Version, n.HasVersion, n.Normalized = name, version, true, true
	default:
		loc := versionSuffix.FindStringSubmatchIndex(base)
		if loc == nil {
			n.Name = base
			break
		}
		n.Name = base[:loc[0]] + ".so"
		n.Version = base[loc[2]:loc[3]]
		n.HasVersion = true
		n.Normalized = true
	}
	return n
}

// splitSOABI splits "libfoo.so.1.2" into "libfoo.so" and "1.2" at the first
// ".so." occurrence.
func splitSOABI(name string) (base, soabi string, ok bool) {
	pos := strings.Index(name, ".so.")
	if pos < 0 {
		return name, "", false
	}
	base, soabi = name[:pos+len(".so")], name[pos+len(".so."):]
	return base, soabi, soabi != ""
}

// normalizeHaskell handles GHC library names of the form
// libHS<pkg>-<version>[-<api hash>]-ghc<ghc version>.so.
func normalizeHaskell(base string) (name, version string, ok bool) {
	pos := strings.LastIndex(base, "-ghc")
	if pos < 0 {
		log.Debug("no GHC version marker in Haskell library name", "name", base)
		return "", "", false
	}

	prefix := base[:pos]
	if dash := strings.LastIndex(prefix, "-"); dash >= 0 && isAPIHash(prefix[dash+1:]) {
		prefix = prefix[:dash]
	}

	dash := strings.LastIndex(prefix, "-")
	if dash < 0 {
		log.Debug("no version segment in Haskell library name", "name", base)
		return "", "", false
	}
	// The version keeps suffixes such as "_thr_debug".
	return prefix[:dash] + ".so", prefix[dash+1:], true
}

func isAPIHash(segment string) bool {
	switch len(segment) {
	case 20, 21, 22:
	default:
		return false
	}
	for _, c := range segment {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
