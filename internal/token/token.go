// Package token defines the dependency signals extracted from source files.
//
// Tokens are plain comparable values: two tokens extracted from different
// files are equal when their fields are equal, so they can be used directly
// as map keys during aggregation.
package token

import "fmt"

// Language identifies the extractor that produced a token.
type Language string

const (
	Cpp    Language = "cpp"
	Python Language = "python"
	CMake  Language = "cmake"
)

// Kind is the shape of a Reference within its language.
type Kind string

const (
	KindSystemInclude Kind = "system_include"
	KindUserInclude   Kind = "user_include"

	KindModule     Kind = "module"
	KindAlias      Kind = "alias"
	KindFromModule Kind = "from_module"
	KindFromAlias  Kind = "from_alias"

	KindURL     Kind = "url"
	KindGitRepo Kind = "git_repo"
)

// Reference is a header, module, or remote-fetch dependency signal.
//
// Name holds the include path, module name, URL, or repository URL depending
// on Kind. Item and Alias are only set for the Python shapes that carry them;
// Tag/HasTag only for GitRepo.
type Reference struct {
	Language Language
	Kind     Kind
	Name     string
	Item     string
	Alias    string
	Tag      string
	HasTag   bool
}

func SystemInclude(path string) Reference {
	return Reference{Language: Cpp, Kind: KindSystemInclude, Name: path}
}

func UserInclude(path string) Reference {
	return Reference{Language: Cpp, Kind: KindUserInclude, Name: path}
}

func Module(name string) Reference {
	return Reference{Language: Python, Kind: KindModule, Name: name}
}

func Alias(name, alias string) Reference {
	return Reference{Language: Python, Kind: KindAlias, Name: name, Alias: alias}
}

func FromModule(name, item string) Reference {
	return Reference{Language: Python, Kind: KindFromModule, Name: name, Item: item}
}

func FromAlias(name, item, alias string) Reference {
	return Reference{Language: Python, Kind: KindFromAlias, Name: name, Item: item, Alias: alias}
}

func URL(url string) Reference {
	return Reference{Language: CMake, Kind: KindURL, Name: url}
}

// GitRepo is a repository reference without a GIT_TAG.
func GitRepo(url string) Reference {
	return Reference{Language: CMake, Kind: KindGitRepo, Name: url}
}

// GitRepoAt is a repository reference pinned to tag.
func GitRepoAt(url, tag string) Reference {
	return Reference{Language: CMake, Kind: KindGitRepo, Name: url, Tag: tag, HasTag: true}
}

// String renders the reference the way it appears in reports.
func (r Reference) String() string {
	switch r.Kind {
	case KindSystemInclude:
		return "<" + r.Name + ">"
	case KindUserInclude:
		return `"` + r.Name + `"`
	case KindModule:
		return "import " + r.Name
	case KindAlias:
		return fmt.Sprintf("import %s as %s", r.Name, r.Alias)
	case KindFromModule:
		return fmt.Sprintf("from %s import %s", r.Name, r.Item)
	case KindFromAlias:
		return fmt.Sprintf("from %s import %s as %s", r.Name, r.Item, r.Alias)
	case KindGitRepo:
		if r.HasTag {
			return r.Name + "@" + r.Tag
		}
		return r.Name
	default:
		return r.Name
	}
}

// Invocation is a program started through a subprocess-spawning call.
// Command is the basename of the program.
type Invocation struct {
	Command string
}

// Application builds an Invocation for command.
func Application(command string) Invocation {
	return Invocation{Command: command}
}

func (i Invocation) String() string {
	return i.Command
}
