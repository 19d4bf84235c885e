package types

import "fmt"

// ScopeKind distinguishes global from project installations.
type ScopeKind string

const (
	ScopeGlobal  ScopeKind = "global"
	ScopeProject ScopeKind = "project"
)

// Scope describes where a resource installation applies. A global scope has
// an empty ProjectPath; a project scope carries the project root path.
//
// For any resource identity, at most one global installation OR any number
// of project installations may exist, never both. The store enforces this.
type Scope struct {
	Kind        ScopeKind `json:"kind"`
	ProjectPath string    `json:"projectPath,omitempty"`
}

// GlobalScope returns the global installation scope.
func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

// ProjectScope returns an installation scope bound to the given project root.
func ProjectScope(path string) Scope {
	return Scope{Kind: ScopeProject, ProjectPath: path}
}

// IsGlobal reports whether s is the global scope.
func (s Scope) IsGlobal() bool {
	return s.Kind == ScopeGlobal
}

// Validate checks the scope's internal consistency.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		if s.ProjectPath != "" {
			return fmt.Errorf("%w: global scope must not carry a project path", ErrValidation)
		}
	case ScopeProject:
		if s.ProjectPath == "" {
			return fmt.Errorf("%w: project scope requires a project path", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown scope kind %q", ErrValidation, s.Kind)
	}
	return nil
}

func (s Scope) String() string {
	if s.Kind == ScopeProject {
		return fmt.Sprintf("project(%s)", s.ProjectPath)
	}
	return string(s.Kind)
}
