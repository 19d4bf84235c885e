package types

import "fmt"

// AppType identifies one of the external CLI tools the engine manages.
// The set is closed; adapters are selected by a lookup table keyed on it.
type AppType string

const (
	AppClaude AppType = "claude"
	AppCodex  AppType = "codex"
	AppGemini AppType = "gemini"
)

// AllApps lists every supported app in stable order.
var AllApps = []AppType{AppClaude, AppCodex, AppGemini}

// Valid reports whether a is one of the supported apps.
func (a AppType) Valid() bool {
	switch a {
	case AppClaude, AppCodex, AppGemini:
		return true
	}
	return false
}

// ParseApp converts a user-supplied string into an AppType.
func ParseApp(s string) (AppType, error) {
	a := AppType(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown app %q (want claude, codex, or gemini)", ErrValidation, s)
	}
	return a, nil
}

// FileRole names one live config file of an app. Each adapter declares the
// roles it renders; the paths package maps roles to on-disk locations.
type FileRole string

const (
	RoleSettings FileRole = "settings"
	RoleAuth     FileRole = "auth"
	RoleConfig   FileRole = "config"
	RoleEnv      FileRole = "env"
)

// ResourceKind classifies an installable resource.
type ResourceKind string

const (
	KindCommand ResourceKind = "command"
	KindHook    ResourceKind = "hook"
	KindAgent   ResourceKind = "agent"
	KindSkill   ResourceKind = "skill"
)

// AllKinds lists every resource kind in stable order.
var AllKinds = []ResourceKind{KindCommand, KindHook, KindAgent, KindSkill}

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindCommand, KindHook, KindAgent, KindSkill:
		return true
	}
	return false
}

// Dir returns the directory name a kind's files live under, both in live
// app directories (~/.claude/commands) and in repository trees.
func (k ResourceKind) Dir() string {
	switch k {
	case KindCommand:
		return "commands"
	case KindHook:
		return "hooks"
	case KindAgent:
		return "agents"
	case KindSkill:
		return "skills"
	}
	return string(k)
}

// ParseKind converts a user-supplied string into a ResourceKind. It accepts
// both the singular kind name and the directory form ("command", "commands").
func ParseKind(s string) (ResourceKind, error) {
	for _, k := range AllKinds {
		if s == string(k) || s == k.Dir() {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown resource kind %q", ErrValidation, s)
}
