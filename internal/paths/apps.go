package paths

import (
	"fmt"
	"path/filepath"

	"github.com/tangentlab/switchyard/pkg/types"
)

// AppDirs resolves the home directory of each managed app. Zero-valued
// fields fall back to the conventional dotdir under the user home; tests
// point them at temp directories.
type AppDirs struct {
	Claude string
	Codex  string
	Gemini string
}

// DefaultAppDirs resolves ~/.claude, ~/.codex, and ~/.gemini.
func DefaultAppDirs() (AppDirs, error) {
	home, err := platformDir.homeDir()
	if err != nil {
		return AppDirs{}, err
	}
	return AppDirs{
		Claude: filepath.Join(home, ".claude"),
		Codex:  filepath.Join(home, ".codex"),
		Gemini: filepath.Join(home, ".gemini"),
	}, nil
}

// Home returns the root directory of one app.
func (d AppDirs) Home(app types.AppType) string {
	switch app {
	case types.AppClaude:
		return d.Claude
	case types.AppCodex:
		return d.Codex
	case types.AppGemini:
		return d.Gemini
	}
	return ""
}

// LiveFiles maps each config file role of an app to its absolute path.
//
//	claude: settings -> ~/.claude/settings.json
//	codex:  auth     -> ~/.codex/auth.json
//	        config   -> ~/.codex/config.toml
//	gemini: env      -> ~/.gemini/.env
//	        settings -> ~/.gemini/settings.json
func (d AppDirs) LiveFiles(app types.AppType) (map[types.FileRole]string, error) {
	home := d.Home(app)
	if home == "" {
		return nil, fmt.Errorf("%w: unknown app %q", types.ErrValidation, app)
	}
	switch app {
	case types.AppClaude:
		return map[types.FileRole]string{
			types.RoleSettings: filepath.Join(home, "settings.json"),
		}, nil
	case types.AppCodex:
		return map[types.FileRole]string{
			types.RoleAuth:   filepath.Join(home, "auth.json"),
			types.RoleConfig: filepath.Join(home, "config.toml"),
		}, nil
	default:
		return map[types.FileRole]string{
			types.RoleEnv:      filepath.Join(home, ".env"),
			types.RoleSettings: filepath.Join(home, "settings.json"),
		}, nil
	}
}

// ResourceDir returns the directory under which an app's copies of a
// resource kind live, e.g. ~/.claude/commands.
func (d AppDirs) ResourceDir(app types.AppType, kind types.ResourceKind) string {
	home := d.Home(app)
	if home == "" {
		return ""
	}
	return filepath.Join(home, kind.Dir())
}

// ResourcePath returns the live file path of a resource copy in an app's
// global directory.
func (d AppDirs) ResourcePath(app types.AppType, id types.Identity) string {
	dir := d.ResourceDir(app, id.Kind)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, filepath.FromSlash(id.RelPath()))
}

// ProjectMarker is the directory project-scoped installs live under.
const ProjectMarker = ".claude"

// ProjectResourceDir returns the per-project install directory for a kind:
// <project>/.claude/<kind-dir>. Project installs always land in the
// project's .claude tree regardless of app.
func ProjectResourceDir(projectPath string, kind types.ResourceKind) string {
	return filepath.Join(projectPath, ProjectMarker, kind.Dir())
}

// ProjectResourcePath returns the live file path of a project-scoped
// resource copy.
func ProjectResourcePath(projectPath string, id types.Identity) string {
	return filepath.Join(ProjectResourceDir(projectPath, id.Kind), filepath.FromSlash(id.RelPath()))
}

// ClaudeProjectsLogDir returns the host tool's usage-log directory scanned
// by the project locator, and the config directory excluded from results.
func ClaudeProjectsLogDir() (logDir, excludeDir string, err error) {
	home, err := platformDir.homeDir()
	if err != nil {
		return "", "", err
	}
	claude := filepath.Join(home, ".claude")
	return filepath.Join(claude, "projects"), claude, nil
}
