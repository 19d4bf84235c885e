package paths

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangentlab/switchyard/pkg/types"
)

func TestResolveConfigDirPrecedence(t *testing.T) {
	t.Setenv(EnvConfigDir, "/env/config")

	got, err := ResolveConfigDir("/flag/config")
	require.NoError(t, err)
	assert.Equal(t, "/flag/config", got)

	got, err = ResolveConfigDir("")
	require.NoError(t, err)
	assert.Equal(t, "/env/config", got)
}

func TestResolveDataDirPrecedence(t *testing.T) {
	t.Setenv(EnvDataDir, "/env/data")

	got, err := ResolveDataDir("", "/config/data")
	require.NoError(t, err)
	assert.Equal(t, "/config/data", got)

	got, err = ResolveDataDir("", "")
	require.NoError(t, err)
	assert.Equal(t, "/env/data", got)
}

func TestDefaultConfigDirLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-specific layout")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "switchyard"), got)
}

func TestLiveFilesLayout(t *testing.T) {
	dirs := AppDirs{Claude: "/h/.claude", Codex: "/h/.codex", Gemini: "/h/.gemini"}

	claude, err := dirs.LiveFiles(types.AppClaude)
	require.NoError(t, err)
	assert.Equal(t, "/h/.claude/settings.json", claude[types.RoleSettings])

	codex, err := dirs.LiveFiles(types.AppCodex)
	require.NoError(t, err)
	assert.Equal(t, "/h/.codex/auth.json", codex[types.RoleAuth])
	assert.Equal(t, "/h/.codex/config.toml", codex[types.RoleConfig])

	gemini, err := dirs.LiveFiles(types.AppGemini)
	require.NoError(t, err)
	assert.Equal(t, "/h/.gemini/.env", gemini[types.RoleEnv])
	assert.Equal(t, "/h/.gemini/settings.json", gemini[types.RoleSettings])

	_, err = dirs.LiveFiles("cursor")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestResourcePaths(t *testing.T) {
	dirs := AppDirs{Claude: "/h/.claude", Codex: "/h/.codex", Gemini: "/h/.gemini"}
	id := types.Identity{Kind: types.KindCommand, Namespace: "sc", Filename: "agent"}

	assert.Equal(t, filepath.Join("/h/.claude/commands", "sc", "agent.md"), dirs.ResourcePath(types.AppClaude, id))
	assert.Equal(t, filepath.Join("/proj/.claude/commands", "sc", "agent.md"), ProjectResourcePath("/proj", id))
}
