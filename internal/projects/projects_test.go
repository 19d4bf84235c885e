package projects

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, logDir, flatName string, cwd string, mtime time.Time) {
	t.Helper()
	dir := filepath.Join(logDir, flatName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, "session-1.jsonl")
	content := fmt.Sprintf("{\"type\":\"summary\"}\n{\"cwd\":%q,\"type\":\"user\"}\n", cwd)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(file, mtime, mtime))
}

func TestListMissingDirIsEmpty(t *testing.T) {
	loc := &Locator{LogDir: filepath.Join(t.TempDir(), "absent")}
	projects, err := loc.List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestListSortsByLastUse(t *testing.T) {
	logDir := t.TempDir()
	older, newer := t.TempDir(), t.TempDir()
	base := time.Now().Add(-48 * time.Hour)

	writeSession(t, logDir, "-work-older", older, base)
	writeSession(t, logDir, "-work-newer", newer, base.Add(time.Hour))

	loc := &Locator{LogDir: logDir}
	projects, err := loc.List()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, newer, projects[0].Path)
	assert.Equal(t, older, projects[1].Path)
	assert.True(t, projects[0].LastUsed.After(projects[1].LastUsed))
}

func TestListExcludesConfigDir(t *testing.T) {
	logDir := t.TempDir()
	configDir := t.TempDir()
	project := t.TempDir()
	now := time.Now()

	writeSession(t, logDir, "-home-claude", configDir, now)
	writeSession(t, logDir, "-work-app", project, now)

	loc := &Locator{LogDir: logDir, ExcludeDir: configDir}
	projects, err := loc.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, project, projects[0].Path)
}

func TestListMarksMissingPathsInvalid(t *testing.T) {
	logDir := t.TempDir()
	gone := filepath.Join(t.TempDir(), "deleted-project")
	writeSession(t, logDir, "-work-gone", gone, time.Now())

	loc := &Locator{LogDir: logDir}
	projects, err := loc.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.False(t, projects[0].IsValid)
	assert.Equal(t, "deleted-project", projects[0].Name)
}

func TestListIgnoresNonProjectEntries(t *testing.T) {
	logDir := t.TempDir()
	project := t.TempDir()
	now := time.Now()

	writeSession(t, logDir, "-work-app", project, now)
	// No leading dash: not a project dir.
	require.NoError(t, os.MkdirAll(filepath.Join(logDir, "statsig"), 0o755))
	// Stray file at the top level.
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "notes.txt"), []byte("x"), 0o644))
	// Project dir without any usable cwd.
	empty := filepath.Join(logDir, "-work-empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(empty, "s.jsonl"), []byte("not json\n"), 0o644))

	loc := &Locator{LogDir: logDir}
	projects, err := loc.List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, project, projects[0].Path)
}

func TestListDeduplicatesProjects(t *testing.T) {
	logDir := t.TempDir()
	project := t.TempDir()
	now := time.Now()

	writeSession(t, logDir, "-work-app", project, now)
	writeSession(t, logDir, "-work-app-dup", project, now.Add(-time.Hour))

	loc := &Locator{LogDir: logDir}
	projects, err := loc.List()
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
