// Package projects discovers project roots from the host tool's usage logs.
package projects

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

// Locator lists recently used projects by scanning a directory of per-project
// session logs. Each project has one subdirectory whose name starts with "-"
// (the project path with separators flattened); the real path is recovered
// from the cwd field of the .jsonl session entries inside.
type Locator struct {
	// LogDir is the session log root, typically ~/.claude/projects.
	LogDir string
	// ExcludeDir is dropped from results; the host tool's own config
	// directory shows up in its logs but is not a project.
	ExcludeDir string

	Log *slog.Logger
}

// List returns discovered projects sorted by last use, most recent first.
// A missing log directory yields an empty list, not an error.
func (l *Locator) List() ([]types.Project, error) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}

	entries, err := os.ReadDir(l.LogDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var projects []types.Project
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "-") {
			continue
		}
		path, lastUsed, ok := l.scanSessionDir(filepath.Join(l.LogDir, entry.Name()))
		if !ok {
			log.Debug("session dir has no usable cwd", "dir", entry.Name())
			continue
		}
		if path == l.ExcludeDir || seen[path] {
			continue
		}
		seen[path] = true

		_, statErr := os.Stat(path)
		projects = append(projects, types.Project{
			Path:     path,
			Name:     filepath.Base(path),
			LastUsed: lastUsed,
			IsValid:  statErr == nil,
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastUsed.After(projects[j].LastUsed)
	})
	return projects, nil
}

// scanSessionDir extracts the project path from the first session entry that
// carries a cwd, and the newest log modification time as last use.
func (l *Locator) scanSessionDir(dir string) (path string, lastUsed time.Time, ok bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", time.Time{}, false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		if info, err := entry.Info(); err == nil && info.ModTime().After(lastUsed) {
			lastUsed = info.ModTime()
		}
		if path == "" {
			path = cwdFromSessionLog(file)
		}
	}
	return path, lastUsed, path != ""
}

// cwdFromSessionLog reads a JSON-lines session log and returns the first cwd
// field found. Unparseable lines are skipped.
func cwdFromSessionLog(file string) string {
	f, err := os.Open(file)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry struct {
			Cwd string `json:"cwd"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Cwd != "" {
			return entry.Cwd
		}
	}
	return ""
}
