// Package atomicfile provides crash-safe single-file writes with a bounded
// backup rotation. A write lands in a temporary file in the destination
// directory, is fsynced, and renamed into place, so an external reader never
// observes a partially-written file and a crash before the rename leaves the
// previous content intact.
package atomicfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tangentlab/switchyard/pkg/types"
)

// backupExt marks rotated backup files.
const backupExt = ".bak"

// timestampLayout orders backup filenames lexicographically by time.
const timestampLayout = "20060102T150405.000000000"

// Writer writes files atomically and rotates backups of overwritten content.
// Keep bounds the number of backups retained per destination path; zero
// disables backups entirely.
type Writer struct {
	BackupDir string
	Keep      int

	// now is overridable in tests to force distinct backup slots.
	now func() time.Time
}

// NewWriter returns a Writer rotating up to keep backups under backupDir.
func NewWriter(backupDir string, keep int) *Writer {
	return &Writer{BackupDir: backupDir, Keep: keep, now: time.Now}
}

// Write atomically replaces path with data. If path existed, its previous
// content is copied into a timestamped backup slot after the rename
// succeeds, and the oldest backups beyond Keep are evicted.
func (w *Writer) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	// Capture prior content before it is replaced.
	prev, err := os.ReadFile(path)
	hadPrev := err == nil
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read previous content of %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".switchyard-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	if hadPrev && w.Keep > 0 && w.BackupDir != "" {
		if err := w.rotate(path, prev); err != nil {
			// The destination is already committed; a backup failure
			// cannot undo it, but it is not silent either.
			return fmt.Errorf("backup rotation for %s: %w", path, err)
		}
	}
	return nil
}

// slotDir returns the per-path backup directory. The key combines a hash of
// the absolute path with its basename so distinct paths never collide and
// the directory stays recognizable.
func (w *Writer) slotDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	key := hex.EncodeToString(sum[:])[:12] + "-" + filepath.Base(abs)
	return filepath.Join(w.BackupDir, key)
}

func (w *Writer) rotate(path string, prev []byte) error {
	dir := w.slotDir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := w.now().UTC().Format(timestampLayout) + backupExt
	if err := os.WriteFile(filepath.Join(dir, name), prev, 0o600); err != nil {
		return err
	}
	return w.prune(dir)
}

// prune evicts the oldest backups beyond Keep.
func (w *Writer) prune(dir string) error {
	names, err := backupNames(dir)
	if err != nil {
		return err
	}
	for len(names) > w.Keep {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// Backup describes one retained backup of a destination path.
type Backup struct {
	OriginalPath string    `json:"originalPath"`
	Timestamp    time.Time `json:"timestamp"`
	BackupPath   string    `json:"backupPath"`
}

// Backups lists the retained backups for path, oldest first. A path with no
// backups yields an empty list.
func (w *Writer) Backups(path string) ([]Backup, error) {
	dir := w.slotDir(path)
	names, err := backupNames(dir)
	if err != nil {
		return nil, err
	}
	backups := make([]Backup, 0, len(names))
	for _, name := range names {
		ts, err := time.Parse(timestampLayout, name[:len(name)-len(backupExt)])
		if err != nil {
			continue
		}
		backups = append(backups, Backup{
			OriginalPath: path,
			Timestamp:    ts,
			BackupPath:   filepath.Join(dir, name),
		})
	}
	return backups, nil
}

// Restore atomically writes the most recent backup of path back over it.
func (w *Writer) Restore(path string) error {
	backups, err := w.Backups(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("%w: no backups for %s", types.ErrNotFound, path)
	}
	data, err := os.ReadFile(backups[len(backups)-1].BackupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return w.Write(path, data)
}

func backupNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == backupExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
