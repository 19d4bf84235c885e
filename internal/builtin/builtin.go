// Package builtin carries the packaged repository manifest and keeps the
// store's builtin rows in step with it.
package builtin

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/pkg/types"
)

//go:embed builtin-repos.json
var manifestJSON []byte

type manifestEntry struct {
	Owner        string            `json:"owner"`
	Name         string            `json:"name"`
	Branch       string            `json:"branch"`
	Descriptions map[string]string `json:"descriptions"`
}

type manifest struct {
	Version  int             `json:"version"`
	Commands []manifestEntry `json:"commands"`
	Skills   []manifestEntry `json:"skills"`
}

// Load parses the embedded manifest into repositories.
func Load() ([]types.Repository, error) {
	var m manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("%w: parse builtin manifest: %v", types.ErrBuiltinRepo, err)
	}
	var repos []types.Repository
	for _, entry := range append(m.Commands, m.Skills...) {
		repo := types.Repository{
			Owner:        entry.Owner,
			Name:         entry.Name,
			Branch:       entry.Branch,
			Enabled:      true,
			Builtin:      true,
			Descriptions: entry.Descriptions,
		}
		if repo.Branch == "" {
			repo.Branch = "main"
		}
		if err := repo.Validate(); err != nil {
			return nil, fmt.Errorf("builtin manifest entry: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// Reconcile adds manifest repositories the store does not know yet. Existing
// rows keep their enabled flag, so a user's disable survives upgrades.
// Reconcile is idempotent and runs at every startup.
func Reconcile(st *store.Store, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	repos, err := Load()
	if err != nil {
		return err
	}
	added := 0
	for _, repo := range repos {
		_, getErr := st.GetRepository(repo.Owner, repo.Name)
		if getErr == nil {
			if err := st.UpsertRepository(repo); err != nil {
				return err
			}
			continue
		}
		if !errors.Is(getErr, types.ErrNotFound) {
			return getErr
		}
		if err := st.UpsertRepository(repo); err != nil {
			return err
		}
		added++
	}
	if added > 0 {
		log.Info("reconciled builtin repositories", "added", added)
	}
	return nil
}

// Restore re-adds and re-enables the full packaged set, undoing local
// disables. Non-builtin repositories are untouched. It returns the number
// of repositories that changed.
func Restore(st *store.Store, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	repos, err := Load()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, repo := range repos {
		existing, getErr := st.GetRepository(repo.Owner, repo.Name)
		if getErr == nil && existing.Enabled {
			continue
		}
		if getErr != nil && !errors.Is(getErr, types.ErrNotFound) {
			return restored, getErr
		}
		if err := st.UpsertRepository(repo); err != nil {
			return restored, err
		}
		if err := st.SetRepositoryEnabled(repo.Owner, repo.Name, true); err != nil {
			return restored, err
		}
		restored++
	}
	log.Info("restored builtin repositories", "restored", restored)
	return restored, nil
}
