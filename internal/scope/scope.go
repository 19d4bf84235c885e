// Package scope drives resource installation through the store's scope
// state machine and keeps live files in step with it.
package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/tangentlab/switchyard/internal/resfile"
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/internal/syncer"
	"github.com/tangentlab/switchyard/pkg/types"
)

var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Manager installs and uninstalls resources. The store transaction decides
// whether an install is legal; live files follow the decision.
type Manager struct {
	store *store.Store
	sync  *syncer.Orchestrator
	log   *slog.Logger

	now func() time.Time
}

// NewManager returns a manager writing live files through orch.
func NewManager(st *store.Store, orch *syncer.Orchestrator, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, sync: orch, log: log, now: time.Now}
}

// Install places res in the given scope and pushes its live files.
//
// A global install replaces every project install of the same identity,
// removing their live files. A project install fails with ErrConflict while
// a global install exists; installs into distinct projects coexist.
func (m *Manager) Install(ctx context.Context, res *types.Resource, scope types.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := resfile.ValidateID(res.Identity); err != nil {
		return err
	}
	if res.FileHash == "" {
		res.FileHash = resfile.Hash(res.Content)
	}
	if res.InstalledAt.IsZero() {
		res.InstalledAt = m.now()
	}
	res.Scope = scope

	if scope.IsGlobal() {
		displaced, err := m.store.InstallGlobal(res)
		if err != nil {
			return err
		}
		for _, projectPath := range displaced {
			shadow := *res
			shadow.Scope = types.ProjectScope(projectPath)
			if err := m.sync.RemoveResource(ctx, &shadow); err != nil {
				m.log.Warn("displaced project files not removed",
					"id", res.ID(), "project", projectPath, "error", err)
			}
		}
		if len(displaced) > 0 {
			m.log.Info("global install displaced project installs",
				"id", res.ID(), "projects", len(displaced))
		}
	} else {
		if err := m.store.InstallProject(res, scope.ProjectPath); err != nil {
			return err
		}
	}
	return m.sync.SyncResource(ctx, res)
}

// Uninstall removes the copy of id in scope, deleting its live files.
// An absent copy is a no-op.
func (m *Manager) Uninstall(ctx context.Context, id types.Identity, scope types.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	res, err := m.store.GetResource(id, scope)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.sync.RemoveResource(ctx, res); err != nil {
		return err
	}
	return m.store.Uninstall(id, scope)
}

// CreateNamespace registers a new empty namespace.
func (m *Manager) CreateNamespace(name string) error {
	if !namespacePattern.MatchString(name) {
		return fmt.Errorf("%w: namespace %q must match %s", types.ErrValidation, name, namespacePattern)
	}
	return m.store.CreateNamespace(name)
}

// DeleteNamespace removes an empty namespace. Namespaces still referenced
// by resources return ErrNamespaceNotEmpty.
func (m *Manager) DeleteNamespace(name string) error {
	return m.store.DeleteNamespace(name)
}

// Namespaces returns the namespace tree derived from installed resources
// plus explicitly created empty namespaces.
func (m *Manager) Namespaces() ([]store.NamespaceCount, error) {
	return m.store.Namespaces()
}
