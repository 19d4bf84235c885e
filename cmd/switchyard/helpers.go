// Shared helpers for switchyard CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tangentlab/switchyard/internal/atomicfile"
	"github.com/tangentlab/switchyard/internal/batch"
	"github.com/tangentlab/switchyard/internal/builtin"
	"github.com/tangentlab/switchyard/internal/discovery"
	"github.com/tangentlab/switchyard/internal/lockfile"
	"github.com/tangentlab/switchyard/internal/paths"
	"github.com/tangentlab/switchyard/internal/scope"
	"github.com/tangentlab/switchyard/internal/store"
	"github.com/tangentlab/switchyard/internal/syncer"
	"github.com/tangentlab/switchyard/pkg/types"
)

// engine bundles the wired components behind every subcommand.
type engine struct {
	cfg    types.Config
	store  *store.Store
	dirs   paths.AppDirs
	writer *atomicfile.Writer
	orch   *syncer.Orchestrator
	scope  *scope.Manager
	lock   *lockfile.Lock
}

// openEngine wires the store, writer, and services. Mutating commands pass
// exclusive to hold the data-dir lock for their duration; read-only
// commands skip it.
func openEngine(exclusive bool) (*engine, error) {
	cfg, err := engineConfig()
	if err != nil {
		return nil, err
	}

	var lock *lockfile.Lock
	if exclusive {
		lock, err = lockfile.Acquire(cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := builtin.Reconcile(st, logger); err != nil {
		st.Close()
		lock.Release()
		return nil, fmt.Errorf("reconcile builtin repositories: %w", err)
	}

	dirs, err := paths.DefaultAppDirs()
	if err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	writer := atomicfile.NewWriter(cfg.BackupDir, cfg.BackupKeep)
	orch := syncer.New(st, writer, dirs, logger)
	return &engine{
		cfg:    cfg,
		store:  st,
		dirs:   dirs,
		writer: writer,
		orch:   orch,
		scope:  scope.NewManager(st, orch, logger),
		lock:   lock,
	}, nil
}

func (e *engine) close() {
	e.store.Close()
	e.lock.Release()
}

// discoveryService wires the GitHub client behind the TTL cache.
func (e *engine) discoveryService() *discovery.Service {
	client := discovery.NewGitHubClient(e.cfg.GitHubToken)
	return discovery.NewService(e.store, client, e.cfg, logger)
}

// batchInstaller wires the batch installer over the scope manager.
func (e *engine) batchInstaller() *batch.Installer {
	client := discovery.NewGitHubClient(e.cfg.GitHubToken)
	return batch.NewInstaller(e.store, e.scope, client, logger)
}

// discoveryContext bounds a network operation by the configured timeout.
func (e *engine) discoveryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.DiscoveryTimeout)
}

// printOutput writes v as indented JSON in --json mode, or line-oriented
// text otherwise via the plain callback.
func printOutput(v any, plain func()) error {
	if !flagJSON {
		plain()
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// parseScopeFlags turns the --global/--project flag pair into a scope.
func parseScopeFlags(global bool, projectPath string) (types.Scope, error) {
	if global && projectPath != "" {
		return types.Scope{}, fmt.Errorf("%w: --global and --project are mutually exclusive", types.ErrValidation)
	}
	if projectPath != "" {
		return types.ProjectScope(projectPath), nil
	}
	return types.GlobalScope(), nil
}

// parseAppsFlag parses a comma-free repeated --app flag into app types,
// defaulting to all apps when none is given.
func parseAppsFlag(names []string) ([]types.AppType, error) {
	if len(names) == 0 {
		return types.AllApps, nil
	}
	var apps []types.AppType
	for _, name := range names {
		app, err := types.ParseApp(name)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// mustKind parses the resource kind argument.
func mustKind(arg string) (types.ResourceKind, error) {
	kind, err := types.ParseKind(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "valid kinds: command, hook, agent, skill\n")
		return "", err
	}
	return kind, nil
}
